package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notekeeper/internal/common"
	"notekeeper/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const claimsCtxKey contextKey = "claims"

const (
	msgCookieMissing = "Token is not available in the cookie"
	msgHeaderMissing = "Provide an authentication token in the request"
	msgTokenExpired  = "Token has expired"
	msgBadSignature  = "Invalid token signature"
	msgInvalidToken  = "Invalid token"

	// TokenCookieName is the session cookie set at login.
	TokenCookieName = "token"
)

// Authenticator verifies the bearer token and attaches its claims to the
// request context. When requireCookie is set the session cookie must also be
// present, but only the header token is decoded.
func Authenticator(tokens *security.TokenManager, requireCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requireCookie {
				if c, err := r.Cookie(TokenCookieName); err != nil || c.Value == "" {
					common.RespondWithError(w, http.StatusUnauthorized, msgCookieMissing)
					return
				}
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				common.RespondWithError(w, http.StatusUnauthorized, msgHeaderMissing)
				return
			}
			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				// accept a bare token without the Bearer prefix
				raw = header
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				respondTokenError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func respondTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		common.RespondWithError(w, http.StatusUnauthorized, msgTokenExpired)
	case errors.Is(err, common.ErrInvalidSignature):
		common.RespondWithError(w, http.StatusUnauthorized, msgBadSignature)
	default:
		details := strings.TrimPrefix(err.Error(), common.ErrMalformedToken.Error()+": ")
		common.RespondWithErrorDetails(w, http.StatusUnauthorized, msgInvalidToken, details)
	}
}

// RequireRoles lets the request through only if the authenticated role is
// one of roles. It must run after Authenticator.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	forbidden := roleDeniedMessage(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.RespondWithError(w, http.StatusForbidden, forbidden)
		})
	}
}

// roleDeniedMessage names the roles a route accepts, e.g.
// "Only admin can access this route".
func roleDeniedMessage(roles []string) string {
	return "Only " + strings.Join(roles, " or ") + " can access this route"
}

func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(*security.Claims)
	return claims, ok && claims != nil
}
