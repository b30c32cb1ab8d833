package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"notekeeper/internal/api/middleware"
	"notekeeper/internal/app/service"
	"notekeeper/internal/common"

	"github.com/go-chi/chi/v5"
)

// CookieOptions controls the session cookie written at login.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authService *service.AuthService
	cookie      CookieOptions
	now         func() time.Time
}

func NewAuthHandler(authService *service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, now: time.Now}
}

// RegisterRoutes mounts the public account routes under /user. limiter
// guards the credential endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.With(limiter).Post("/register", h.register)
	r.With(limiter).Post("/login", h.login)
	r.Get("/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(resp.Token, h.now().Add(h.cookie.TTL)))
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("logout", h.now()))
	common.RespondWithMessage(w, http.StatusOK, "user logged out")
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if !expires.After(h.now()) {
		c.MaxAge = -1
	}
	return c
}
