package handler

import (
	"net/http"

	"notekeeper/internal/api/middleware"
	"notekeeper/internal/common"
	"notekeeper/internal/common/security"
)

// requireClaims writes 401 and returns false when the request carries no
// authenticated identity.
func requireClaims(w http.ResponseWriter, r *http.Request) (*security.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
		return nil, false
	}
	return claims, true
}
