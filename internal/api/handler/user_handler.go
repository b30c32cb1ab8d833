package handler

import (
	"encoding/json"
	"net/http"

	"notekeeper/internal/app/service"
	"notekeeper/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// RegisterRoutes mounts the authenticated account routes under /auth.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/user", h.profile)
	r.Delete("/delete", h.deleteAccount)
	r.Post("/update-password", h.updatePassword)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	user, err := h.authService.Profile(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.authService.DeleteAccount(r.Context(), claims.UserID); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "user deleted")
}

func (h *UserHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req service.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.authService.UpdatePassword(r.Context(), claims.UserID, req); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "password updated")
}
