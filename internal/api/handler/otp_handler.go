package handler

import (
	"encoding/json"
	"net/http"

	"notekeeper/internal/app/service"
	"notekeeper/internal/common"

	"github.com/go-chi/chi/v5"
)

type OTPHandler struct {
	otpService *service.OTPService
}

func NewOTPHandler(otpService *service.OTPService) *OTPHandler {
	return &OTPHandler{otpService: otpService}
}

type otpTokenRequest struct {
	OTPToken string `json:"otp_token"`
}

// RegisterRoutes mounts the two-factor routes under /auth/otp.
func (h *OTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/generate", h.generate)
	r.Post("/verify", h.verify)
	r.Post("/validate", h.validate)
	r.Get("/disable", h.disable)
	r.Get("/qr", h.qrCode)
}

func (h *OTPHandler) generate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	resp, err := h.otpService.Generate(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *OTPHandler) verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req otpTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	user, err := h.otpService.Verify(r.Context(), claims.UserID, req.OTPToken)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"otp_verified": true,
		"user":         user,
	})
}

func (h *OTPHandler) validate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req otpTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	user, err := h.otpService.ValidateForLogin(r.Context(), claims.UserID, req.OTPToken)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

func (h *OTPHandler) disable(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	user, err := h.otpService.Disable(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

func (h *OTPHandler) qrCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	png, err := h.otpService.QRCode(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
