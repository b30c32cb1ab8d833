package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"notekeeper/internal/common"
	"notekeeper/internal/platform/payments"

	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	moonpay *payments.MoonPay
}

func NewPaymentHandler(moonpay *payments.MoonPay) *PaymentHandler {
	return &PaymentHandler{moonpay: moonpay}
}

type upstreamErrorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// RegisterCryptoRoutes mounts the authenticated /crypto routes.
func (h *PaymentHandler) RegisterCryptoRoutes(r chi.Router) {
	r.Get("/buy/lists", h.buyLists)
}

// RegisterTransactionRoutes mounts the public /transaction routes.
func (h *PaymentHandler) RegisterTransactionRoutes(r chi.Router) {
	r.Get("/buy/quote", h.buyQuote)
	r.Get("/buy/info", h.buyInfo)
	r.Get("/swap/info", h.swapInfo)
}

func (h *PaymentHandler) buyLists(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	token, ok := requiredQuery(w, r, "moonpay_token")
	if !ok {
		return
	}
	raw, err := h.moonpay.BuyTransactions(r.Context(), claims.UserID, token)
	respondUpstream(w, raw, err)
}

func (h *PaymentHandler) buyQuote(w http.ResponseWriter, r *http.Request) {
	crypto, ok := requiredQuery(w, r, "crypto_code")
	if !ok {
		return
	}
	fiat, ok := requiredQuery(w, r, "fiat_code")
	if !ok {
		return
	}
	amountStr, ok := requiredQuery(w, r, "crypto_amount")
	if !ok {
		return
	}
	amount, err := strconv.ParseUint(amountStr, 10, 32)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "crypto_amount must be a non-negative integer")
		return
	}
	raw, err := h.moonpay.BuyQuote(r.Context(), crypto, fiat, amount)
	respondUpstream(w, raw, err)
}

func (h *PaymentHandler) buyInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := requiredQuery(w, r, "transaction_id")
	if !ok {
		return
	}
	raw, err := h.moonpay.BuyTransaction(r.Context(), id)
	respondUpstream(w, raw, err)
}

func (h *PaymentHandler) swapInfo(w http.ResponseWriter, r *http.Request) {
	token, ok := requiredQuery(w, r, "moonpay_token")
	if !ok {
		return
	}
	id, ok := requiredQuery(w, r, "transaction_id")
	if !ok {
		return
	}
	raw, err := h.moonpay.SwapTransaction(r.Context(), id, token)
	respondUpstream(w, raw, err)
}

func requiredQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		common.RespondWithError(w, http.StatusBadRequest, "missing query parameter: "+key)
		return "", false
	}
	return v, true
}

func respondUpstream(w http.ResponseWriter, raw json.RawMessage, err error) {
	if err == nil {
		common.RespondWithJSON(w, http.StatusOK, raw)
		return
	}

	var upErr *payments.UpstreamError
	var tErr *payments.TransportError
	switch {
	case errors.As(err, &upErr):
		common.RespondWithJSON(w, http.StatusBadRequest, upstreamErrorResponse{
			Error: upErr.Op, Status: upErr.Status, Details: upErr.Body,
		})
	case errors.As(err, &tErr):
		common.RespondWithJSON(w, http.StatusInternalServerError, upstreamErrorResponse{
			Error: "request error", Details: tErr.Err.Error(),
		})
	case errors.Is(err, payments.ErrDecode):
		common.RespondWithJSON(w, http.StatusInternalServerError, upstreamErrorResponse{Error: err.Error()})
	default:
		common.RespondWithServiceError(w, err)
	}
}
