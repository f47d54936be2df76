package handler

import (
	"net/http"

	"github.com/bgtwallet/bgtwallet/internal/api/problem"
	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/service"
)

// WithdrawalHandler exposes the three-step withdrawal flow.
type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type selectMethodRequest struct {
	Method string `json:"method"`
}

type submitAddressRequest struct {
	Address string `json:"address"`
}

type submitAmountRequest struct {
	Amount string `json:"amount"`
}

// SelectMethod opens a withdrawal session when the balance clears the
// per-method minimum.
func (h *WithdrawalHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req selectMethodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	minimum, err := h.withdrawals.SelectMethod(r.Context(), accountID, req.Method)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"state":   "awaiting_address",
		"minimum": minimum.String(),
	})
}

// SubmitAddress records the destination address.
func (h *WithdrawalHandler) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req submitAddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.withdrawals.SubmitAddress(r.Context(), accountID, req.Address); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"state": "awaiting_amount"})
}

// SubmitAmount validates the amount and reserves the funds.
func (h *WithdrawalHandler) SubmitAmount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req submitAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil || amount <= 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "amount must be a positive decimal")
		return
	}
	if err := h.withdrawals.SubmitAmount(r.Context(), accountID, amount); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{
		"state":  "processing",
		"detail": "Withdrawal request received. Funds have been reserved for processing.",
	})
}

// Cancel discards the in-flight withdrawal session.
func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	if err := h.withdrawals.Cancel(accountID); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"state": "canceled"})
}
