package handler

import (
	"net/http"

	"github.com/bgtwallet/bgtwallet/internal/service"
)

// SaleHandler exposes the user side of the sale workflow.
type SaleHandler struct {
	sales *service.SaleService
}

func NewSaleHandler(sales *service.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

type selectCountryRequest struct {
	Country string `json:"country"`
}

type submitNumberRequest struct {
	Number string `json:"number"`
}

type submitCodeRequest struct {
	Code string `json:"code"`
}

// SelectCountry starts a sale for the chosen country.
func (h *SaleHandler) SelectCountry(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req selectCountryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.sales.SelectCountry(r.Context(), accountID, req.Country)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"country":    entry.Name,
		"sell_price": entry.SellPriceMicros.String(),
		"state":      "country_selected",
	})
}

// Purchase buys a ready-made account for the chosen country from the
// topup balance.
func (h *SaleHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req selectCountryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.sales.Purchase(r.Context(), accountID, req.Country)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"country":   entry.Name,
		"buy_price": entry.BuyPriceMicros.String(),
		"status":    "purchased",
	})
}

// SubmitNumber submits the number for operator approval.
func (h *SaleHandler) SubmitNumber(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req submitNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sales.SubmitNumber(r.Context(), accountID, req.Number); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{
		"state":  "pending_approval",
		"detail": "Your request is being processed. You will be notified once it is approved.",
	})
}

// SubmitCode submits the verification code for operator review.
func (h *SaleHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req submitCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sales.SubmitCode(r.Context(), accountID, req.Code); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{
		"state":  "code_submitted",
		"detail": "Verification in progress. You will be notified once the code is confirmed.",
	})
}

// Cancel discards the in-flight sale request.
func (h *SaleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	if err := h.sales.Cancel(r.Context(), accountID); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"state": "canceled"})
}
