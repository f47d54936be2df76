package handler

import (
	"net/http"
	"strings"

	"github.com/bgtwallet/bgtwallet/internal/api/problem"
	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/service"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the operator surface: workflow decisions,
// manual balance control, withdrawal policy, broadcast, and catalog
// management.
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type decisionRequest struct {
	Kind      string `json:"kind"`
	AccountID string `json:"account_id"`
	Amount    string `json:"amount,omitempty"`
	Number    string `json:"number,omitempty"`
	Message   string `json:"message,omitempty"`
}

type adjustBalanceRequest struct {
	AccountID string `json:"account_id"`
	Pool      string `json:"pool"`
	Delta     string `json:"delta"`
}

type policyRequest struct {
	GlobalLimit *string `json:"global_limit,omitempty"`
	BotActive   *bool   `json:"bot_active,omitempty"`
}

type userLimitRequest struct {
	Limit string `json:"limit"`
}

type broadcastRequest struct {
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"text"`
}

type upsertCountryRequest struct {
	SellPrice string `json:"sell_price"`
	BuyPrice  string `json:"buy_price"`
}

// Decide applies one operator decision to a sale.
func (h *AdminHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var amount domain.Micros
	if req.Amount != "" {
		parsed, err := domain.ParseAmount(req.Amount)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "amount must be a decimal")
			return
		}
		amount = parsed
	}
	decision := service.Decision{
		Kind:      req.Kind,
		AccountID: req.AccountID,
		Amount:    amount,
		Number:    req.Number,
		Message:   req.Message,
	}
	if err := decision.Validate(); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-decision"), "", err.Error())
		return
	}
	if err := h.admin.Dispatch(r.Context(), actorID, decision); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "applied", "kind": req.Kind})
}

// AdjustBalance credits or debits one balance pool manually.
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req adjustBalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	delta, err := domain.ParseAmount(req.Delta)
	if err != nil || delta == 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "delta must be a non-zero decimal")
		return
	}
	switch req.Pool {
	case domain.PoolMain, domain.PoolHold, domain.PoolTopup, domain.PoolWithdrawalProcessing:
	default:
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-pool"), "", "unknown balance pool")
		return
	}
	acct, err := h.admin.AdjustBalance(r.Context(), actorID, req.AccountID, req.Pool, delta)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, balanceView(acct))
}

// UpdatePolicy changes the global withdrawal minimum or the service
// active flag. Both fields are optional; at least one must be present.
func (h *AdminHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req policyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GlobalLimit == nil && req.BotActive == nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-policy"), "", "nothing to update")
		return
	}
	if req.GlobalLimit != nil {
		limit, err := domain.ParseAmount(*req.GlobalLimit)
		if err != nil || limit < 0 {
			problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "global_limit must be a non-negative decimal")
			return
		}
		if err := h.admin.SetGlobalLimit(actorID, limit); err != nil {
			RespondError(w, r, err)
			return
		}
	}
	if req.BotActive != nil {
		if err := h.admin.SetBotActive(actorID, *req.BotActive); err != nil {
			RespondError(w, r, err)
			return
		}
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetUserLimit sets a per-account withdrawal minimum override.
func (h *AdminHandler) SetUserLimit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	accountID := chi.URLParam(r, "id")
	var req userLimitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	limit, err := domain.ParseAmount(req.Limit)
	if err != nil || limit < 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "limit must be a non-negative decimal")
		return
	}
	if err := h.admin.SetUserLimit(actorID, accountID, limit); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "updated", "account_id": accountID})
}

// RemoveUserLimit clears a per-account withdrawal override.
func (h *AdminHandler) RemoveUserLimit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	accountID := chi.URLParam(r, "id")
	if err := h.admin.RemoveUserLimit(actorID, accountID); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "removed", "account_id": accountID})
}

// Broadcast enqueues a message for one account or all accounts.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req broadcastRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-broadcast"), "", "text must not be empty")
		return
	}
	if err := h.admin.Broadcast(r.Context(), actorID, req.Recipient, req.Text); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// UpsertCountry adds or reprices a catalog entry.
func (h *AdminHandler) UpsertCountry(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "country"))
	var req upsertCountryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sellPrice, err := domain.ParseAmount(req.SellPrice)
	if err != nil || sellPrice < 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "sell_price must be a non-negative decimal")
		return
	}
	var buyPrice domain.Micros
	if req.BuyPrice != "" {
		buyPrice, err = domain.ParseAmount(req.BuyPrice)
		if err != nil || buyPrice < 0 {
			problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-amount"), "", "buy_price must be a non-negative decimal")
			return
		}
	}
	entry := catalog.Country{Name: name, SellPriceMicros: sellPrice, BuyPriceMicros: buyPrice}
	if err := h.admin.UpsertCountry(actorID, entry); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, countryResponse{
		Name:      entry.Name,
		SellPrice: entry.SellPriceMicros.String(),
		BuyPrice:  entry.BuyPriceMicros.String(),
	})
}

// DeleteCountry removes a catalog entry.
func (h *AdminHandler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestActor(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "country")
	if err := h.admin.DeleteCountry(actorID, name); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "country": name})
}
