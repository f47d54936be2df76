package handler

import (
	"net/http"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/service"
)

// AccountHandler serves the account-facing read endpoints plus the
// start event.
type AccountHandler struct {
	referrals *service.ReferralService
	ledger    *ledger.Store
	catalog   *catalog.Catalog
}

func NewAccountHandler(referrals *service.ReferralService, ledgerStore *ledger.Store, cat *catalog.Catalog) *AccountHandler {
	return &AccountHandler{referrals: referrals, ledger: ledgerStore, catalog: cat}
}

type startRequest struct {
	ReferrerID string `json:"referrer_id,omitempty"`
}

type balanceResponse struct {
	AccountID            string `json:"account_id"`
	Main                 string `json:"main"`
	Hold                 string `json:"hold"`
	Topup                string `json:"topup"`
	WithdrawalProcessing string `json:"withdrawal_processing"`
	AccountsSold         int    `json:"accounts_sold"`
	AccountsBought       int    `json:"accounts_bought"`
	Referrals            int    `json:"referrals"`
	ReferralEarnings     string `json:"referral_earnings"`
}

type saleRecordResponse struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	Price     string     `json:"price"`
	Country   string     `json:"country"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type countryResponse struct {
	Name      string `json:"name"`
	SellPrice string `json:"sell_price"`
	BuyPrice  string `json:"buy_price"`
}

// Start registers the account on first contact and applies the
// referral link when one is present. Safe to repeat.
func (h *AccountHandler) Start(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req startRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	acct, err := h.referrals.Start(r.Context(), accountID, req.ReferrerID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, balanceView(acct))
}

// Balance returns the four balance pools and referral stats.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	acct := h.ledger.GetOrCreate(r.Context(), accountID)
	RespondJSON(w, http.StatusOK, balanceView(acct))
}

// Sales returns the account's sale history, newest first.
func (h *AccountHandler) Sales(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestActor(w, r)
	if !ok {
		return
	}
	acct := h.ledger.GetOrCreate(r.Context(), accountID)
	out := make([]saleRecordResponse, 0, len(acct.Sales))
	for i := len(acct.Sales) - 1; i >= 0; i-- {
		rec := acct.Sales[i]
		out = append(out, saleRecordResponse{
			ID:        rec.ID.String(),
			Number:    rec.Number,
			Price:     rec.PriceMicros.String(),
			Country:   rec.Country,
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt,
			SettledAt: rec.SettledAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"sales": out})
}

// Catalog lists the sellable countries with prices.
func (h *AccountHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	countries := h.catalog.List()
	out := make([]countryResponse, 0, len(countries))
	for _, c := range countries {
		out = append(out, countryResponse{
			Name:      c.Name,
			SellPrice: c.SellPriceMicros.String(),
			BuyPrice:  c.BuyPriceMicros.String(),
		})
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"countries": out})
}

func balanceView(acct *models.Account) balanceResponse {
	return balanceResponse{
		AccountID:            acct.ID,
		Main:                 acct.MainMicros.String(),
		Hold:                 acct.HoldMicros.String(),
		Topup:                acct.TopupMicros.String(),
		WithdrawalProcessing: acct.WithdrawalProcessingMicros.String(),
		AccountsSold:         acct.AccountsSold,
		AccountsBought:       acct.AccountsBought,
		Referrals:            len(acct.Referrals),
		ReferralEarnings:     acct.ReferralEarningsMicros.String(),
	}
}
