package models

import (
	"time"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/google/uuid"
)

// SaleRecord is the durable trace of one asset sale. It is created only
// when the operator confirms the verification code, and mutated in
// place afterwards to track settlement.
type SaleRecord struct {
	ID          uuid.UUID     `json:"id"`
	Number      string        `json:"number"`
	PriceMicros domain.Micros `json:"price_micros"`
	Country     string        `json:"country"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	SettledAt   *time.Time    `json:"settled_at,omitempty"`
}

// SaleRequest is the in-flight conversation state of a sale. It lives
// on the Account so it survives a restart, and is discarded on
// completion or cancellation.
type SaleRequest struct {
	State       string        `json:"state"`
	Country     string        `json:"country"`
	PriceMicros domain.Micros `json:"price_micros"`
	Number      string        `json:"number,omitempty"`
	Code        string        `json:"code,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// WithdrawalRequest is the transient withdrawal conversation state. Its
// only durable effect is the main -> withdrawal_processing reservation.
type WithdrawalRequest struct {
	State   string `json:"state"`
	Method  string `json:"method"`
	Address string `json:"address,omitempty"`
}

// Account is one user's ledger entry, keyed by the platform-assigned
// account identifier.
type Account struct {
	ID                         string        `json:"id"`
	MainMicros                 domain.Micros `json:"main_micros"`
	HoldMicros                 domain.Micros `json:"hold_micros"`
	TopupMicros                domain.Micros `json:"topup_micros"`
	WithdrawalProcessingMicros domain.Micros `json:"withdrawal_processing_micros"`
	AccountsSold               int           `json:"accounts_sold"`
	AccountsBought             int           `json:"accounts_bought"`
	SoldNumbers                []string      `json:"sold_numbers"`
	Sales                      []*SaleRecord `json:"sales"`
	ReferrerID                 string        `json:"referrer_id,omitempty"`
	Referrals                  []string      `json:"referrals"`
	ReferralEarningsMicros     domain.Micros `json:"referral_earnings_micros"`
	ActiveSale                 *SaleRequest  `json:"active_sale,omitempty"`
	CreatedAt                  time.Time     `json:"created_at"`
	LastActivity               time.Time     `json:"last_activity"`
}

// NewAccount returns a zeroed account for first interaction.
func NewAccount(id string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           id,
		SoldNumbers:  []string{},
		Sales:        []*SaleRecord{},
		Referrals:    []string{},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// HasSoldNumber reports whether this account ever submitted number.
func (a *Account) HasSoldNumber(number string) bool {
	for _, n := range a.SoldNumbers {
		if n == number {
			return true
		}
	}
	return false
}

// SaleByNumber returns the most recent sale record for number, or nil.
func (a *Account) SaleByNumber(number string) *SaleRecord {
	for i := len(a.Sales) - 1; i >= 0; i-- {
		if a.Sales[i].Number == number {
			return a.Sales[i]
		}
	}
	return nil
}

// HasReferral reports whether id is already in the referral list.
func (a *Account) HasReferral(id string) bool {
	for _, r := range a.Referrals {
		if r == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to use outside the ledger lock.
func (a *Account) Clone() *Account {
	c := *a
	c.SoldNumbers = append([]string(nil), a.SoldNumbers...)
	c.Referrals = append([]string(nil), a.Referrals...)
	c.Sales = make([]*SaleRecord, len(a.Sales))
	for i, s := range a.Sales {
		rec := *s
		if s.SettledAt != nil {
			ts := *s.SettledAt
			rec.SettledAt = &ts
		}
		c.Sales[i] = &rec
	}
	if a.ActiveSale != nil {
		req := *a.ActiveSale
		c.ActiveSale = &req
	}
	return &c
}
