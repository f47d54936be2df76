package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"go.uber.org/zap"
)

// Decision is an operator action on a sale, constructed and validated
// once at the router boundary instead of parsing delimited tokens
// downstream.
type Decision struct {
	Kind      string
	AccountID string
	Amount    domain.Micros
	Number    string
	Message   string
}

var decisionKinds = map[string]struct{}{
	domain.DecisionApproveSale:        {},
	domain.DecisionRejectSale:         {},
	domain.DecisionRejectSaleMessage:  {},
	domain.DecisionConfirmCode:        {},
	domain.DecisionWrongCode:          {},
	domain.DecisionFinalApprove:       {},
	domain.DecisionFinalReject:        {},
	domain.DecisionFinalRejectMessage: {},
}

// Validate checks structural validity; account existence is checked at
// dispatch, under the ledger lock.
func (d Decision) Validate() error {
	if _, ok := decisionKinds[d.Kind]; !ok {
		return fmt.Errorf("unknown decision kind %q", d.Kind)
	}
	if strings.TrimSpace(d.AccountID) == "" {
		return fmt.Errorf("decision requires account_id")
	}
	if d.Amount < 0 {
		return fmt.Errorf("decision amount must not be negative")
	}
	switch d.Kind {
	case domain.DecisionFinalApprove, domain.DecisionFinalReject, domain.DecisionFinalRejectMessage:
		if d.Number == "" {
			return fmt.Errorf("decision %s requires number", d.Kind)
		}
	case domain.DecisionRejectSaleMessage:
		if strings.TrimSpace(d.Message) == "" {
			return fmt.Errorf("decision %s requires message", d.Kind)
		}
	}
	return nil
}

// AdminService verifies the operator identity and routes decisions to
// the workflow engines. Every admin operation re-checks the acting
// identifier against the configured operator before any mutation.
type AdminService struct {
	operatorID string
	sales      *SaleService
	ledger     *ledger.Store
	settings   *policy.SettingsStore
	catalog    *catalog.Catalog
	queue      notify.Queue
}

func NewAdminService(operatorID string, sales *SaleService, ledgerStore *ledger.Store, settings *policy.SettingsStore, cat *catalog.Catalog, queue notify.Queue) *AdminService {
	return &AdminService{
		operatorID: operatorID,
		sales:      sales,
		ledger:     ledgerStore,
		settings:   settings,
		catalog:    cat,
		queue:      queue,
	}
}

// OperatorID returns the configured operator account identifier.
func (s *AdminService) OperatorID() string {
	return s.operatorID
}

func (s *AdminService) authorize(actorID string) error {
	if actorID != s.operatorID {
		return models.ErrAccessDenied
	}
	return nil
}

// Dispatch routes one operator decision. Unknown accounts and invalid
// stages are rejected without mutating the ledger.
func (s *AdminService) Dispatch(ctx context.Context, actorID string, d Decision) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if !s.ledger.Exists(d.AccountID) {
		return fmt.Errorf("account %s: %w", d.AccountID, models.ErrNotFound)
	}
	switch d.Kind {
	case domain.DecisionApproveSale:
		return s.sales.Approve(ctx, d.AccountID)
	case domain.DecisionRejectSale:
		return s.sales.Reject(ctx, d.AccountID, "")
	case domain.DecisionRejectSaleMessage:
		return s.sales.Reject(ctx, d.AccountID, d.Message)
	case domain.DecisionConfirmCode:
		return s.sales.ConfirmCode(ctx, d.AccountID)
	case domain.DecisionWrongCode:
		return s.sales.WrongCode(ctx, d.AccountID)
	case domain.DecisionFinalApprove:
		return s.sales.FinalApprove(ctx, d.AccountID, d.Number)
	case domain.DecisionFinalReject:
		return s.sales.FinalReject(ctx, d.AccountID, d.Number, "")
	case domain.DecisionFinalRejectMessage:
		return s.sales.FinalReject(ctx, d.AccountID, d.Number, d.Message)
	default:
		return fmt.Errorf("unknown decision kind %q", d.Kind)
	}
}

// AdjustBalance applies a manual operator credit or debit to one pool.
func (s *AdminService) AdjustBalance(ctx context.Context, actorID, accountID, pool string, delta domain.Micros) (*models.Account, error) {
	if err := s.authorize(actorID); err != nil {
		return nil, err
	}
	if !s.ledger.Exists(accountID) {
		return nil, fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}
	acct, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		var target *domain.Micros
		switch pool {
		case domain.PoolMain:
			target = &acct.MainMicros
		case domain.PoolHold:
			target = &acct.HoldMicros
		case domain.PoolTopup:
			target = &acct.TopupMicros
		case domain.PoolWithdrawalProcessing:
			target = &acct.WithdrawalProcessingMicros
		default:
			return fmt.Errorf("unknown balance pool %q", pool)
		}
		if *target+delta < 0 {
			return models.ErrInsufficientFunds
		}
		*target += delta
		acct.LastActivity = time.Now().UTC()
		return nil
	}, accountID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("operator balance adjustment",
		zap.String("account_id", accountID),
		zap.String("pool", pool),
		zap.String("delta", delta.String()),
	)
	return acct, nil
}

// SetGlobalLimit updates the global withdrawal minimum.
func (s *AdminService) SetGlobalLimit(actorID string, limit domain.Micros) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	s.settings.SetGlobalLimit(limit)
	return nil
}

// SetUserLimit sets a per-account withdrawal override.
func (s *AdminService) SetUserLimit(actorID, accountID string, limit domain.Micros) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if !s.ledger.Exists(accountID) {
		return fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}
	s.settings.SetUserLimit(accountID, limit)
	return nil
}

// RemoveUserLimit clears a per-account withdrawal override.
func (s *AdminService) RemoveUserLimit(actorID, accountID string) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	s.settings.RemoveUserLimit(accountID)
	return nil
}

// SetBotActive suspends or resumes the user-facing workflows.
func (s *AdminService) SetBotActive(actorID string, active bool) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	s.settings.SetBotActive(active)
	return nil
}

// Broadcast enqueues a message for all accounts, or one account when
// recipient is set.
func (s *AdminService) Broadcast(ctx context.Context, actorID, recipient, text string) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("broadcast message must not be empty")
	}
	if recipient != "" && !s.ledger.Exists(recipient) {
		return fmt.Errorf("account %s: %w", recipient, models.ErrNotFound)
	}
	return s.queue.Enqueue(ctx, notify.Message{Recipient: recipient, Text: text})
}

// UpsertCountry adds or reprices a catalog entry.
func (s *AdminService) UpsertCountry(actorID string, country catalog.Country) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if strings.TrimSpace(country.Name) == "" {
		return fmt.Errorf("country name must not be empty")
	}
	if country.SellPriceMicros < 0 || country.BuyPriceMicros < 0 {
		return fmt.Errorf("country prices must not be negative")
	}
	s.catalog.Upsert(country)
	return nil
}

// DeleteCountry removes a catalog entry.
func (s *AdminService) DeleteCountry(actorID, name string) error {
	if err := s.authorize(actorID); err != nil {
		return err
	}
	if !s.catalog.Delete(name) {
		return fmt.Errorf("country %s: %w", name, models.ErrNotFound)
	}
	return nil
}
