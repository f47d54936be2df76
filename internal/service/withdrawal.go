package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"go.uber.org/zap"
)

// WithdrawalService runs the two-step withdrawal flow. The session
// (method, address) is transient by design: its only durable trace is
// the main -> withdrawal_processing reservation on the ledger.
type WithdrawalService struct {
	ledger     *ledger.Store
	policy     *policy.Engine
	settings   *policy.SettingsStore
	queue      notify.Queue
	operatorID string

	mu       sync.Mutex
	sessions map[string]*models.WithdrawalRequest
}

func NewWithdrawalService(ledgerStore *ledger.Store, engine *policy.Engine, settings *policy.SettingsStore, queue notify.Queue, operatorID string) *WithdrawalService {
	return &WithdrawalService{
		ledger:     ledgerStore,
		policy:     engine,
		settings:   settings,
		queue:      queue,
		operatorID: operatorID,
		sessions:   make(map[string]*models.WithdrawalRequest),
	}
}

// SelectMethod enforces the combined per-method minimum before any
// address or amount is collected, then opens a session.
func (s *WithdrawalService) SelectMethod(ctx context.Context, accountID, method string) (domain.Micros, error) {
	if !s.settings.BotActive() {
		return 0, models.ErrBotInactive
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if !policy.KnownMethod(method) {
		return 0, fmt.Errorf("withdrawal method %q: %w", method, models.ErrNotFound)
	}
	acct := s.ledger.GetOrCreate(ctx, accountID)
	minimum := s.policy.CombinedMinimum(accountID, acct.MainMicros, method)
	if acct.MainMicros < minimum {
		return minimum, fmt.Errorf("minimum withdrawal is %s: %w", minimum, models.ErrBelowMinimum)
	}
	s.mu.Lock()
	s.sessions[accountID] = &models.WithdrawalRequest{
		State:  domain.WithdrawStateAwaitingAddress,
		Method: method,
	}
	s.mu.Unlock()
	return minimum, nil
}

// SubmitAddress records the destination address.
func (s *WithdrawalService) SubmitAddress(ctx context.Context, accountID, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("empty address: %w", models.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[accountID]
	if !ok {
		return models.ErrNoActiveWithdrawal
	}
	if session.State != domain.WithdrawStateAwaitingAddress {
		return models.ErrInvalidState
	}
	session.Address = address
	session.State = domain.WithdrawStateAwaitingAmount
	return nil
}

// SubmitAmount validates the amount against the platform floor and the
// main balance, then atomically reserves the funds. Any rejection
// discards the session, returning the flow to its entry point.
func (s *WithdrawalService) SubmitAmount(ctx context.Context, accountID string, amount domain.Micros) error {
	s.mu.Lock()
	session, ok := s.sessions[accountID]
	if !ok {
		s.mu.Unlock()
		return models.ErrNoActiveWithdrawal
	}
	if session.State != domain.WithdrawStateAwaitingAmount {
		s.mu.Unlock()
		return models.ErrInvalidState
	}
	delete(s.sessions, accountID)
	s.mu.Unlock()

	if amount < policy.WithdrawalFloor {
		return fmt.Errorf("minimum withdrawal is %s: %w", policy.WithdrawalFloor, models.ErrBelowMinimum)
	}
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		if amount > acct.MainMicros {
			return models.ErrInsufficientFunds
		}
		acct.MainMicros -= amount
		acct.WithdrawalProcessingMicros += amount
		acct.LastActivity = time.Now().UTC()
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("withdrawal_reserved", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"Withdrawal processing: %s via %s to %s. Please wait while we process your request.",
		amount, session.Method, session.Address))
	s.notify(ctx, s.operatorID, fmt.Sprintf(
		"Withdrawal request: account %s, %s via %s to %s",
		accountID, amount, session.Method, session.Address))
	return nil
}

// Cancel discards the in-flight withdrawal session.
func (s *WithdrawalService) Cancel(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[accountID]; !ok {
		return models.ErrNoActiveWithdrawal
	}
	delete(s.sessions, accountID)
	return nil
}

func (s *WithdrawalService) notify(ctx context.Context, recipient, text string) {
	if err := s.queue.Enqueue(ctx, notify.Message{Recipient: recipient, Text: text}); err != nil {
		zap.L().Error("enqueue notification failed", zap.String("recipient", recipient), zap.Error(err))
	}
}
