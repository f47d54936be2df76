package service

import (
	"context"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"go.uber.org/zap"
)

// ReferralService handles the start event: lazy account creation and
// the one-time referral link with its signup bonus.
type ReferralService struct {
	ledger *ledger.Store
	queue  notify.Queue
}

func NewReferralService(ledgerStore *ledger.Store, queue notify.Queue) *ReferralService {
	return &ReferralService{ledger: ledgerStore, queue: queue}
}

// Start creates the account on first interaction and, when referrerID
// names an existing account, links it as the referrer. The referrer_id
// is set at most once and the bonus paid exactly once, so a retried
// start event has no further effect.
func (s *ReferralService) Start(ctx context.Context, accountID, referrerID string) (*models.Account, error) {
	var bonusPaid bool
	acct, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		acct.LastActivity = time.Now().UTC()
		if referrerID == "" || referrerID == accountID || acct.ReferrerID != "" {
			return nil
		}
		ref, ok := tx.Lookup(referrerID)
		if !ok {
			return nil
		}
		acct.ReferrerID = referrerID
		if !ref.HasReferral(accountID) {
			ref.Referrals = append(ref.Referrals, accountID)
			ref.MainMicros += policy.SignupBonus
			ref.ReferralEarningsMicros += policy.SignupBonus
			bonusPaid = true
		}
		return nil
	}, accountID)
	if err != nil {
		return nil, err
	}
	if bonusPaid {
		msg := notify.Message{
			Recipient: referrerID,
			Text:      "New referral! A new user joined using your referral link. You earned a 0.04 bonus.",
		}
		if err := s.queue.Enqueue(ctx, msg); err != nil {
			zap.L().Error("enqueue referral notification failed", zap.Error(err))
		}
	}
	return acct, nil
}
