package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService drives a sale request from number submission to final
// settlement. All balance effects go through the ledger's critical
// section; notifications are enqueued after the mutation commits.
type SaleService struct {
	ledger              *ledger.Store
	catalog             *catalog.Catalog
	settings            *policy.SettingsStore
	queue               notify.Queue
	operatorID          string
	refundOnFinalReject bool
}

func NewSaleService(ledgerStore *ledger.Store, cat *catalog.Catalog, settings *policy.SettingsStore, queue notify.Queue, operatorID string) *SaleService {
	return &SaleService{
		ledger:     ledgerStore,
		catalog:    cat,
		settings:   settings,
		queue:      queue,
		operatorID: operatorID,
	}
}

// WithFinalRejectRefund makes a final rejection refund the hold to the
// main balance instead of burning it.
func (s *SaleService) WithFinalRejectRefund(refund bool) *SaleService {
	s.refundOnFinalReject = refund
	return s
}

// SelectCountry starts (or restarts) a sale for the given country.
func (s *SaleService) SelectCountry(ctx context.Context, accountID, country string) (catalog.Country, error) {
	if !s.settings.BotActive() {
		return catalog.Country{}, models.ErrBotInactive
	}
	entry, ok := s.catalog.Get(country)
	if !ok {
		return catalog.Country{}, fmt.Errorf("country %q: %w", country, models.ErrNotFound)
	}
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		if acct.ActiveSale != nil && acct.ActiveSale.State == domain.SaleStateCodeSubmitted {
			return models.ErrInvalidState
		}
		now := time.Now().UTC()
		acct.ActiveSale = &models.SaleRequest{
			State:       domain.SaleStateCountrySelected,
			Country:     entry.Name,
			PriceMicros: entry.SellPriceMicros,
			StartedAt:   now,
			UpdatedAt:   now,
		}
		acct.LastActivity = now
		return nil
	}, accountID)
	if err != nil {
		return catalog.Country{}, err
	}
	observability.IncrementWorkflowTransition("country_selected", "ok")
	return entry, nil
}

// Purchase buys a ready-made account for the chosen country, paid from
// the topup balance. Credential delivery stays with the operator; the
// ledger only records the debit and the purchase count.
func (s *SaleService) Purchase(ctx context.Context, accountID, country string) (catalog.Country, error) {
	if !s.settings.BotActive() {
		return catalog.Country{}, models.ErrBotInactive
	}
	entry, ok := s.catalog.Get(country)
	if !ok {
		return catalog.Country{}, fmt.Errorf("country %q: %w", country, models.ErrNotFound)
	}
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		if acct.TopupMicros < entry.BuyPriceMicros {
			return models.ErrInsufficientFunds
		}
		acct.TopupMicros -= entry.BuyPriceMicros
		acct.AccountsBought++
		acct.LastActivity = time.Now().UTC()
		return nil
	}, accountID)
	if err != nil {
		return catalog.Country{}, err
	}
	observability.IncrementWorkflowTransition("purchased", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"Purchase successful. %s has been deducted from your topup balance for a %s account.",
		entry.BuyPriceMicros, entry.Name))
	s.notify(ctx, s.operatorID, fmt.Sprintf(
		"Purchase order: account %s bought a %s account for %s.",
		accountID, entry.Name, entry.BuyPriceMicros))
	return entry, nil
}

// SubmitNumber validates the number and forwards the sale to the
// operator for approval. Malformed numbers re-prompt without a
// transition; a number found in any account's sold set is rejected.
func (s *SaleService) SubmitNumber(ctx context.Context, accountID, number string) error {
	if !validNumber(number) {
		return models.ErrInvalidNumber
	}
	var price domain.Micros
	var country string
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		req := acct.ActiveSale
		switch {
		case req == nil:
			return models.ErrNoActiveSale
		case req.State == domain.SaleStatePendingApproval:
			return models.ErrStillProcessing
		case req.State != domain.SaleStateCountrySelected:
			return models.ErrInvalidState
		}
		// O(total numbers) scan; first place to index if this scales.
		if tx.NumberSold(number) {
			return models.ErrNumberAlreadySold
		}
		now := time.Now().UTC()
		req.Number = number
		req.State = domain.SaleStatePendingApproval
		req.UpdatedAt = now
		acct.LastActivity = now
		price = req.PriceMicros
		country = req.Country
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("number_submitted", "ok")
	s.notify(ctx, s.operatorID, fmt.Sprintf(
		"Sale approval request: account %s, number %s, country %s, payout %s",
		accountID, number, country, price))
	return nil
}

// SubmitCode records the user's verification code once the operator has
// approved the number. Input arriving before approval is answered with
// a "still processing" error and no state change.
func (s *SaleService) SubmitCode(ctx context.Context, accountID, code string) error {
	var number string
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		req := acct.ActiveSale
		switch {
		case req == nil:
			return models.ErrNoActiveSale
		case req.State == domain.SaleStatePendingApproval,
			req.State == domain.SaleStateCodeSubmitted:
			return models.ErrStillProcessing
		case req.State != domain.SaleStateAwaitingCode:
			return models.ErrInvalidState
		}
		if !validCode(code) {
			return models.ErrInvalidCode
		}
		now := time.Now().UTC()
		req.Code = code
		req.State = domain.SaleStateCodeSubmitted
		req.UpdatedAt = now
		acct.LastActivity = now
		number = req.Number
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("code_submitted", "ok")
	s.notify(ctx, s.operatorID, fmt.Sprintf(
		"Verification code received: account %s, number %s, code %s",
		accountID, number, code))
	return nil
}

// Cancel discards the in-flight sale. Allowed only before the code is
// under operator review; once the hold is credited only the operator
// can move funds.
func (s *SaleService) Cancel(ctx context.Context, accountID string) error {
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct := tx.Account(accountID)
		req := acct.ActiveSale
		if req == nil {
			return models.ErrNoActiveSale
		}
		if req.State == domain.SaleStateCodeSubmitted {
			return models.ErrInvalidState
		}
		acct.ActiveSale = nil
		acct.LastActivity = time.Now().UTC()
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("canceled", "ok")
	return nil
}

// Approve moves a pending sale to the code-entry stage.
func (s *SaleService) Approve(ctx context.Context, accountID string) error {
	var number, country string
	var price domain.Micros
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		req := acct.ActiveSale
		if req == nil || req.State != domain.SaleStatePendingApproval {
			return models.ErrInvalidState
		}
		req.State = domain.SaleStateAwaitingCode
		req.UpdatedAt = time.Now().UTC()
		number, country, price = req.Number, req.Country, req.PriceMicros
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("approved", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"Your request has been approved. Enter the verification code for number %s (%s). Once verified, %s will be added to your balance.",
		number, country, price))
	return nil
}

// Reject terminates a pending sale with no balance effect. An optional
// custom message is delivered instead of the default one.
func (s *SaleService) Reject(ctx context.Context, accountID, message string) error {
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		req := acct.ActiveSale
		if req == nil || req.State != domain.SaleStatePendingApproval {
			return models.ErrInvalidState
		}
		acct.ActiveSale = nil
		acct.LastActivity = time.Now().UTC()
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("rejected", "ok")
	if message == "" {
		message = "Your account sell request has been rejected. Please try again later."
	}
	s.notify(ctx, accountID, message)
	return nil
}

// ConfirmCode is the operator confirming the verification code: the
// SaleRecord is created now (an abandoned request leaves no record),
// the price is credited to hold, and the number becomes globally used.
func (s *SaleService) ConfirmCode(ctx context.Context, accountID string) error {
	var number string
	var price domain.Micros
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		req := acct.ActiveSale
		if req == nil || req.State != domain.SaleStateCodeSubmitted {
			return models.ErrInvalidState
		}
		// Another request carrying the same number may have been
		// confirmed while this one sat in review.
		if tx.NumberSold(req.Number) {
			return models.ErrNumberAlreadySold
		}
		now := time.Now().UTC()
		acct.Sales = append(acct.Sales, &models.SaleRecord{
			ID:          uuid.New(),
			Number:      req.Number,
			PriceMicros: req.PriceMicros,
			Country:     req.Country,
			Status:      domain.SaleStatusProcessing,
			CreatedAt:   now,
		})
		acct.HoldMicros += req.PriceMicros
		acct.SoldNumbers = append(acct.SoldNumbers, req.Number)
		acct.AccountsSold++
		acct.LastActivity = now
		number, price = req.Number, req.PriceMicros
		acct.ActiveSale = nil
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("hold_credited", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"Submission successful. %s has been added to your hold balance for number %s.", price, number))
	s.notify(ctx, s.operatorID, fmt.Sprintf(
		"Final approval required: account %s, number %s, amount %s. The code was correct and the balance is in hold.",
		accountID, number, price))
	return nil
}

// WrongCode sends the user back to the code-entry stage with no balance
// effect.
func (s *SaleService) WrongCode(ctx context.Context, accountID string) error {
	var number string
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		req := acct.ActiveSale
		if req == nil || req.State != domain.SaleStateCodeSubmitted {
			return models.ErrInvalidState
		}
		req.Code = ""
		req.State = domain.SaleStateAwaitingCode
		req.UpdatedAt = time.Now().UTC()
		number = req.Number
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	observability.IncrementWorkflowTransition("wrong_code", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"The verification code for number %s was incorrect. Please try again with the correct code.", number))
	return nil
}

// FinalApprove settles the sale: hold decreases and main increases by
// exactly the record price, atomically with the referral commission. A
// repeated decision on an already-terminal record is a silent no-op.
func (s *SaleService) FinalApprove(ctx context.Context, accountID, number string) error {
	var (
		duplicate  bool
		price      domain.Micros
		referrerID string
		commission domain.Micros
	)
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		rec := acct.SaleByNumber(number)
		if rec == nil {
			return fmt.Errorf("sale record for number %s: %w", number, models.ErrNotFound)
		}
		if rec.Status != domain.SaleStatusProcessing {
			duplicate = true
			return nil
		}
		if acct.HoldMicros < rec.PriceMicros {
			return models.ErrInsufficientFunds
		}
		now := time.Now().UTC()
		acct.HoldMicros -= rec.PriceMicros
		acct.MainMicros += rec.PriceMicros
		rec.Status = domain.SaleStatusSuccessful
		rec.SettledAt = &now
		acct.LastActivity = now
		price = rec.PriceMicros

		if acct.ReferrerID != "" {
			if ref, ok := tx.Lookup(acct.ReferrerID); ok {
				commission = policy.ReferralCommission(rec.PriceMicros)
				ref.MainMicros += commission
				ref.ReferralEarningsMicros += commission
				referrerID = ref.ID
			}
		}
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	if duplicate {
		observability.IncrementDuplicateDecision()
		zap.L().Info("duplicate final approval ignored",
			zap.String("account_id", accountID),
			zap.String("number", number),
		)
		return nil
	}
	observability.IncrementWorkflowTransition("settled", "ok")
	s.notify(ctx, accountID, fmt.Sprintf(
		"Transaction successful. Your sale of number %s has been fully approved and %s moved from hold to your main balance.",
		number, price))
	if referrerID != "" {
		s.notify(ctx, referrerID, fmt.Sprintf(
			"Referral commission earned: %s has been added to your main balance.", commission))
	}
	return nil
}

// FinalReject terminates a held sale. By default the held funds are
// removed without a refund (a policy choice inherited from the
// original operation); WithFinalRejectRefund switches to refunding the
// main balance instead.
func (s *SaleService) FinalReject(ctx context.Context, accountID, number, message string) error {
	var (
		duplicate bool
		price     domain.Micros
	)
	_, err := s.ledger.Update(ctx, func(tx *ledger.Txn) error {
		acct, ok := tx.Lookup(accountID)
		if !ok {
			return models.ErrNotFound
		}
		rec := acct.SaleByNumber(number)
		if rec == nil {
			return fmt.Errorf("sale record for number %s: %w", number, models.ErrNotFound)
		}
		if rec.Status != domain.SaleStatusProcessing {
			duplicate = true
			return nil
		}
		now := time.Now().UTC()
		deduct := rec.PriceMicros
		if acct.HoldMicros < deduct {
			zap.L().Warn("hold balance short at final rejection",
				zap.String("account_id", accountID),
				zap.String("number", number),
			)
			deduct = acct.HoldMicros
		}
		acct.HoldMicros -= deduct
		if s.refundOnFinalReject {
			acct.MainMicros += deduct
		}
		rec.Status = domain.SaleStatusReject
		rec.SettledAt = &now
		acct.LastActivity = now
		price = rec.PriceMicros
		return nil
	}, accountID)
	if err != nil {
		return err
	}
	if duplicate {
		observability.IncrementDuplicateDecision()
		zap.L().Info("duplicate final rejection ignored",
			zap.String("account_id", accountID),
			zap.String("number", number),
		)
		return nil
	}
	observability.IncrementWorkflowTransition("final_rejected", "ok")
	if message == "" {
		message = fmt.Sprintf(
			"Your account sale for number %s was rejected during the final verification stage. %s has been removed from your hold balance.",
			number, price)
	}
	s.notify(ctx, accountID, message)
	return nil
}

func (s *SaleService) notify(ctx context.Context, recipient, text string) {
	if err := s.queue.Enqueue(ctx, notify.Message{Recipient: recipient, Text: text}); err != nil {
		zap.L().Error("enqueue notification failed", zap.String("recipient", recipient), zap.Error(err))
	}
}

func validNumber(number string) bool {
	if len(number) < 7 || len(number) > 14 {
		return false
	}
	return allDigits(number)
}

func validCode(code string) bool {
	if len(code) < 1 || len(code) > 6 {
		return false
	}
	return allDigits(code)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
