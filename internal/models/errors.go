package models

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit exceeds the
	// available pool.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNumberAlreadySold is returned when a submitted number exists
	// in any account's sold set.
	ErrNumberAlreadySold = errors.New("number already sold")

	// ErrInvalidNumber is returned for numbers that are not 7-14 digits.
	ErrInvalidNumber = errors.New("number must be 7 to 14 digits")

	// ErrInvalidCode is returned for verification codes that are not
	// 1-6 digits.
	ErrInvalidCode = errors.New("verification code must be 1 to 6 digits")

	// ErrStillProcessing is returned when user input arrives before the
	// operator has acted on the current stage.
	ErrStillProcessing = errors.New("request is still being processed")

	// ErrInvalidState is returned when an action does not apply to the
	// current workflow state.
	ErrInvalidState = errors.New("action not valid in current state")

	// ErrNoActiveSale is returned when a sale step arrives with no sale
	// in flight.
	ErrNoActiveSale = errors.New("no sale in progress")

	// ErrNoActiveWithdrawal is returned when a withdrawal step arrives
	// with no withdrawal in flight.
	ErrNoActiveWithdrawal = errors.New("no withdrawal in progress")

	// ErrBelowMinimum is returned when the balance or amount is under
	// the applicable withdrawal minimum.
	ErrBelowMinimum = errors.New("below minimum withdrawal")

	// ErrAccessDenied is returned for admin actions by a non-operator.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned for references to unknown accounts,
	// countries or sale records.
	ErrNotFound = errors.New("not found")

	// ErrBotInactive is returned when user workflows are suspended by
	// the operator.
	ErrBotInactive = errors.New("service is temporarily unavailable")
)
