package policy

import (
	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/shopspring/decimal"
)

// Per-method minimum withdrawal amounts. Unknown methods fall back to
// 1.00.
var methodMinimums = map[string]domain.Micros{
	"bank":    5_000_000,
	"paypal":  2_000_000,
	"upi":     200_000,
	"cashapp": 1_000_000_000,
	"bitcoin": 100_000_000,
	"bep20":   20_000_000,
	"trc20":   70_000_000,
	"binance": 25_000_000,
	"payeer":  30_000_000,
}

const (
	defaultMethodMinimum domain.Micros = 1_000_000

	// Balances within one cent of exactly 1.00 get a raised 3.00
	// minimum, an anti-drain rule for that balance tier.
	dollarTierBalance   domain.Micros = 1_000_000
	dollarTierTolerance domain.Micros = 10_000
	dollarTierMinimum   domain.Micros = 3_000_000

	// WithdrawalFloor is the platform-wide minimum amount accepted at
	// the final withdrawal step, independent of method minimums.
	WithdrawalFloor domain.Micros = 10_000_000

	// SignupBonus is paid to the referrer once per new referral.
	SignupBonus domain.Micros = 40_000 // 0.04
)

// commissionRate is the referrer's cut of each settled sale.
var commissionRate = decimal.NewFromFloat(0.03)

// KnownMethod reports whether method has an explicit minimum.
func KnownMethod(method string) bool {
	_, ok := methodMinimums[method]
	return ok
}

// MethodMinimum returns the static minimum for a payment method.
func MethodMinimum(method string) domain.Micros {
	if limit, ok := methodMinimums[method]; ok {
		return limit
	}
	return defaultMethodMinimum
}

// ReferralCommission returns 3% of amount, truncated to micros.
func ReferralCommission(amount domain.Micros) domain.Micros {
	return amount.Mul(commissionRate)
}

// Engine computes withdrawal minimums from the live settings.
type Engine struct {
	settings *SettingsStore
}

func NewEngine(settings *SettingsStore) *Engine {
	return &Engine{settings: settings}
}

// UserMinimum returns the per-account minimum: a custom override if one
// exists, the raised tier minimum near a 1.00 balance, otherwise the
// global limit.
func (e *Engine) UserMinimum(accountID string, balance domain.Micros) domain.Micros {
	if limit, ok := e.settings.UserLimit(accountID); ok {
		return limit
	}
	diff := balance - dollarTierBalance
	if diff < 0 {
		diff = -diff
	}
	if diff < dollarTierTolerance {
		return dollarTierMinimum
	}
	return e.settings.GlobalLimit()
}

// CombinedMinimum is the larger of the method and user minimums.
func (e *Engine) CombinedMinimum(accountID string, balance domain.Micros, method string) domain.Micros {
	methodMin := MethodMinimum(method)
	userMin := e.UserMinimum(accountID, balance)
	if methodMin > userMin {
		return methodMin
	}
	return userMin
}
