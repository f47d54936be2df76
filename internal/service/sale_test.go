package service

import (
	"context"
	"testing"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSale_EndToEndWithReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Referrer joins first, then the seller joins through their link.
	_, err := env.referrals.Start(ctx, "referrer", "")
	require.NoError(t, err)
	_, err = env.referrals.Start(ctx, "seller", "referrer")
	require.NoError(t, err)

	env.sellToHold(t, "seller", "5551234567", "482913")

	seller, ok := env.store.Get("seller")
	require.True(t, ok)
	assert.EqualValues(t, 1_300_000, seller.HoldMicros)
	assert.EqualValues(t, 0, seller.MainMicros)
	assert.Equal(t, 1, seller.AccountsSold)
	assert.Nil(t, seller.ActiveSale)
	require.Len(t, seller.Sales, 1)
	assert.Equal(t, domain.SaleStatusProcessing, seller.Sales[0].Status)

	require.NoError(t, env.sales.FinalApprove(ctx, "seller", "5551234567"))

	seller, _ = env.store.Get("seller")
	assert.EqualValues(t, 0, seller.HoldMicros)
	assert.EqualValues(t, 1_300_000, seller.MainMicros)
	assert.Equal(t, domain.SaleStatusSuccessful, seller.Sales[0].Status)
	require.NotNil(t, seller.Sales[0].SettledAt)

	// Referrer got the 0.04 signup bonus plus 3% of 1.30.
	referrer, _ := env.store.Get("referrer")
	assert.EqualValues(t, 40_000+39_000, referrer.MainMicros)
	assert.EqualValues(t, 40_000+39_000, referrer.ReferralEarningsMicros)
}

func TestSale_FinalApproveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sellToHold(t, "seller", "5551234567", "482913")
	require.NoError(t, env.sales.FinalApprove(ctx, "seller", "5551234567"))

	// The repeated decision must not settle twice.
	require.NoError(t, env.sales.FinalApprove(ctx, "seller", "5551234567"))

	seller, _ := env.store.Get("seller")
	assert.EqualValues(t, 1_300_000, seller.MainMicros)
	assert.EqualValues(t, 0, seller.HoldMicros)
}

func TestSale_FinalRejectBurnsHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sellToHold(t, "seller", "5551234567", "482913")
	require.NoError(t, env.sales.FinalReject(ctx, "seller", "5551234567", ""))

	seller, _ := env.store.Get("seller")
	assert.EqualValues(t, 0, seller.HoldMicros)
	assert.EqualValues(t, 0, seller.MainMicros)
	assert.Equal(t, domain.SaleStatusReject, seller.Sales[0].Status)

	// Repeated rejection is a no-op.
	require.NoError(t, env.sales.FinalReject(ctx, "seller", "5551234567", ""))
	seller, _ = env.store.Get("seller")
	assert.EqualValues(t, 0, seller.MainMicros)
}

func TestSale_FinalRejectWithRefund(t *testing.T) {
	env := newTestEnv(t)
	env.sales.WithFinalRejectRefund(true)
	ctx := context.Background()

	env.sellToHold(t, "seller", "5551234567", "482913")
	require.NoError(t, env.sales.FinalReject(ctx, "seller", "5551234567", ""))

	seller, _ := env.store.Get("seller")
	assert.EqualValues(t, 0, seller.HoldMicros)
	assert.EqualValues(t, 1_300_000, seller.MainMicros)
	assert.Equal(t, domain.SaleStatusReject, seller.Sales[0].Status)
}

func TestSale_NumberUniqueAcrossAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sellToHold(t, "seller-1", "5551234567", "482913")

	_, err := env.sales.SelectCountry(ctx, "seller-2", "USA")
	require.NoError(t, err)
	err = env.sales.SubmitNumber(ctx, "seller-2", "5551234567")
	assert.ErrorIs(t, err, models.ErrNumberAlreadySold)
}

func TestSale_ConfirmCodeRechecksNumberUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Both sellers submit the same number before either is confirmed,
	// so the submission-time uniqueness check passes for both.
	for _, seller := range []string{"seller-1", "seller-2"} {
		_, err := env.sales.SelectCountry(ctx, seller, "USA")
		require.NoError(t, err)
		require.NoError(t, env.sales.SubmitNumber(ctx, seller, "5551234567"))
		require.NoError(t, env.sales.Approve(ctx, seller))
		require.NoError(t, env.sales.SubmitCode(ctx, seller, "482913"))
	}

	require.NoError(t, env.sales.ConfirmCode(ctx, "seller-1"))
	err := env.sales.ConfirmCode(ctx, "seller-2")
	assert.ErrorIs(t, err, models.ErrNumberAlreadySold)

	// The losing request credits nothing and leaves no sale record.
	second, _ := env.store.Get("seller-2")
	assert.EqualValues(t, 0, second.HoldMicros)
	assert.Empty(t, second.Sales)
	assert.Zero(t, second.AccountsSold)
}

func TestSale_NumberValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)

	for _, number := range []string{"555123", "555123456789012", "55512345a7", ""} {
		err := env.sales.SubmitNumber(ctx, "seller", number)
		assert.ErrorIs(t, err, models.ErrInvalidNumber, "number %q", number)
	}

	// Boundary lengths are accepted.
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234"))
}

func TestSale_CodeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))
	require.NoError(t, env.sales.Approve(ctx, "seller"))

	for _, code := range []string{"", "1234567", "12a4"} {
		err := env.sales.SubmitCode(ctx, "seller", code)
		assert.ErrorIs(t, err, models.ErrInvalidCode, "code %q", code)
	}
	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "1"))
}

func TestSale_StillProcessingReplies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))

	// Input while awaiting operator approval is deferred, not applied.
	assert.ErrorIs(t, env.sales.SubmitNumber(ctx, "seller", "5557654321"), models.ErrStillProcessing)
	assert.ErrorIs(t, env.sales.SubmitCode(ctx, "seller", "123456"), models.ErrStillProcessing)

	require.NoError(t, env.sales.Approve(ctx, "seller"))
	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "123456"))
	assert.ErrorIs(t, env.sales.SubmitCode(ctx, "seller", "654321"), models.ErrStillProcessing)
}

func TestSale_CancelRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.sales.Cancel(ctx, "seller"), models.ErrNoActiveSale)

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))
	require.NoError(t, env.sales.Cancel(ctx, "seller"))

	// Once the code is with the operator the request is locked in.
	_, err = env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))
	require.NoError(t, env.sales.Approve(ctx, "seller"))
	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "482913"))
	assert.ErrorIs(t, env.sales.Cancel(ctx, "seller"), models.ErrInvalidState)
}

func TestSale_WrongCodeLoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))
	require.NoError(t, env.sales.Approve(ctx, "seller"))
	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "111111"))

	require.NoError(t, env.sales.WrongCode(ctx, "seller"))
	seller, _ := env.store.Get("seller")
	require.NotNil(t, seller.ActiveSale)
	assert.Equal(t, domain.SaleStateAwaitingCode, seller.ActiveSale.State)
	assert.Empty(t, seller.ActiveSale.Code)

	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "482913"))
	require.NoError(t, env.sales.ConfirmCode(ctx, "seller"))
	seller, _ = env.store.Get("seller")
	assert.EqualValues(t, 1_300_000, seller.HoldMicros)
}

func TestSale_RejectPendingClearsRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))
	env.drain(t)

	require.NoError(t, env.sales.Reject(ctx, "seller", "Number not reachable."))

	seller, _ := env.store.Get("seller")
	assert.Nil(t, seller.ActiveSale)
	assert.Empty(t, seller.Sales)
	assert.EqualValues(t, 0, seller.HoldMicros)

	msgs := env.drain(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "seller", msgs[0].Recipient)
	assert.Equal(t, "Number not reachable.", msgs[0].Text)
}

func TestSale_UnknownCountry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sales.SelectCountry(context.Background(), "seller", "Atlantis")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSale_BotInactiveBlocksEntry(t *testing.T) {
	env := newTestEnv(t)
	env.settings.SetBotActive(false)
	_, err := env.sales.SelectCountry(context.Background(), "seller", "USA")
	assert.ErrorIs(t, err, models.ErrBotInactive)
}

func TestSale_OperatorNotifiedAtEachStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, "seller", "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, "seller", "5551234567"))

	msgs := env.drain(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, testOperator, msgs[0].Recipient)

	require.NoError(t, env.sales.Approve(ctx, "seller"))
	require.NoError(t, env.sales.SubmitCode(ctx, "seller", "482913"))
	require.NoError(t, env.sales.ConfirmCode(ctx, "seller"))

	// Approval notice to the user, code notice to the operator, then
	// hold notice to the user and final-approval prompt to the operator.
	msgs = env.drain(t)
	require.Len(t, msgs, 4)
	assert.Equal(t, "seller", msgs[0].Recipient)
	assert.Equal(t, testOperator, msgs[1].Recipient)
	assert.Equal(t, "seller", msgs[2].Recipient)
	assert.Equal(t, testOperator, msgs[3].Recipient)
}
