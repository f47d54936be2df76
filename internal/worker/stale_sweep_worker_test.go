package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sweepOperator = "operator-1"

func setActiveSale(t *testing.T, store *ledger.Store, accountID, state string, age time.Duration) {
	t.Helper()
	_, err := store.Update(context.Background(), func(tx *ledger.Txn) error {
		tx.Account(accountID).ActiveSale = &models.SaleRequest{
			State:     state,
			Country:   "USA",
			Number:    "5551234567",
			StartedAt: time.Now().UTC().Add(-age),
			UpdatedAt: time.Now().UTC().Add(-age),
		}
		return nil
	}, accountID)
	require.NoError(t, err)
}

func TestStaleSweepWorker_ReportsOldPendingRequests(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	queue := notify.NewMemoryQueue()

	setActiveSale(t, store, "acct-stale", domain.SaleStatePendingApproval, 48*time.Hour)
	setActiveSale(t, store, "acct-fresh", domain.SaleStatePendingApproval, time.Hour)

	worker := NewStaleSweepWorker(store, queue, sweepOperator).WithMaxAge(24 * time.Hour)
	worker.SweepOnce(ctx)

	msgs, err := queue.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, sweepOperator, msgs[0].Recipient)
	assert.True(t, strings.Contains(msgs[0].Text, "acct-stale"))
}

func TestStaleSweepWorker_IgnoresUserDrivenStates(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	queue := notify.NewMemoryQueue()

	// These states wait on the user, not the operator.
	setActiveSale(t, store, "acct-1", domain.SaleStateCountrySelected, 48*time.Hour)
	setActiveSale(t, store, "acct-2", domain.SaleStateAwaitingCode, 48*time.Hour)

	worker := NewStaleSweepWorker(store, queue, sweepOperator).WithMaxAge(24 * time.Hour)
	worker.SweepOnce(ctx)

	msgs, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStaleSweepWorker_ReportsHeldCodeReviews(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	queue := notify.NewMemoryQueue()

	setActiveSale(t, store, "acct-1", domain.SaleStateCodeSubmitted, 48*time.Hour)

	worker := NewStaleSweepWorker(store, queue, sweepOperator).WithMaxAge(24 * time.Hour)
	worker.SweepOnce(ctx)

	msgs, err := queue.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, strings.Contains(msgs[0].Text, domain.SaleStateCodeSubmitted))
}
