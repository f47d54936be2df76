package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"github.com/stretchr/testify/require"
)

const testOperator = "operator-1"

type testEnv struct {
	store       *ledger.Store
	settings    *policy.SettingsStore
	catalog     *catalog.Catalog
	queue       *notify.MemoryQueue
	sales       *SaleService
	withdrawals *WithdrawalService
	referrals   *ReferralService
	admin       *AdminService
}

// newTestEnv wires the full service stack against temp-file storage and
// an in-memory notification queue. The catalog is seeded with one
// country priced at 1.30.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store := ledger.NewStore(ledger.NewFileSnapshotter(filepath.Join(dir, "ledger.json")))
	settings := policy.NewSettingsStore(filepath.Join(dir, "settings.json"))
	cat := catalog.New(filepath.Join(dir, "countries.json"))
	cat.Upsert(catalog.Country{Name: "USA", SellPriceMicros: 1_300_000, BuyPriceMicros: 1_500_000})
	queue := notify.NewMemoryQueue()

	sales := NewSaleService(store, cat, settings, queue, testOperator)
	env := &testEnv{
		store:       store,
		settings:    settings,
		catalog:     cat,
		queue:       queue,
		sales:       sales,
		withdrawals: NewWithdrawalService(store, policy.NewEngine(settings), settings, queue, testOperator),
		referrals:   NewReferralService(store, queue),
		admin:       NewAdminService(testOperator, sales, store, settings, cat, queue),
	}
	return env
}

// sellToHold drives accountID through the whole sale workflow up to the
// hold credit: country, number, operator approval, code, code
// confirmation.
func (env *testEnv) sellToHold(t *testing.T, accountID, number, code string) {
	t.Helper()
	ctx := context.Background()

	_, err := env.sales.SelectCountry(ctx, accountID, "USA")
	require.NoError(t, err)
	require.NoError(t, env.sales.SubmitNumber(ctx, accountID, number))
	require.NoError(t, env.sales.Approve(ctx, accountID))
	require.NoError(t, env.sales.SubmitCode(ctx, accountID, code))
	require.NoError(t, env.sales.ConfirmCode(ctx, accountID))
}

// drain empties the notification queue and returns the messages.
func (env *testEnv) drain(t *testing.T) []notify.Message {
	t.Helper()
	msgs, err := env.queue.Drain(context.Background())
	require.NoError(t, err)
	return msgs
}
