package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"go.uber.org/zap"
)

// Store owns every Account. All mutations run inside one global
// critical section so that cross-account transfers (referral bonus,
// referral commission) are atomic with the triggering mutation.
//
// After each committed mutation the full ledger is snapshotted. The
// snapshot bytes are captured under the lock but written outside it, so
// a slow persistence backend never blocks the ledger. Persistence is
// best effort: a failed write keeps the in-memory state, logs, and lets
// the next successful write recover durability.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	seq      uint64

	persistMu sync.Mutex
	persisted uint64
	snapshots Snapshotter
}

// Txn gives a mutation access to live account records. It is only
// valid inside the Update callback.
type Txn struct {
	s *Store
}

// NewStore creates an empty ledger backed by snap.
func NewStore(snap Snapshotter) *Store {
	return &Store{
		accounts:  make(map[string]*models.Account),
		snapshots: snap,
	}
}

// Load replaces the in-memory state with the latest snapshot. A missing
// snapshot is an empty ledger.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	accounts := make(map[string]*models.Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	return nil
}

// GetOrCreate returns a copy of the account, initializing zeroed pools
// on first access. It never fails.
func (s *Store) GetOrCreate(ctx context.Context, id string) *models.Account {
	acct, _ := s.Update(ctx, func(tx *Txn) error {
		return nil
	}, id)
	return acct
}

// Get returns a copy of the account without creating it.
func (s *Store) Get(id string) (*models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// Exists reports whether the account has been seen before.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok
}

// AccountIDs returns every known account identifier, sorted.
func (s *Store) AccountIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Update runs fn inside the global critical section and, on success,
// persists a snapshot before returning. The returned account is a copy
// of primaryID after the mutation. If fn returns an error the ledger is
// left untouched only insofar as fn did not mutate anything: mutations
// must validate before writing.
func (s *Store) Update(ctx context.Context, fn func(tx *Txn) error, primaryID string) (*models.Account, error) {
	s.mu.Lock()
	tx := &Txn{s: s}
	primary := tx.Account(primaryID)
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	result := primary.Clone()
	s.seq++
	seq := s.seq
	data, err := json.Marshal(s.accounts)
	s.mu.Unlock()

	if err != nil {
		observability.IncrementSnapshotFailure()
		zap.L().Error("ledger snapshot encode failed", zap.Error(err))
		return result, nil
	}
	s.persist(ctx, seq, data)
	return result, nil
}

// View runs fn with read access under the critical section. fn must not
// retain or mutate accounts.
func (s *Store) View(fn func(tx *Txn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Txn{s: s})
}

func (s *Store) persist(ctx context.Context, seq uint64, data []byte) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	// A newer snapshot already reached the backend.
	if seq <= s.persisted {
		return
	}
	if err := s.snapshots.Save(ctx, data); err != nil {
		observability.IncrementSnapshotFailure()
		zap.L().Error("ledger snapshot write failed", zap.Uint64("seq", seq), zap.Error(err))
		return
	}
	s.persisted = seq
}

// Account returns the live record for id, creating it when missing.
func (tx *Txn) Account(id string) *models.Account {
	acct, ok := tx.s.accounts[id]
	if !ok {
		acct = models.NewAccount(id)
		tx.s.accounts[id] = acct
	}
	return acct
}

// Lookup returns the live record for id without creating it.
func (tx *Txn) Lookup(id string) (*models.Account, bool) {
	acct, ok := tx.s.accounts[id]
	return acct, ok
}

// Range visits every account until fn returns false.
func (tx *Txn) Range(fn func(id string, acct *models.Account) bool) {
	for id, acct := range tx.s.accounts {
		if !fn(id, acct) {
			return
		}
	}
}

// NumberSold reports whether number exists in any account's sold set.
func (tx *Txn) NumberSold(number string) bool {
	sold := false
	tx.Range(func(_ string, acct *models.Account) bool {
		if acct.HasSoldNumber(number) {
			sold = true
			return false
		}
		return true
	})
	return sold
}
