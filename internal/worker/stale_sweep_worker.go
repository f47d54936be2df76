package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"go.uber.org/zap"
)

// StaleSweepWorker periodically reports sale requests that have been
// waiting on the operator beyond a threshold. It never cancels or
// mutates anything: the operator stays the single actor driving
// liveness.
type StaleSweepWorker struct {
	ledger     *ledger.Store
	queue      notify.Queue
	operatorID string
	interval   time.Duration
	maxAge     time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewStaleSweepWorker(ledgerStore *ledger.Store, queue notify.Queue, operatorID string) *StaleSweepWorker {
	return &StaleSweepWorker{
		ledger:     ledgerStore,
		queue:      queue,
		operatorID: operatorID,
		interval:   time.Hour,
		maxAge:     24 * time.Hour,
		stopCh:     make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *StaleSweepWorker) WithInterval(interval time.Duration) *StaleSweepWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithMaxAge updates the age beyond which a pending request is
// reported.
func (w *StaleSweepWorker) WithMaxAge(maxAge time.Duration) *StaleSweepWorker {
	if maxAge > 0 {
		w.maxAge = maxAge
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *StaleSweepWorker) Start(ctx context.Context) {
	zap.L().Info("stale sweep worker starting",
		zap.Duration("interval", w.interval),
		zap.Duration("max_age", w.maxAge),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("stale sweep worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("stale sweep worker stop signal received")
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *StaleSweepWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *StaleSweepWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// SweepOnce runs a single sweep immediately.
func (w *StaleSweepWorker) SweepOnce(ctx context.Context) {
	w.sweepOnce(ctx)
}

type staleRequest struct {
	accountID string
	state     string
	number    string
	age       time.Duration
}

func (w *StaleSweepWorker) sweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.maxAge)
	var stale []staleRequest
	w.ledger.View(func(tx *ledger.Txn) {
		tx.Range(func(id string, acct *models.Account) bool {
			req := acct.ActiveSale
			if req == nil {
				return true
			}
			waiting := req.State == domain.SaleStatePendingApproval ||
				req.State == domain.SaleStateCodeSubmitted
			if waiting && req.UpdatedAt.Before(cutoff) {
				stale = append(stale, staleRequest{
					accountID: id,
					state:     req.State,
					number:    req.Number,
					age:       time.Since(req.UpdatedAt),
				})
			}
			return true
		})
	})

	observability.SetStalePending(len(stale))
	for _, req := range stale {
		text := fmt.Sprintf(
			"Stale sale request: account %s, number %s, state %s, waiting %s",
			req.accountID, req.number, req.state, req.age.Round(time.Minute))
		if err := w.queue.Enqueue(ctx, notify.Message{Recipient: w.operatorID, Text: text}); err != nil {
			observability.IncrementWorkerRun("stale_sweep", "failed")
			zap.L().Error("enqueue stale report failed", zap.Error(err))
			return
		}
	}
	observability.IncrementWorkerRun("stale_sweep", "success")
}
