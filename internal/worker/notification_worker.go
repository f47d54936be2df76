package worker

import (
	"context"
	"sync"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"go.uber.org/zap"
)

// NotificationWorker drains the pending notification queue on a fixed
// interval and delivers each message over the transport. A failed
// delivery to one recipient is logged and skipped; it never blocks the
// rest of the batch.
type NotificationWorker struct {
	queue        notify.Queue
	transport    notify.Transport
	ledger       *ledger.Store
	pollInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewNotificationWorker(queue notify.Queue, transport notify.Transport, ledgerStore *ledger.Store) *NotificationWorker {
	return &NotificationWorker{
		queue:        queue,
		transport:    transport,
		ledger:       ledgerStore,
		pollInterval: 10 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *NotificationWorker) WithPollInterval(interval time.Duration) *NotificationWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// Start blocks and drains the queue at the configured interval.
func (w *NotificationWorker) Start(ctx context.Context) {
	zap.L().Info("notification worker starting", zap.Duration("interval", w.pollInterval))
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("notification worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("notification worker stop signal received")
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *NotificationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// DrainOnce processes a single poll tick immediately. Useful for tests
// and manual triggering.
func (w *NotificationWorker) DrainOnce(ctx context.Context) {
	w.drainOnce(ctx)
}

func (w *NotificationWorker) drainOnce(ctx context.Context) {
	msgs, err := w.queue.Drain(ctx)
	if err != nil {
		observability.IncrementWorkerRun("notification", "failed")
		zap.L().Error("notification queue drain failed", zap.Error(err))
		return
	}
	for _, msg := range msgs {
		if msg.Recipient != "" {
			w.deliver(ctx, msg.Recipient, msg.Text)
			continue
		}
		for _, id := range w.ledger.AccountIDs() {
			w.deliver(ctx, id, msg.Text)
		}
	}
	observability.IncrementWorkerRun("notification", "success")
}

func (w *NotificationWorker) deliver(ctx context.Context, accountID, text string) {
	if err := w.transport.Send(ctx, accountID, text); err != nil {
		observability.IncrementNotification("failed")
		zap.L().Warn("notification delivery failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return
	}
	observability.IncrementNotification("delivered")
}
