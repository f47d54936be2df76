package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	mu       sync.Mutex
	sent     []notify.Message
	failFor  string
	failWith error
}

func (c *captureTransport) Send(ctx context.Context, accountID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if accountID == c.failFor {
		return c.failWith
	}
	c.sent = append(c.sent, notify.Message{Recipient: accountID, Text: text})
	return nil
}

func (c *captureTransport) messages() []notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Message(nil), c.sent...)
}

func newTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	return ledger.NewStore(ledger.NewFileSnapshotter(path))
}

func TestNotificationWorker_DeliversDirectMessages(t *testing.T) {
	ctx := context.Background()
	queue := notify.NewMemoryQueue()
	transport := &captureTransport{}
	worker := NewNotificationWorker(queue, transport, newTestLedger(t))

	require.NoError(t, queue.Enqueue(ctx, notify.Message{Recipient: "acct-1", Text: "hello"}))
	require.NoError(t, queue.Enqueue(ctx, notify.Message{Recipient: "acct-2", Text: "world"}))

	worker.DrainOnce(ctx)

	msgs := transport.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "acct-1", msgs[0].Recipient)
	assert.Equal(t, "world", msgs[1].Text)

	// The queue is empty after a drain; a second tick delivers nothing.
	worker.DrainOnce(ctx)
	assert.Len(t, transport.messages(), 2)
}

func TestNotificationWorker_BroadcastFansOut(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	store.GetOrCreate(ctx, "acct-1")
	store.GetOrCreate(ctx, "acct-2")
	store.GetOrCreate(ctx, "acct-3")

	queue := notify.NewMemoryQueue()
	transport := &captureTransport{}
	worker := NewNotificationWorker(queue, transport, store)

	require.NoError(t, queue.Enqueue(ctx, notify.Message{Text: "maintenance tonight"}))
	worker.DrainOnce(ctx)

	msgs := transport.messages()
	require.Len(t, msgs, 3)
	for _, msg := range msgs {
		assert.Equal(t, "maintenance tonight", msg.Text)
	}
}

func TestNotificationWorker_SkipsFailedRecipient(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	store.GetOrCreate(ctx, "acct-1")
	store.GetOrCreate(ctx, "acct-2")

	queue := notify.NewMemoryQueue()
	transport := &captureTransport{failFor: "acct-1", failWith: errors.New("blocked")}
	worker := NewNotificationWorker(queue, transport, store)

	require.NoError(t, queue.Enqueue(ctx, notify.Message{Text: "hello"}))
	worker.DrainOnce(ctx)

	msgs := transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "acct-2", msgs[0].Recipient)
}
