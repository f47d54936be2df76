package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is one pending notification. An empty Recipient means
// broadcast to every known account.
type Message struct {
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"text"`
}

// Queue holds pending notifications. Drain removes and returns the
// whole queue atomically, so a message is handed to at most one poll
// tick.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	Drain(ctx context.Context) ([]Message, error)
}

// Transport delivers a message to one account over the chat platform.
// The platform itself is an external collaborator; the core only emits
// (account, text) pairs.
type Transport interface {
	Send(ctx context.Context, accountID, text string) error
}

const redisQueueKey = "notify:queue"

// RedisQueue backs the queue with a Redis list. Producers RPush;
// Drain reads and deletes the list in one transaction.
type RedisQueue struct {
	client redis.Cmdable
}

func NewRedisQueue(client redis.Cmdable) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.client.RPush(ctx, redisQueueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Drain(ctx context.Context) ([]Message, error) {
	pipe := q.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, redisQueueKey, 0, -1)
	pipe.Del(ctx, redisQueueKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain notification queue: %w", err)
	}
	raw := rangeCmd.Val()
	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			zap.L().Warn("skipping malformed queued notification", zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MemoryQueue is the in-process fallback used when Redis is not
// configured. Same drain-and-clear semantics.
type MemoryQueue struct {
	mu   sync.Mutex
	msgs []Message
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *MemoryQueue) Drain(ctx context.Context) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.msgs
	q.msgs = nil
	return msgs, nil
}

// LogTransport stands in for the chat platform and just logs outbound
// messages. Useful in development and tests.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, accountID, text string) error {
	zap.L().Info("notification delivered",
		zap.String("account_id", accountID),
		zap.String("text", text),
	)
	return nil
}
