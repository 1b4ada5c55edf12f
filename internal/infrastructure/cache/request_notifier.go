package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/stockrequest"
)

const (
	defaultNoticeChannel = "stock:requests:notices"
	notifierCloseTimeout = 5 * time.Second
)

// RedisRequestNotifier implements stockrequest.Notifier over Redis Pub/Sub.
// Every backend instance subscribes and forwards notices to its own
// connected operator screens.
type RedisRequestNotifier struct {
	client   *redis.Client
	channel  string
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewRedisRequestNotifier creates a notifier on an existing Redis client.
// The caller retains ownership of the client.
func NewRedisRequestNotifier(client *redis.Client, logger *zap.Logger) *RedisRequestNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRequestNotifier{
		client:  client,
		channel: defaultNoticeChannel,
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// Publish broadcasts a notice. Failures are logged and returned but
// callers treat them as non-fatal.
func (n *RedisRequestNotifier) Publish(ctx context.Context, notice stockrequest.Notice) error {
	if notice.Timestamp == 0 {
		notice.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Warn("failed to publish request notice",
			zap.String("request_id", notice.RequestID.String()),
			zap.Error(err))
		return fmt.Errorf("publish notice: %w", err)
	}

	n.logger.Debug("published request notice",
		zap.String("action", string(notice.Action)),
		zap.String("request_id", notice.RequestID.String()))
	return nil
}

// Subscribe blocks, delivering each received notice to fn.
// fn runs on its own goroutine and is recovered on panic.
func (n *RedisRequestNotifier) Subscribe(ctx context.Context, fn func(stockrequest.Notice)) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	n.running = true
	subCtx, cancel := context.WithCancel(ctx)
	n.cancelFn = cancel
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
		n.markDone()
	}()

	pubsub := n.client.Subscribe(subCtx, n.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", n.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("request notice channel closed")
				return nil
			}

			var notice stockrequest.Notice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				n.logger.Error("failed to unmarshal request notice",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			go func(notice stockrequest.Notice) {
				defer func() {
					if r := recover(); r != nil {
						n.logger.Error("panic in notice callback", zap.Any("panic", r))
					}
				}()
				fn(notice)
			}(notice)
		}
	}
}

// Close stops the subscription if one is running.
func (n *RedisRequestNotifier) Close() error {
	n.mu.Lock()
	cancelFn := n.cancelFn
	n.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-n.doneCh:
		case <-time.After(notifierCloseTimeout):
			n.logger.Warn("timeout waiting for notice subscription to stop")
		}
	}
	return nil
}

func (n *RedisRequestNotifier) markDone() {
	n.doneOnce.Do(func() { close(n.doneCh) })
}

var _ stockrequest.Notifier = (*RedisRequestNotifier)(nil)
