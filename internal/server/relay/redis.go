package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "pagecollab:page:"

// RedisBroker implements Broker on redis pub/sub. Each page has its own
// channel; one pattern subscription receives all of them.
type RedisBroker struct {
	client   *redis.Client
	logger   *slog.Logger
	pubsub   *redis.PubSub
	instance string
	mu       sync.Mutex
	closed   bool
}

// NewRedisBroker connects to redisURL (redis://host:port/db)
func NewRedisBroker(ctx context.Context, redisURL, instance string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBrokerWithClient(client, instance, logger), nil
}

// NewRedisBrokerWithClient creates a broker from an existing redis client
func NewRedisBrokerWithClient(client *redis.Client, instance string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client:   client,
		logger:   logger,
		instance: instance,
	}
}

// Publish sends env to the channel of its page
func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	env.Instance = b.instance

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, channelPrefix+env.PageID, data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Subscribe subscribes to all page channels and starts delivering envelopes.
// It returns once the subscription is confirmed.
func (b *RedisBroker) Subscribe(ctx context.Context, fn func(Envelope)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("broker is closed")
	}
	if b.pubsub != nil {
		b.mu.Unlock()
		return fmt.Errorf("already subscribed")
	}
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	b.pubsub = pubsub
	b.mu.Unlock()

	// Дожидаемся подтверждения подписки, иначе ранние сообщения теряются
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe to redis: %w", err)
	}

	go b.receive(ctx, pubsub, fn)
	return nil
}

func (b *RedisBroker) receive(ctx context.Context, pubsub *redis.PubSub, fn func(Envelope)) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("invalid envelope from redis",
					slog.String("channel", msg.Channel),
					slog.Any("error", err))
				continue
			}
			if env.Instance == b.instance {
				continue
			}
			if env.PageID == "" {
				env.PageID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}

			fn(env)
		}
	}
}

// Close closes the subscription and the client
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsub := b.pubsub
	b.mu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("failed to close redis subscription", slog.Any("error", err))
		}
	}
	return b.client.Close()
}
