// api/audit/queue.go
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
)

// Enqueuer hands a decision record to the asynchronous delivery path.
type Enqueuer interface {
	Enqueue(ctx context.Context, entry DecisionLog) error
}

// RedisQueue produces decision records onto a redis stream for the consumer
// to index durably.
type RedisQueue struct {
	client *redis.Client
	stream string
}

func NewRedisQueue(client *redis.Client, stream string) *RedisQueue {
	return &RedisQueue{client: client, stream: stream}
}

func (q *RedisQueue) Enqueue(ctx context.Context, entry DecisionLog) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"payload": string(raw)},
	}).Err()
}

// ConsumerConfig tunes the stream consumer.
type ConsumerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	MaxRetries    int
	RetryBackoff  time.Duration
	DeadLetterKey string
}

// Consumer drains the decision stream into the durable repository. Records
// that exhaust their retries are parked on a dead-letter list; the consumer
// itself never stops on a delivery failure.
type Consumer struct {
	client *redis.Client
	repo   Repository
	cfg    ConsumerConfig
}

func NewConsumer(client *redis.Client, repo Repository, cfg ConsumerConfig) *Consumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Consumer{client: client, repo: repo, cfg: cfg}
}

// Run blocks until the context is cancelled, delivering stream entries to the
// repository. It creates the consumer group on first use.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	logger.Info("Decision log consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Consumer))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to read decision stream", zap.Error(err))
			time.Sleep(c.cfg.RetryBackoff)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.handle(ctx, message)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, message redis.XMessage) {
	defer c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, message.ID)

	payload, ok := message.Values["payload"].(string)
	if !ok {
		logger.Warn("Dropping malformed decision stream entry", zap.String("messageID", message.ID))
		return
	}

	var entry DecisionLog
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		logger.Warn("Dropping undecodable decision stream entry",
			zap.String("messageID", message.ID), zap.Error(err))
		return
	}

	backoff := c.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if lastErr = c.repo.IndexDecision(ctx, entry); lastErr == nil {
			return
		}
	}

	logger.Error("Decision record exhausted retries, parking on dead letter list",
		zap.String("decisionID", entry.ID), zap.Error(lastErr))
	if c.cfg.DeadLetterKey != "" {
		if err := c.client.LPush(ctx, c.cfg.DeadLetterKey, payload).Err(); err != nil {
			logger.Error("Failed to park decision record", zap.String("decisionID", entry.ID), zap.Error(err))
		}
	}
}
