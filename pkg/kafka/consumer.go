package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// StartOffset applies when the group has no committed offset yet
	// (kafka.FirstOffset or kafka.LastOffset).
	StartOffset  int64
	MinBytes     int
	MaxBytes     int
	MaxRetries   int
	RetryBackoff time.Duration
	EnableDLQ    bool
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MinBytes == 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 10e6
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.StartOffset == 0 {
		c.StartOffset = kafka.FirstOffset
	}
	return c
}

// Consumer reads events for a consumer group across one or more topics.
// Each message is retried with linear backoff; once retries are exhausted it
// is forwarded to the DLQ (when enabled) and committed so the group moves on.
type Consumer struct {
	reader    messageReader
	dlq       deadLetterPublisher
	handler   Handler
	cfg       ConsumerConfig
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewConsumer creates a consumer group reader for cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	cfg = cfg.withDefaults()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		StartOffset: cfg.StartOffset,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})

	var dlq deadLetterPublisher
	if cfg.EnableDLQ {
		dlq = NewDLQProducer(cfg.Brokers, logger)
	}
	return newConsumer(r, dlq, cfg, handler, logger)
}

func newConsumer(r messageReader, dlq deadLetterPublisher, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		dlq:     dlq,
		handler: handler,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.Any("topics", c.cfg.Topics),
		slog.String("group", c.cfg.GroupID),
	)
	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Error("failed to close consumer", slog.String("error", err.Error()))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("group", c.cfg.GroupID))
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Not committed: the message is redelivered after a rebalance or restart.
			c.logger.Error("message left uncommitted",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process handles one message. It returns an error only when the message must
// not be committed: the context ended mid-retry, or the DLQ write failed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	labels := []string{msg.Topic, c.cfg.GroupID}
	consumerMessagesReceived.WithLabelValues(labels...).Inc()
	start := time.Now()
	defer func() {
		consumerProcessingDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	}()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to decode event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		consumerMessagesFailed.WithLabelValues(labels...).Inc()
		return c.deadLetter(ctx, msg, err)
	}

	handlerCtx := extractTraceContext(ctx, &msg)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		lastErr = c.handler(handlerCtx, event)
		if lastErr == nil {
			consumerMessagesProcessed.WithLabelValues(labels...).Inc()
			return nil
		}

		c.logger.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.cfg.MaxRetries),
			slog.String("error", lastErr.Error()),
		)
		if attempt < c.cfg.MaxRetries && !sleepCtx(ctx, time.Duration(attempt)*c.cfg.RetryBackoff) {
			return ctx.Err()
		}
	}

	c.logger.Error("handler failed after all retries",
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("error", lastErr.Error()),
	)
	consumerMessagesFailed.WithLabelValues(labels...).Inc()
	return c.deadLetter(ctx, msg, lastErr)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.dlq == nil {
		return nil
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.cfg.GroupID); err != nil {
		return fmt.Errorf("dead-letter message: %w", err)
	}
	consumerDLQPublished.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()
	return nil
}

// Close closes the reader and the DLQ writer. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
		if c.dlq != nil {
			err = errors.Join(err, c.dlq.Close())
		}
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
