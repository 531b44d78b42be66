package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	pkgkafka "github.com/saxonmc/book-finder/pkg/kafka"
)

// Broadcaster delivers a payload to the live subscribers of a book.
type Broadcaster interface {
	Broadcast(bookID string, payload []byte)
}

// FeedMessage is the notification pushed to websocket subscribers.
type FeedMessage struct {
	Type         string `json:"type"`
	BookID       string `json:"book_id"`
	ReviewID     string `json:"review_id"`
	HelpfulVotes *int   `json:"helpful_votes,omitempty"`
}

// FeedHandler turns review events into live feed notifications.
type FeedHandler struct {
	hub    Broadcaster
	logger *slog.Logger
}

// NewFeedHandler creates a feed handler broadcasting through hub.
func NewFeedHandler(hub Broadcaster, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{hub: hub, logger: logger}
}

// Handle broadcasts one review event. Unknown event types are skipped.
func (h *FeedHandler) Handle(ctx context.Context, evt *pkgkafka.Event) error {
	switch evt.EventType {
	case TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted, TopicReviewVoted:
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.EventID),
		)
		return nil
	}

	var data ReviewEventData
	if err := evt.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
	}
	if data.BookID == "" {
		return fmt.Errorf("%s event %s has no book_id", evt.EventType, evt.EventID)
	}

	payload, err := json.Marshal(FeedMessage{
		Type:         strings.TrimPrefix(evt.EventType, pkgkafka.TopicPrefix+"."),
		BookID:       data.BookID,
		ReviewID:     data.ReviewID,
		HelpfulVotes: data.HelpfulVotes,
	})
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}

	h.hub.Broadcast(data.BookID, payload)
	return nil
}

// NewFeedConsumer builds the consumer feeding the live review feed. Each
// instance needs its own groupID so every instance sees every event; only
// events produced after startup are delivered.
func NewFeedConsumer(brokers []string, groupID string, hub Broadcaster, store pkgkafka.IdempotencyStore, logger *slog.Logger) *pkgkafka.Consumer {
	handler := NewFeedHandler(hub, logger)
	cfg := pkgkafka.ConsumerConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topics:      ReviewTopics(),
		StartOffset: kafka.LastOffset,
		EnableDLQ:   true,
	}
	return pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), logger)
}
