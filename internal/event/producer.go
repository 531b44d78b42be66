package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saxonmc/book-finder/internal/domain"
	pkgkafka "github.com/saxonmc/book-finder/pkg/kafka"
)

// Kafka topics for review domain events. The topic doubles as the event type.
var (
	TopicReviewCreated = pkgkafka.Topic("review", "created")
	TopicReviewUpdated = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted = pkgkafka.Topic("review", "deleted")
	TopicReviewVoted   = pkgkafka.Topic("review", "voted")
)

// ReviewTopics lists every topic the feed consumer subscribes to.
func ReviewTopics() []string {
	return []string{TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted, TopicReviewVoted}
}

// Events are keyed by book so a book's events stay ordered on one partition.
const (
	AggregateTypeBook = "book"
	SourceBookFinder  = "book-finder"
)

// ReviewEventData is the payload shared by all review events.
type ReviewEventData struct {
	ReviewID     string `json:"review_id"`
	BookID       string `json:"book_id"`
	UserID       string `json:"user_id"`
	Rating       int    `json:"rating,omitempty"`
	HelpfulVotes *int   `json:"helpful_votes,omitempty"`
}

// Publisher announces committed review changes.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, reviewID, bookID, userID string) error
	PublishReviewVoted(ctx context.Context, voterID string, result *domain.VoteResult) error
}

type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review events to Kafka.
type Producer struct {
	kafka  eventWriter
	logger *slog.Logger
}

// NewProducer creates a review event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return newProducer(kafka, logger)
}

func newProducer(w eventWriter, logger *slog.Logger) *Producer {
	return &Producer{kafka: w, logger: logger}
}

func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, ReviewEventData{
		ReviewID: review.ID,
		BookID:   review.BookID,
		UserID:   review.UserID,
		Rating:   review.Rating,
	})
}

func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, ReviewEventData{
		ReviewID: review.ID,
		BookID:   review.BookID,
		UserID:   review.UserID,
		Rating:   review.Rating,
	})
}

func (p *Producer) PublishReviewDeleted(ctx context.Context, reviewID, bookID, userID string) error {
	return p.publish(ctx, TopicReviewDeleted, ReviewEventData{
		ReviewID: reviewID,
		BookID:   bookID,
		UserID:   userID,
	})
}

func (p *Producer) PublishReviewVoted(ctx context.Context, voterID string, result *domain.VoteResult) error {
	votes := result.HelpfulVotes
	return p.publish(ctx, TopicReviewVoted, ReviewEventData{
		ReviewID:     result.ReviewID,
		BookID:       result.BookID,
		UserID:       voterID,
		HelpfulVotes: &votes,
	})
}

func (p *Producer) publish(ctx context.Context, topic string, data ReviewEventData) error {
	evt, err := pkgkafka.NewEvent(ctx, topic, data.BookID, AggregateTypeBook, SourceBookFinder, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("event_id", evt.EventID),
		slog.String("review_id", data.ReviewID),
		slog.String("book_id", data.BookID),
	)
	return nil
}

// NoopPublisher discards events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NoopPublisher) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NoopPublisher) PublishReviewDeleted(context.Context, string, string, string) error {
	return nil
}
func (NoopPublisher) PublishReviewVoted(context.Context, string, *domain.VoteResult) error {
	return nil
}
