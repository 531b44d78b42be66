package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxonmc/book-finder/pkg/logger"
)

type reviewPayload struct {
	ReviewID string `json:"review_id"`
	Rating   int    `json:"rating"`
}

func TestNewEvent_Fields(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-7")
	event, err := NewEvent(ctx, "review.created", "book-1", "book", "book-finder", reviewPayload{ReviewID: "r1", Rating: 4})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "review.created", event.EventType)
	assert.Equal(t, "book-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, "corr-7", event.CorrelationID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var payload reviewPayload
	require.NoError(t, event.UnmarshalData(&payload))
	assert.Equal(t, reviewPayload{ReviewID: "r1", Rating: 4}, payload)
}

func TestNewEvent_UnserializablePayload(t *testing.T) {
	_, err := NewEvent(context.Background(), "review.created", "b", "book", "svc", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalEvent(t *testing.T) {
	event, err := NewEvent(context.Background(), "review.voted", "book-9", "book", "book-finder", map[string]int{"helpful_votes": 3})
	require.NoError(t, err)
	event.WithMetadata("origin", "test")

	data, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "test", decoded.Metadata["origin"])

	_, err = UnmarshalEvent([]byte(`{"event_id":"x"}`))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "bookfinder.review.created", Topic("review", "created"))
	assert.Equal(t, "bookfinder.dlq.bookfinder.review.voted", DLQTopic(Topic("review", "voted")))
}
