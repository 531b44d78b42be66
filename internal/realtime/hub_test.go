package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newHubServer(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(origins, discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeBook(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, bookID string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + bookID
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesSubscribersOfBook(t *testing.T) {
	hub, srv := newHubServer(t, []string{"*"})

	a := dial(t, srv, "book-1", nil)
	b := dial(t, srv, "book-2", nil)
	require.Eventually(t, func() bool {
		return hub.Subscribers("book-1") == 1 && hub.Subscribers("book-2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("book-1", []byte(`{"type":"review.created"}`))

	_ = a.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := a.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"review.created"}`, string(msg))

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = b.ReadMessage()
	assert.Error(t, err, "subscriber of another book must not receive the message")
}

func TestHub_UnsubscribesOnDisconnect(t *testing.T) {
	hub, srv := newHubServer(t, []string{"*"})

	conn := dial(t, srv, "book-1", nil)
	require.Eventually(t, func() bool { return hub.Subscribers("book-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers("book-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	hub, srv := newHubServer(t, []string{"*"})

	conn := dial(t, srv, "book-1", nil)
	require.Eventually(t, func() bool { return hub.Subscribers("book-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, hub.Subscribers("book-1"))
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	_, srv := newHubServer(t, []string{"https://bookfinder.example"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/book-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, "book-1", http.Header{"Origin": {"https://bookfinder.example"}})
	assert.NotNil(t, conn)
}
