package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beadcsv/internal/shared/testutil"
	"beadcsv/pkg/contracts/events"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub, nil))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHubBroadcast(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	first := dial(t, hub)
	second := dial(t, hub)

	var hello events.Connected
	readJSON(t, first, &hello)
	assert.Equal(t, events.TypeConnection, hello.Type)
	assert.Equal(t, events.ProtocolName, hello.Protocol)
	assert.NotEmpty(t, hello.ClientID)
	readJSON(t, second, &hello)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(events.DocumentEvent{
		Type:       events.TypeDocumentMerged,
		DocumentID: "doc-1",
		SourceID:   "doc-2",
		Samples:    6,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	for _, conn := range []*websocket.Conn{first, second} {
		var ev events.DocumentEvent
		readJSON(t, conn, &ev)
		assert.Equal(t, events.TypeDocumentMerged, ev.Type)
		assert.Equal(t, "doc-1", ev.DocumentID)
		assert.Equal(t, "doc-2", ev.SourceID)
		assert.Equal(t, 6, ev.Samples)
	}

	assert.True(t, handler.ContainsMessage("Client registered"))
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)
	var hello events.Connected
	readJSON(t, conn, &hello)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	conn := dial(t, hub)
	var hello events.Connected
	readJSON(t, conn, &hello)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPublishWithoutStartIsDropped(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(events.DocumentEvent{Type: events.TypeDocumentLoaded})
	assert.Empty(t, hub.broadcast)
}

func TestHandlerRejectsPlainHTTP(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	rec := httptest.NewRecorder()
	NewHandler(hub, nil).ServeHTTP(rec, httptest.NewRequest("GET", "/api/events", nil))
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, hub.ClientCount())
}
