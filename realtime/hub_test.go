package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(RecordEvent(EventRecordApproved, 7, "cat.jpg", "Approved", nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventRecordApproved, ev.Type)
	assert.Equal(t, uint(7), ev.RecordID)
	assert.Equal(t, "cat.jpg", ev.FileName)
	assert.NotZero(t, ev.Timestamp)
}

func TestRecordEvent_CarriesError(t *testing.T) {
	ev := RecordEvent(EventUploadFailed, 3, "a.jpg", "Approved", errors.New("ftp down"))
	assert.Equal(t, "ftp down", ev.Error)
}

type captured struct{ events []Event }

func (c *captured) Broadcast(ev Event) { c.events = append(c.events, ev) }

func TestEmit_NilSafe(t *testing.T) {
	Emit(nil, Event{Type: EventRecordScored})

	c := &captured{}
	Emit(c, Event{Type: EventRecordScored})
	assert.Len(t, c.events, 1)
}

func TestHub_ClientCloseUnregisters(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
