package realtime_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowboard/internal/board"
	"flowboard/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, hub *realtime.Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_PublishReachesOnlyThatUser(t *testing.T) {
	hub := realtime.NewHub([]string{"*"})
	alice, bob := uuid.New(), uuid.New()
	aliceConn := dial(t, hub, alice)
	dial(t, hub, bob)
	require.Eventually(t, func() bool {
		return hub.Connections(alice) == 1 && hub.Connections(bob) == 1
	}, time.Second, 10*time.Millisecond)

	wf := uuid.New()
	hub.Listener()(board.Event{Kind: board.EventChanged, UserID: alice, WorkflowID: wf, Generation: 3})

	msg := readMessage(t, aliceConn)
	assert.Equal(t, "board.changed", msg["type"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, wf.String(), data["workflow_id"])
	assert.Equal(t, float64(3), data["generation"])
}

func TestHub_PingPong(t *testing.T) {
	hub := realtime.NewHub([]string{"*"})
	user := uuid.New()
	conn := dial(t, hub, user)
	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(realtime.Message{Type: "ping"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestHub_RunDisconnectsClients(t *testing.T) {
	hub := realtime.NewHub([]string{"*"})
	user := uuid.New()
	conn := dial(t, hub, user)
	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 0, hub.Connections(user))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := realtime.NewHub([]string{"http://localhost:3000"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, uuid.New())
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEventMessage_Failures(t *testing.T) {
	wf := uuid.New()
	entity := board.DurableID(uuid.New())

	write := realtime.EventMessage(board.Event{
		Kind:       board.EventError,
		WorkflowID: wf,
		Err:        &board.WriteError{Op: "move task", Entity: entity, Err: errors.New("boom")},
	})
	assert.Equal(t, "board.error", write.Type)
	f := write.Data.(realtime.Failure)
	assert.Equal(t, "write", f.Kind)
	assert.Equal(t, "move task", f.Op)
	assert.Equal(t, entity.String(), f.Entity)

	partial := realtime.EventMessage(board.Event{
		Kind: board.EventError,
		Err:  &board.PartialMoveError{Op: "move task", Entity: entity, Step: "compact source column", Err: errors.New("boom")},
	})
	f = partial.Data.(realtime.Failure)
	assert.Equal(t, "partial", f.Kind)
	assert.Equal(t, "compact source column", f.Step)

	load := realtime.EventMessage(board.Event{
		Kind: board.EventError,
		Err:  &board.LoadError{WorkflowID: wf, Err: errors.New("down")},
	})
	assert.Equal(t, "load", load.Data.(realtime.Failure).Kind)
}
