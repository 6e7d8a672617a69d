package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpem/internal/config"
	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
	"kalpem/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger(), infrastructure.NoopBusinessMetrics())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func decode(t *testing.T, data []byte) events.WebSocketMessage {
	t.Helper()
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubRegisterSendsConnectMessage(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConnection()
	client := NewClient(hub, conn, "trace-1", testLogger(), DefaultClientOptions())

	require.True(t, hub.Register(client))

	select {
	case raw := <-client.send:
		msg := decode(t, raw)
		assert.Equal(t, events.MessageTypeConnect, msg.Type)
		assert.NotEmpty(t, msg.ID)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, client.ID(), data["client_id"])
	case <-time.After(time.Second):
		t.Fatal("connect message not sent")
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHubNotifySnapshot(t *testing.T) {
	hub := startHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = NewClient(hub, newFakeConnection(), "", testLogger(), DefaultClientOptions())
		require.True(t, hub.Register(clients[i]))
		<-clients[i].send // connect message
	}

	updatedAt := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	hub.NotifySnapshot(context.Background(), &domain.Snapshot{
		ID:      "snap-1",
		Version: 4,
		Records: domain.RecordSet{Records: make([]domain.TrainingRecord, 7)},
		Status:  domain.SourceStatus{Connected: true, Label: domain.StatusOnline, UpdatedAt: updatedAt},
	})

	for _, c := range clients {
		select {
		case raw := <-c.send:
			msg := decode(t, raw)
			assert.Equal(t, events.MessageTypeSnapshotUpdated, msg.Type)
			data := msg.Data.(map[string]interface{})
			assert.Equal(t, "snap-1", data["snapshot_id"])
			assert.Equal(t, float64(4), data["version"])
			assert.Equal(t, float64(7), data["records"])
			assert.Equal(t, domain.StatusOnline, data["status"])
			assert.Equal(t, true, data["connected"])
		case <-time.After(time.Second):
			t.Fatal("snapshot notification not delivered")
		}
	}

	assert.Eventually(t, func() bool {
		return hub.Stats()["messages_sent"].(int64) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestHubNotifySnapshotNil(t *testing.T) {
	hub := startHub(t)
	assert.NotPanics(t, func() { hub.NotifySnapshot(context.Background(), nil) })
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := startHub(t)

	opts := DefaultClientOptions()
	opts.SendBuffer = 1
	slow := NewClient(hub, newFakeConnection(), "", testLogger(), opts)
	require.True(t, hub.Register(slow))
	// The connect message fills the buffer; the next broadcast cannot fit.

	require.NoError(t, hub.Broadcast(context.Background(), events.MessageTypeSnapshotUpdated, nil))

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.Stats()["messages_dropped"].(int64) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	hub.Start()

	client := NewClient(hub, newFakeConnection(), "", testLogger(), DefaultClientOptions())
	require.True(t, hub.Register(client))
	<-client.send

	hub.Stop()
	hub.Stop()

	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.Register(client))
	assert.ErrorIs(t, hub.Broadcast(context.Background(), events.MessageTypeSnapshotUpdated, nil), ErrHubStopped)
	assert.NotPanics(t, func() { hub.Unregister(client) })
}

func TestHubBroadcastQueueFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	hub := NewHub(testLogger(), nil)
	t.Cleanup(hub.Stop)

	for i := 0; i < broadcastQueueSize; i++ {
		require.NoError(t, hub.Broadcast(context.Background(), events.MessageTypeSnapshotUpdated, i))
	}
	assert.ErrorIs(t, hub.Broadcast(context.Background(), events.MessageTypeSnapshotUpdated, "overflow"), ErrQueueFull)
}

func TestClientPumps(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConnection()

	opts := DefaultClientOptions()
	client := NewClient(hub, conn, "", testLogger(), opts)
	require.True(t, hub.Register(client))

	go client.WritePump()
	go client.ReadPump()

	assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, gorilla.TextMessage, conn.messages()[0].Type)
	assert.Eventually(t, func() bool { return conn.limit() == defaultMaxMessageSize }, time.Second, 10*time.Millisecond)

	// Inbound frames are read and ignored.
	conn.inbound <- []byte(`{"type":"heartbeat"}`)

	hub.NotifySnapshot(context.Background(), &domain.Snapshot{ID: "s", Version: 1})
	assert.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 10*time.Millisecond)

	// Closing the connection ends the read pump, which unregisters the client.
	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOptionsFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.WebSocketConfig
		wantPong time.Duration
		wantPing time.Duration
	}{
		{name: "defaults", cfg: config.WebSocketConfig{}, wantPong: 60 * time.Second, wantPing: 54 * time.Second},
		{name: "configured", cfg: config.WebSocketConfig{PongWait: 20 * time.Second, PingPeriod: 10 * time.Second}, wantPong: 20 * time.Second, wantPing: 10 * time.Second},
		{name: "ping not below pong", cfg: config.WebSocketConfig{PongWait: 10 * time.Second, PingPeriod: 30 * time.Second}, wantPong: 10 * time.Second, wantPing: 9 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := OptionsFromConfig(tt.cfg)
			assert.Equal(t, tt.wantPong, opts.PongWait)
			assert.Equal(t, tt.wantPing, opts.PingPeriod)
		})
	}
}

func TestHandlerEndToEnd(t *testing.T) {
	hub := startHub(t)
	handler := NewHandler(hub, config.Default().WebSocket, []string{"http://allowed.example"}, testLogger())

	server := httptest.NewServer(handler)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	t.Run("allowed origin receives notifications", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://allowed.example"}}
		conn, _, err := gorilla.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, events.MessageTypeConnect, decode(t, raw).Type)

		hub.NotifySnapshot(context.Background(), &domain.Snapshot{ID: "live", Version: 2})

		_, raw, err = conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, events.MessageTypeSnapshotUpdated, decode(t, raw).Type)
	})

	t.Run("foreign origin rejected", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.example"}}
		_, resp, err := gorilla.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestWritePumpClosesOnHubStop(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	hub.Start()

	conn := newFakeConnection()
	client := NewClient(hub, conn, "", testLogger(), DefaultClientOptions())
	require.True(t, hub.Register(client))

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit")
	}
	assert.True(t, conn.isClosed())
}
