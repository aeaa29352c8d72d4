package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingAcker struct {
	order *[]string
}

func (a recordingAcker) WriteJSON(v any) error {
	m := v.(map[string]string)
	*a.order = append(*a.order, "ack:"+m["envelope_id"])
	return nil
}

func TestHandleFrame_AcksBeforeDispatch(t *testing.T) {
	var order []string
	r := &SocketRunner{
		handle: func(ctx context.Context, p Payload) {
			order = append(order, "handle:"+p.Event.Type)
		},
		logger: testLogger(),
	}
	frame := `{"envelope_id":"e1","type":"events_api","payload":{"type":"event_callback","event":{"type":"message","text":"hi","channel":"C1","ts":"1.1"}}}`
	if err := r.handleFrame(context.Background(), recordingAcker{&order}, []byte(frame)); err != nil {
		t.Fatalf("handle frame: %v", err)
	}
	if len(order) != 2 || order[0] != "ack:e1" || order[1] != "handle:message" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestHandleFrame_DisconnectAndHello(t *testing.T) {
	var order []string
	r := &SocketRunner{logger: testLogger()}
	if err := r.handleFrame(context.Background(), recordingAcker{&order}, []byte(`{"type":"hello"}`)); err != nil {
		t.Fatalf("hello: %v", err)
	}
	err := r.handleFrame(context.Background(), recordingAcker{&order}, []byte(`{"type":"disconnect","reason":"refresh_requested"}`))
	if !errors.Is(err, errReconnect) {
		t.Fatalf("expected reconnect, got %v", err)
	}
	if err := r.handleFrame(context.Background(), recordingAcker{&order}, []byte(`garbage`)); err != nil {
		t.Fatalf("garbage frames must be skipped: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("nothing should be acked: %v", order)
	}
}

func TestSocketRunner_EndToEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	acked := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "hello"})
		_ = conn.WriteJSON(map[string]any{
			"envelope_id": "env-1",
			"type":        "events_api",
			"payload": map[string]any{
				"type":  "event_callback",
				"event": map[string]any{"type": "message", "text": "<@UBOT> hi", "channel": "C1", "ts": "1.2"},
			},
		})
		var ack map[string]string
		if err := conn.ReadJSON(&ack); err == nil {
			acked <- ack["envelope_id"]
		}
		// keep the connection open until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []Payload
	handled := make(chan struct{}, 1)
	r := &SocketRunner{
		open:   func(context.Context) (string, error) { return "ws" + strings.TrimPrefix(srv.URL, "http"), nil },
		dialer: websocket.DefaultDialer,
		handle: func(ctx context.Context, p Payload) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
			handled <- struct{}{}
		},
		logger:         testLogger(),
		reconnectDelay: 10 * time.Millisecond,
	}
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case id := <-acked:
		if id != "env-1" {
			t.Fatalf("unexpected ack %q", id)
		}
	case <-ctx.Done():
		t.Fatalf("no ack received")
	}
	select {
	case <-handled:
	case <-ctx.Done():
		t.Fatalf("payload not handled")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	raw, _ := json.Marshal(got[0])
	if got[0].Event == nil || got[0].Event.Text != "<@UBOT> hi" {
		t.Fatalf("unexpected payload: %s", raw)
	}
}
