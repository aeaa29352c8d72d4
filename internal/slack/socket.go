package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	envelopeHello      = "hello"
	envelopeDisconnect = "disconnect"
	envelopeEventsAPI  = "events_api"
)

// PayloadHandler must not block on the action pipeline.
type PayloadHandler func(ctx context.Context, p Payload)

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type acker interface {
	WriteJSON(v any) error
}

var errReconnect = errors.New("slack requested reconnect")

// SocketRunner receives events over Socket Mode instead of the HTTP webhook.
type SocketRunner struct {
	open           func(ctx context.Context) (string, error)
	dialer         *websocket.Dialer
	handle         PayloadHandler
	logger         *slog.Logger
	reconnectDelay time.Duration
}

func NewSocketRunner(client *Client, handle PayloadHandler, logger *slog.Logger) *SocketRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketRunner{
		open:           client.socketURL,
		dialer:         websocket.DefaultDialer,
		handle:         handle,
		logger:         logger,
		reconnectDelay: 2 * time.Second,
	}
}

// Run connects and consumes envelopes until ctx is cancelled, reconnecting
// whenever the connection drops or Slack asks for it.
func (r *SocketRunner) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			r.logger.Info("socket mode stopped")
			return nil
		}
		url, err := r.open(ctx)
		if err != nil {
			r.logger.Warn("socket mode open failed", "error", err)
			if !sleepWithContext(ctx, r.reconnectDelay) {
				return nil
			}
			continue
		}
		conn, _, err := r.dialer.DialContext(ctx, url, nil)
		if err != nil {
			r.logger.Warn("socket mode dial failed", "error", err)
			if !sleepWithContext(ctx, r.reconnectDelay) {
				return nil
			}
			continue
		}
		r.logger.Info("socket mode connected")
		err = r.consume(ctx, conn)
		_ = conn.Close()
		switch {
		case errors.Is(err, errReconnect):
			r.logger.Info("socket mode reconnecting")
		case err != nil && ctx.Err() == nil:
			r.logger.Warn("socket mode read failed", "error", err)
		}
	}
}

func (r *SocketRunner) consume(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := r.handleFrame(ctx, conn, raw); err != nil {
			return err
		}
	}
}

// handleFrame acknowledges the envelope before handing the payload over.
func (r *SocketRunner) handleFrame(ctx context.Context, ack acker, raw []byte) error {
	var env socketEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("socket mode frame ignored", "error", err)
		return nil
	}
	if id := strings.TrimSpace(env.EnvelopeID); id != "" {
		if err := ack.WriteJSON(map[string]string{"envelope_id": id}); err != nil {
			return fmt.Errorf("ack envelope: %w", err)
		}
	}
	switch env.Type {
	case envelopeHello:
		r.logger.Debug("socket mode hello")
		return nil
	case envelopeDisconnect:
		r.logger.Info("socket mode disconnect requested", "reason", env.Reason)
		return errReconnect
	case envelopeEventsAPI:
		p, err := ParsePayload(env.Payload)
		if err != nil {
			r.logger.Warn("socket mode payload rejected", "error", err)
			return nil
		}
		if r.handle != nil {
			r.handle(ctx, p)
		}
		return nil
	default:
		r.logger.Debug("socket mode envelope ignored", "type", env.Type)
		return nil
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
