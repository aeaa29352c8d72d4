package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"slack-taskbot/internal/dispatch"
	"slack-taskbot/internal/slack"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []slack.Payload
}

func (f *fakeDispatcher) Handle(ctx context.Context, p slack.Payload) dispatch.Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	if p.Type == slack.TypeURLVerification {
		return dispatch.Route{State: dispatch.ChallengeResponse, Challenge: p.Challenge}
	}
	return dispatch.Route{State: dispatch.Routing}
}

func newTestServer(secret string) (*Server, *fakeDispatcher) {
	fd := &fakeDispatcher{}
	return NewServer(0, secret, fd, slog.New(slog.NewTextHandler(io.Discard, nil))), fd
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signed(secret, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	return map[string]string{
		"X-Slack-Request-Timestamp": ts,
		"X-Slack-Signature":         "v0=" + hex.EncodeToString(mac.Sum(nil)),
	}
}

func TestURLVerificationEchoesChallenge(t *testing.T) {
	s, _ := newTestServer("")
	rec := post(t, s.Handler(), `{"type":"url_verification","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got["challenge"] != "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestEventIsAcknowledgedAndDispatched(t *testing.T) {
	s, fd := newTestServer("")
	body := `{"type":"event_callback","event_id":"Ev1","event":{"type":"message","user":"U1","text":"<@UBOT> hi","channel":"C1","ts":"1.0"}}`
	rec := post(t, s.Handler(), body, nil)

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("status %d body %q", rec.Code, rec.Body.String())
	}
	if len(fd.payloads) != 1 || fd.payloads[0].Event.Text != "<@UBOT> hi" {
		t.Fatalf("unexpected payloads %+v", fd.payloads)
	}
}

func TestRetryDeliveryIsNotDispatched(t *testing.T) {
	s, fd := newTestServer("")
	body := `{"type":"event_callback","event_id":"Ev1","event":{"type":"message","user":"U1","text":"<@UBOT> hi"}}`
	rec := post(t, s.Handler(), body, map[string]string{"X-Slack-Retry-Num": "1", "X-Slack-Retry-Reason": "http_timeout"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if len(fd.payloads) != 0 {
		t.Fatalf("retry must not be dispatched")
	}
}

func TestSignatureVerification(t *testing.T) {
	s, fd := newTestServer("shh")
	body := `{"type":"event_callback","event":{"type":"message"}}`

	if rec := post(t, s.Handler(), body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned request: status %d", rec.Code)
	}
	if rec := post(t, s.Handler(), body, signed("wrong", body)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature: status %d", rec.Code)
	}
	if len(fd.payloads) != 0 {
		t.Fatalf("rejected requests must not be dispatched")
	}
	if rec := post(t, s.Handler(), body, signed("shh", body)); rec.Code != http.StatusOK {
		t.Fatalf("signed request: status %d", rec.Code)
	}
	if len(fd.payloads) != 1 {
		t.Fatalf("signed request not dispatched")
	}
}

func TestMalformedPayload(t *testing.T) {
	s, fd := newTestServer("")
	for _, body := range []string{"not json", `{"challenge":"x"}`} {
		if rec := post(t, s.Handler(), body, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: status %d", body, rec.Code)
		}
	}
	if len(fd.payloads) != 0 {
		t.Fatalf("malformed payloads must not be dispatched")
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer("")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("status %d body %q", rec.Code, rec.Body.String())
	}
}
