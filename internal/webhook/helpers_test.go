package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/tgecho/internal/telegram"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

type sentMessage struct {
	token  string
	params telegram.SendMessageParams
}

// fakeSender records every reply instead of calling Telegram.
type fakeSender struct {
	mu    sync.Mutex
	calls []sentMessage
	err   error
}

func (s *fakeSender) SendMessage(_ context.Context, token string, params telegram.SendMessageParams) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sentMessage{token: token, params: params})
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"message_id":1}`), nil
}

func (s *fakeSender) sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.calls...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses []int
	kinds    []string
}

func (r *fakeRecorder) ObserveRequest(status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *fakeRecorder) ObserveReply(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

type fakeTracker struct {
	mu       sync.Mutex
	captured []error
}

func (t *fakeTracker) CaptureError(_ context.Context, err error, _ map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.captured = append(t.captured, err)
}

func (t *fakeTracker) Flush(context.Context) error { return nil }

// post sends body to h at path and returns the recorded response.
func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// paramsJSON renders params the way the Telegram client puts them on the wire.
func paramsJSON(t *testing.T, params telegram.SendMessageParams) string {
	t.Helper()
	data, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return string(data)
}
