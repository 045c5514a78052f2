package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

type observedCall struct {
	method string
	err    error
}

type recordingObserver struct {
	calls []observedCall
}

func (o *recordingObserver) ObserveCall(method string, _ time.Duration, err error) {
	o.calls = append(o.calls, observedCall{method: method, err: err})
}
