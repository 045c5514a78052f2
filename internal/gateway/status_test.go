package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/tgecho/internal/metrics"
	"github.com/flemzord/tgecho/internal/probe"
)

func TestStatus_ReturnsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRequest(http.StatusOK, 100*time.Millisecond)
	m.ObserveRequest(http.StatusInternalServerError, 300*time.Millisecond)
	m.ObserveCall("sendMessage", 50*time.Millisecond, nil)

	g := New(Config{Prefix: "/telegram"}, http.NotFoundHandler(), discardLogger(),
		WithMetrics(m),
		WithHealth(&fakeHealth{results: []probe.Status{{Name: "main", Up: true}}}),
	)
	g.startedAt = time.Now().Add(-5 * time.Minute)

	rr := httptest.NewRecorder()
	g.handleStatus().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Prefix != "/telegram" {
		t.Errorf("Prefix = %q, want /telegram", resp.Prefix)
	}
	if resp.Uptime < 5*time.Minute {
		t.Errorf("Uptime = %v, want >= 5m", resp.Uptime)
	}
	if resp.Metrics == nil {
		t.Fatal("Metrics = nil")
	}
	if resp.Metrics.Requests != 2 || resp.Metrics.Failures != 1 || resp.Metrics.Sent != 1 {
		t.Errorf("Metrics = %+v, want 2 requests, 1 failure, 1 sent", *resp.Metrics)
	}
	if resp.Metrics.AvgLatency != 200*time.Millisecond {
		t.Errorf("AvgLatency = %v, want 200ms", resp.Metrics.AvgLatency)
	}
	if len(resp.Bots) != 1 {
		t.Errorf("len(Bots) = %d, want 1", len(resp.Bots))
	}
}

func TestStatus_WithoutMetrics(t *testing.T) {
	t.Parallel()

	g := New(Config{}, http.NotFoundHandler(), discardLogger())

	rr := httptest.NewRecorder()
	g.handleStatus().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Metrics != nil {
		t.Errorf("Metrics = %+v, want nil", resp.Metrics)
	}
	if resp.Bots == nil {
		t.Error("Bots = nil, want empty list")
	}
}
