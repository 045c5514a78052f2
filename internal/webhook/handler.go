// Package webhook implements the Telegram echo webhook: it decodes an
// update, derives a reply from the message text and sends it back to the
// chat the message came from.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgecho/internal/errtrack"
	"github.com/flemzord/tgecho/internal/telegram"
)

const tracerName = "github.com/flemzord/tgecho/internal/webhook"

// tokenPattern is the accepted shape of a bot token in the request path.
var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9:-]+$`)

// Sender delivers a reply. *telegram.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, token string, params telegram.SendMessageParams) (json.RawMessage, error)
}

// Recorder receives per-request measurements.
type Recorder interface {
	ObserveRequest(status int, elapsed time.Duration)
	ObserveReply(kind string)
}

// Handler serves the webhook endpoint. The bot token is the request path,
// so one Handler serves any number of bots.
type Handler struct {
	sender   Sender
	logger   *slog.Logger
	recorder Recorder
	tracker  errtrack.Tracker
	tracer   trace.Tracer
	prefix   string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// WithTracker reports 5xx failures to an error tracker.
func WithTracker(t errtrack.Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) { h.tracer = tp.Tracer(tracerName) }
}

// WithPrefix sets the path the handler is mounted under. The token is
// whatever follows it.
func WithPrefix(prefix string) Option {
	return func(h *Handler) { h.prefix = strings.TrimSuffix(prefix, "/") }
}

// NewHandler creates a webhook handler that replies through sender.
func NewHandler(sender Sender, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sender:  sender,
		logger:  logger,
		tracker: errtrack.Nop{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tracer == nil {
		h.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return h
}

// ServeHTTP implements http.Handler. The response is always plain text:
// "OK" on success, the error message otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := h.tracer.Start(r.Context(), "webhook.update", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	logger := h.logger
	if id := middleware.GetReqID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	kind, err := h.handle(ctx, r, logger)

	status, body := http.StatusOK, "OK"
	if err != nil {
		status, body = Classify(err)
		h.report(ctx, logger, status, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, body)
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("tgecho.reply_kind", kind),
	)

	if h.recorder != nil {
		h.recorder.ObserveRequest(status, time.Since(start))
		if kind != "" {
			h.recorder.ObserveReply(kind)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// handle runs one update through the pipeline and returns the reply kind
// it settled on (empty when it stopped before deriving one).
func (h *Handler) handle(ctx context.Context, r *http.Request, logger *slog.Logger) (string, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &PayloadError{Status: http.StatusRequestEntityTooLarge, Reason: "request body too large", Err: err}
		}
		return "", &PayloadError{Reason: "cannot read request body", Err: err}
	}

	token, ok := h.token(r)
	if !ok {
		return "", &AuthError{}
	}

	update, body, err := decodeUpdate(raw)
	if err != nil {
		return "", err
	}
	logger.Info("webhook update received", "body", body)

	msg := update.CurrentMessage()
	reply, err := BuildReply(msg, body)
	if err != nil {
		logger.Info("reply text is not relaxed JSON, echoing the update", "error", LogRecord(err))
	}

	dest, ok := msg.Destination()
	if !ok {
		return ReplyNone, nil
	}

	// The reply goes out even if the caller hangs up.
	if _, err := h.sender.SendMessage(context.WithoutCancel(ctx), token, reply.Params(dest)); err != nil {
		return reply.Kind(), err
	}
	return reply.Kind(), nil
}

// token extracts the bot token from the request path.
func (h *Handler) token(r *http.Request) (string, bool) {
	path := r.URL.Path
	if h.prefix != "" {
		rest, ok := strings.CutPrefix(path, h.prefix)
		if !ok {
			return "", false
		}
		path = rest
	}
	token := strings.TrimPrefix(path, "/")
	if !tokenPattern.MatchString(token) {
		return "", false
	}
	return token, true
}

// decodeUpdate validates raw and returns the decoded update along with its
// serialized text, as JSON.stringify would print it. An empty body reads as an empty object, and a JSON
// value that is not an object yields an update with no message.
func decodeUpdate(raw []byte) (telegram.Update, string, error) {
	var update telegram.Update

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return update, "", &PayloadError{Reason: "request body is not valid JSON"}
	}

	body, err := stringify(raw)
	if err != nil {
		return update, "", &PayloadError{Reason: "request body is not valid JSON", Err: err}
	}

	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &update); err != nil {
			return update, "", &PayloadError{Reason: "malformed update", Err: err}
		}
	}
	return update, body, nil
}

// report logs a failed request once and forwards server errors to the
// tracker.
func (h *Handler) report(ctx context.Context, logger *slog.Logger, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		h.tracker.CaptureError(ctx, err, map[string]string{
			"component": "webhook",
			"status":    http.StatusText(status),
		})
	}
	logger.Log(ctx, level, "webhook request failed", "status", status, "error", LogRecord(err))
}
