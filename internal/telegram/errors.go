package telegram

import (
	"fmt"
	"log/slog"
	"net/http"
)

// APIError is returned when the Bot API answers with an envelope whose
// "ok" field is not true.
type APIError struct {
	Method      string
	Code        int
	Description string

	// Response is the raw HTTP exchange, attached for POST calls only.
	Response *RawResponse
}

// RawResponse keeps what came back from the Bot API for diagnostics.
type RawResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s: %d %s", e.Method, e.StatusCode(), e.Message())
}

// StatusCode returns the Bot API error code, 500 when the API gave none.
func (e *APIError) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Message is the text surfaced to webhook callers. Without a description
// it falls back to the standard status text.
func (e *APIError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	if text := http.StatusText(e.StatusCode()); text != "" {
		return text
	}
	return "telegram api error"
}

// LogValue implements slog.LogValuer.
func (e *APIError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("name", "APIError"),
		slog.String("message", e.Message()),
		slog.String("method", e.Method),
		slog.Int("code", e.StatusCode()),
		slog.Int("status", e.StatusCode()),
	}
	if e.Response != nil {
		attrs = append(attrs, slog.Group("response",
			slog.Int("status", e.Response.Status),
			slog.Any("headers", e.Response.Headers),
			slog.String("data", string(e.Response.Body)),
		))
	}
	return slog.GroupValue(attrs...)
}

// TransportError wraps failures that happen before a Bot API envelope
// could be read: connection errors, unreadable bodies, malformed JSON.
type TransportError struct {
	Method string
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram: %s %s: %v", e.Method, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode implements the webhook status mapping.
func (e *TransportError) StatusCode() int { return http.StatusInternalServerError }

// LogValue implements slog.LogValuer.
func (e *TransportError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", "TransportError"),
		slog.String("message", e.Error()),
		slog.String("method", e.Method),
		slog.String("op", e.Op),
		slog.Int("status", e.StatusCode()),
	)
}
