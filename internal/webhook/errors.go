package webhook

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// AuthError is returned when the request path does not hold a well-formed
// bot token.
type AuthError struct{}

func (e *AuthError) Error() string   { return "webhook: wrong bot token" }
func (e *AuthError) StatusCode() int { return http.StatusUnauthorized }
func (e *AuthError) Message() string { return "wrong bot token" }

func (e *AuthError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", "AuthError"),
		slog.String("message", e.Message()),
		slog.Int("status", e.StatusCode()),
	)
}

// PayloadError is returned when the request body cannot be read or is not
// a JSON update.
type PayloadError struct {
	Status int
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err == nil {
		return "webhook: " + e.Reason
	}
	return fmt.Sprintf("webhook: %s: %v", e.Reason, e.Err)
}

func (e *PayloadError) Unwrap() error   { return e.Err }
func (e *PayloadError) Message() string { return e.Reason }

func (e *PayloadError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

func (e *PayloadError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", "PayloadError"),
		slog.String("message", e.Reason),
		slog.Int("status", e.StatusCode()),
	)
}

// ParseError reports a message text that is not relaxed JSON. It is only
// ever logged: the reply falls back to the raw update.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "webhook: reply text is not relaxed JSON: " + e.Err.Error()
}
func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", "ParseError"),
		slog.String("message", e.Err.Error()),
	)
}

type statusCoder interface {
	StatusCode() int
}

type messager interface {
	Message() string
}

// Classify maps err to the HTTP status and body returned to the caller.
// Errors that carry no status map to 500 with their own text.
func Classify(err error) (int, string) {
	status := http.StatusInternalServerError
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	if status < 100 || status > 999 {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	var m messager
	if errors.As(err, &m) {
		msg = m.Message()
	}
	return status, msg
}

// LogRecord flattens err into a fixed-shape log value: the error's own
// LogValue when it has one, name/message/status otherwise, and the wrapped
// cause nested under "cause".
func LogRecord(err error) slog.Value {
	if err == nil {
		return slog.GroupValue()
	}

	var attrs []slog.Attr
	if lv, ok := err.(slog.LogValuer); ok {
		v := lv.LogValue().Resolve()
		if v.Kind() == slog.KindGroup {
			attrs = append(attrs, v.Group()...)
		} else {
			attrs = append(attrs, slog.Attr{Key: "message", Value: v})
		}
	} else {
		attrs = append(attrs,
			slog.String("name", fmt.Sprintf("%T", err)),
			slog.String("message", err.Error()),
		)
		if sc, ok := err.(statusCoder); ok {
			attrs = append(attrs, slog.Int("status", sc.StatusCode()))
		}
	}

	if cause := errors.Unwrap(err); cause != nil {
		attrs = append(attrs, slog.Attr{Key: "cause", Value: LogRecord(cause)})
	}
	return slog.GroupValue(attrs...)
}
