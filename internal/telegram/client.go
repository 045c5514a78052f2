// Package telegram is a thin client for the two Bot API methods the echo
// webhook needs, getMe and sendMessage, plus the update types it decodes.
//
// The bot token is not bound to the client: every call takes the token it
// should act as, because the webhook learns it from each inbound request.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultAPIURL is the public Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"

	maxResponseBytes = 10 << 20 // 10 MiB
	tracerName       = "github.com/flemzord/tgecho/internal/telegram"
)

// ErrMissingChatID is returned by SendMessage when params carry no chat_id.
var ErrMissingChatID = errors.New("telegram: sendMessage requires chat_id")

// Observer receives one callback per Bot API call.
type Observer interface {
	ObserveCall(method string, elapsed time.Duration, err error)
}

// Client is a stateless wrapper around the Telegram Bot API. It is safe
// for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used to report sendMessage results.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver registers a call observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// NewClient creates a Bot API client rooted at baseURL
// (DefaultAPIURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return c
}

// Get issues a GET call to the given Bot API method and returns the raw
// "result" field. A missing result is returned as nil with no error.
func (c *Client) Get(ctx context.Context, token, method string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, token, method, nil)
}

// Post issues a POST call with params encoded as the JSON body. On a
// non-ok envelope the returned *APIError carries the raw response.
func (c *Client) Post(ctx context.Context, token, method string, params any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, token, method, params)
}

// GetMe returns the bot's own user record.
func (c *Client) GetMe(ctx context.Context, token string) (*User, error) {
	raw, err := c.Get(ctx, token, "getMe")
	if err != nil {
		return nil, err
	}
	var user User
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &user, nil
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &TransportError{Method: "getMe", Op: "decode result", Err: err}
	}
	return &user, nil
}

// SendMessage sends params verbatim to sendMessage and returns the raw
// result (the sent Message). See https://core.telegram.org/bots/api#sendmessage.
func (c *Client) SendMessage(ctx context.Context, token string, params SendMessageParams) (json.RawMessage, error) {
	if !params.HasChatID() {
		return nil, ErrMissingChatID
	}
	result, err := c.Post(ctx, token, "sendMessage", params)
	if err != nil {
		return nil, err
	}
	c.logger.Info("sendMessage", "result", string(result))
	return result, nil
}

func (c *Client) do(ctx context.Context, httpMethod, token, method string, params any) (_ json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("telegram.method", method),
			attribute.String("http.request.method", httpMethod),
		),
	)
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(method, time.Since(start), err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)

	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, &TransportError{Method: method, Op: "marshal request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return nil, &TransportError{Method: method, Op: "create request", Err: stripURL(err)}
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The token-bearing URL stays out of the error text.
		return nil, &TransportError{Method: method, Op: "request", Err: stripURL(err)}
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Op: "read response", Err: err}
	}

	var envelope APIResponse[json.RawMessage]
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &TransportError{Method: method, Op: "decode response", Err: err}
	}

	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
		if httpMethod == http.MethodPost {
			apiErr.Response = &RawResponse{
				Status:  resp.StatusCode,
				Headers: resp.Header.Clone(),
				Body:    respBody,
			}
		}
		return nil, apiErr
	}

	return envelope.Result, nil
}

// stripURL drops the *url.Error wrapper, whose text includes the URL.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
