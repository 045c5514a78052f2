package webhook

import (
	"math"

	"github.com/titanous/json5"

	"github.com/flemzord/tgecho/internal/telegram"
)

// Reply kinds, as reported to metrics.
const (
	ReplyStructured = "structured"
	ReplyFallback   = "fallback"
	ReplyNone       = "none"
)

// Reply is what gets echoed back: either sendMessage fields decoded from
// the message text, or the raw update as plain text.
type Reply struct {
	// Fields is set when the message text decoded to an object with a
	// "text" key. It is forwarded verbatim.
	Fields map[string]any

	// Text is the fallback body, used when Fields is nil.
	Text string
}

// Structured reports whether the reply came from the message text.
func (r Reply) Structured() bool { return r.Fields != nil }

// Kind returns ReplyStructured or ReplyFallback.
func (r Reply) Kind() string {
	if r.Structured() {
		return ReplyStructured
	}
	return ReplyFallback
}

// Params builds the sendMessage parameters for chatID.
func (r Reply) Params(chatID telegram.ChatID) telegram.SendMessageParams {
	if r.Structured() {
		return telegram.NewSendMessageParams(chatID, r.Fields)
	}
	return telegram.TextMessage(chatID, r.Text)
}

// BuildReply derives the reply for msg. fallback is the serialized update.
// A text that fails to parse is reported through the returned error, which
// is informational only: the reply is still usable.
func BuildReply(msg *telegram.IncomingMessage, fallback string) (Reply, error) {
	if !msg.HasText() {
		return Reply{Text: fallback}, nil
	}
	fields, err := parseReplyFields(*msg.Text)
	if err != nil {
		return Reply{Text: fallback}, err
	}
	if fields == nil {
		return Reply{Text: fallback}, nil
	}
	return Reply{Fields: fields}, nil
}

// parseReplyFields decodes text as JSON5 (comments, unquoted keys, single
// quotes and trailing commas allowed). It returns nil without error when
// text is valid but is not an object with a "text" key.
func parseReplyFields(text string) (map[string]any, error) {
	var v any
	if err := json5.Unmarshal([]byte(text), &v); err != nil {
		return nil, &ParseError{Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	if _, ok := obj["text"]; !ok {
		return nil, nil
	}
	return finiteValues(obj).(map[string]any), nil
}

// finiteValues replaces NaN and infinities, which JSON cannot carry, with
// nil so they go out as null.
func finiteValues(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case map[string]any:
		for k, e := range v {
			v[k] = finiteValues(e)
		}
	case []any:
		for i, e := range v {
			v[i] = finiteValues(e)
		}
	}
	return v
}
