package telegram

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Update represents an incoming update from the Telegram Bot API.
//
// Only the two message slots the webhook consults are decoded, and they are
// decoded leniently: a field of an unexpected type reads as absent instead
// of failing the whole update. Key presence is tracked separately from the
// decoded value so that a slot sent as "null" still counts as present.
type Update struct {
	EditedMessage *IncomingMessage
	Message       *IncomingMessage

	hasEditedMessage bool
	hasMessage       bool
}

// UnmarshalJSON implements json.Unmarshaler. Anything but a JSON object is
// an error; inside the object only the message slots are looked at.
func (u *Update) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*u = Update{}
	var raw json.RawMessage
	if raw, u.hasEditedMessage = fields["edited_message"]; u.hasEditedMessage {
		u.EditedMessage = decodeIncoming(raw)
	}
	if raw, u.hasMessage = fields["message"]; u.hasMessage {
		u.Message = decodeIncoming(raw)
	}
	return nil
}

// CurrentMessage returns the message slot the update carries, preferring
// edited_message over message. The first present key wins even when its
// value is null, in which case the result is nil.
func (u *Update) CurrentMessage() *IncomingMessage {
	switch {
	case u.hasEditedMessage:
		return u.EditedMessage
	case u.hasMessage:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	default:
		return u.Message
	}
}

// IncomingMessage is the part of an incoming message the webhook acts on.
// Text is set only when the message carries a JSON string there.
type IncomingMessage struct {
	Text            *string
	ChatID          ChatID
	MigrateToChatID ChatID
}

// decodeIncoming reads a message slot. Null yields nil; any other value
// yields a message, empty when raw is not an object.
func decodeIncoming(raw json.RawMessage) *IncomingMessage {
	if isNull(raw) {
		return nil
	}
	m := &IncomingMessage{}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return m
	}

	var text string
	if v, ok := fields["text"]; ok && json.Unmarshal(v, &text) == nil {
		m.Text = &text
	}
	if v, ok := fields["migrate_to_chat_id"]; ok {
		_ = m.MigrateToChatID.UnmarshalJSON(v)
	}
	var chat map[string]json.RawMessage
	if v, ok := fields["chat"]; ok && json.Unmarshal(v, &chat) == nil {
		if id, ok := chat["id"]; ok {
			_ = m.ChatID.UnmarshalJSON(id)
		}
	}
	return m
}

// HasText reports whether the message carries a text field, even an empty one.
func (m *IncomingMessage) HasText() bool {
	return m != nil && m.Text != nil
}

// Destination returns the chat a reply to m should go to: the supergroup
// the chat migrated to when set, the chat itself otherwise.
func (m *IncomingMessage) Destination() (ChatID, bool) {
	if m == nil {
		return ChatID{}, false
	}
	if !m.MigrateToChatID.IsZero() {
		return m.MigrateToChatID, true
	}
	if !m.ChatID.IsZero() {
		return m.ChatID, true
	}
	return ChatID{}, false
}

// Message represents a Telegram message as returned by the Bot API.
type Message struct {
	MessageID       int     `json:"message_id,omitempty"`
	From            *User   `json:"from,omitempty"`
	Chat            *Chat   `json:"chat,omitempty"`
	Date            int     `json:"date,omitempty"`
	Text            *string `json:"text,omitempty"`
	MigrateToChatID ChatID  `json:"migrate_to_chat_id,omitzero"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID       ChatID `json:"id,omitzero"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// User represents a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// ChatID identifies a chat. Telegram accepts either an integer or a
// "@channelusername" string. The JSON value it was decoded from is kept
// as is and sent back unchanged, whatever its kind.
type ChatID struct {
	raw json.RawMessage
}

// IntChatID returns a numeric ChatID.
func IntChatID(id int64) ChatID {
	return ChatID{raw: json.RawMessage(strconv.FormatInt(id, 10))}
}

// StringChatID returns a string ChatID.
func StringChatID(id string) ChatID {
	raw, _ := json.Marshal(id)
	return ChatID{raw: raw}
}

// IsZero reports whether the identifier is absent. Only a missing or null
// value is absent; an empty string is still an identifier.
func (c ChatID) IsZero() bool { return len(c.raw) == 0 }

// String returns the textual form of the identifier.
func (c ChatID) String() string {
	if len(c.raw) > 0 && c.raw[0] == '"' {
		var s string
		if json.Unmarshal(c.raw, &s) == nil {
			return s
		}
	}
	return string(c.raw)
}

// MarshalJSON implements json.Marshaler.
func (c ChatID) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Null leaves the zero value.
func (c *ChatID) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*c = ChatID{}
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*c = ChatID{raw: buf.Bytes()}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// APIResponse is the generic envelope returned by the Telegram Bot API.
type APIResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}
