package telegram

// SendMessageParams is the body of a sendMessage call. Besides chat_id,
// every field is passed to the Bot API as is, so callers can use any
// option sendMessage accepts (parse_mode, reply_markup, ...).
type SendMessageParams map[string]any

// NewSendMessageParams builds params for chatID and then copies fields
// over them. A chat_id inside fields wins over chatID.
func NewSendMessageParams(chatID ChatID, fields map[string]any) SendMessageParams {
	params := make(SendMessageParams, len(fields)+1)
	params["chat_id"] = chatID
	for k, v := range fields {
		params[k] = v
	}
	return params
}

// TextMessage returns params that send text to chatID.
func TextMessage(chatID ChatID, text string) SendMessageParams {
	return SendMessageParams{
		"chat_id": chatID,
		"text":    text,
	}
}

// HasChatID reports whether a chat_id is set and not null.
func (p SendMessageParams) HasChatID() bool {
	v, ok := p["chat_id"]
	if !ok || v == nil {
		return false
	}
	if id, ok := v.(ChatID); ok {
		return !id.IsZero()
	}
	return true
}
