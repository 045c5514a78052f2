package webhook

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flemzord/tgecho/internal/telegram"
)

func TestHandler_EchoesUpdateAsText(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := NewHandler(sender, discardLogger())

	rr := post(t, h, "/abc123", `{"message":{"chat":{"id":42},"text":"hello"}}`)

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("response = %d %q, want 200 OK", rr.Code, rr.Body.String())
	}
	calls := sender.sent()
	if len(calls) != 1 {
		t.Fatalf("sent %d messages, want 1", len(calls))
	}
	if calls[0].token != "abc123" {
		t.Errorf("token = %q, want abc123", calls[0].token)
	}
	want := `{"chat_id":42,"text":"{\"message\":{\"chat\":{\"id\":42},\"text\":\"hello\"}}"}`
	if got := paramsJSON(t, calls[0].params); got != want {
		t.Errorf("params = %s, want %s", got, want)
	}
}

func TestHandler_StructuredReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "relaxed object",
			body: `{"message":{"chat":{"id":7},"text":"{text: 'hi there'}"}}`,
			want: `{"chat_id":7,"text":"hi there"}`,
		},
		{
			name: "extra fields pass through",
			body: `{"message":{"chat":{"id":7},"text":"{text: '*bold*', parse_mode: 'Markdown',}"}}`,
			want: `{"chat_id":7,"parse_mode":"Markdown","text":"*bold*"}`,
		},
		{
			name: "payload chat_id wins",
			body: `{"message":{"chat":{"id":7},"text":"{text: 'x', chat_id: '@other'}"}}`,
			want: `{"chat_id":"@other","text":"x"}`,
		},
		{
			name: "object without text falls back",
			body: `{"message":{"chat":{"id":7},"text":"{a: 1}"}}`,
			want: `{"chat_id":7,"text":"{\"message\":{\"chat\":{\"id\":7},\"text\":\"{a: 1}\"}}"}`,
		},
		{
			name: "string chat id kept as string",
			body: `{"message":{"chat":{"id":"@news"},"text":"{text: 'x'}"}}`,
			want: `{"chat_id":"@news","text":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC", tt.body)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			calls := sender.sent()
			if len(calls) != 1 {
				t.Fatalf("sent %d messages, want 1", len(calls))
			}
			if got := paramsJSON(t, calls[0].params); got != tt.want {
				t.Errorf("params = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHandler_WrongToken(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/bad%20token!", "/", "/a/b", "/tok_en"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			rr := post(t, NewHandler(sender, discardLogger()), path, `{"message":{"chat":{"id":1},"text":"x"}}`)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
			if rr.Body.String() != "wrong bot token" {
				t.Errorf("body = %q, want %q", rr.Body.String(), "wrong bot token")
			}
			if n := len(sender.sent()); n != 0 {
				t.Errorf("sent %d messages, want 0", n)
			}
		})
	}
}

func TestHandler_TelegramAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request"}`)
	}))
	defer srv.Close()

	tracker := &fakeTracker{}
	client := telegram.NewClient(srv.URL, telegram.WithLogger(discardLogger()))
	h := NewHandler(client, discardLogger(), WithTracker(tracker))

	rr := post(t, h, "/123:ABC", `{"message":{"chat":{"id":1},"text":"x"}}`)

	if rr.Code != http.StatusBadRequest || rr.Body.String() != "Bad Request" {
		t.Errorf("response = %d %q, want 400 %q", rr.Code, rr.Body.String(), "Bad Request")
	}
	if len(tracker.captured) != 0 {
		t.Errorf("captured %d errors, want 0 for a 4xx", len(tracker.captured))
	}
}

func TestHandler_SendFailureIsServerError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("connection reset")}
	tracker := &fakeTracker{}
	h := NewHandler(sender, discardLogger(), WithTracker(tracker))

	rr := post(t, h, "/123:ABC", `{"message":{"chat":{"id":1},"text":"x"}}`)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if rr.Body.String() != "connection reset" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "connection reset")
	}
	if len(tracker.captured) != 1 {
		t.Errorf("captured %d errors, want 1", len(tracker.captured))
	}
}

func TestHandler_MigratedChat(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC",
		`{"message":{"migrate_to_chat_id":99,"chat":{"id":7},"text":"x"}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	calls := sender.sent()
	if len(calls) != 1 {
		t.Fatalf("sent %d messages, want 1", len(calls))
	}
	if got := calls[0].params["chat_id"].(telegram.ChatID).String(); got != "99" {
		t.Errorf("chat_id = %s, want 99", got)
	}
}

func TestHandler_EditedMessageWins(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC",
		`{"message":{"chat":{"id":1},"text":"{text:'old'}"},"edited_message":{"chat":{"id":2},"text":"{text:'new'}"}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	calls := sender.sent()
	if len(calls) != 1 {
		t.Fatalf("sent %d messages, want 1", len(calls))
	}
	if got, want := paramsJSON(t, calls[0].params), `{"chat_id":2,"text":"new"}`; got != want {
		t.Errorf("params = %s, want %s", got, want)
	}
}

func TestHandler_NoDestination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "no message", body: `{"update_id":1,"callback_query":{"id":"q"}}`},
		{name: "message without chat", body: `{"message":{"text":"x"}}`},
		{name: "null edited message", body: `{"edited_message":null,"message":{"chat":{"id":1},"text":"x"}}`},
		{name: "empty body", body: ``},
		{name: "array body", body: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			rec := &fakeRecorder{}
			rr := post(t, NewHandler(sender, discardLogger(), WithRecorder(rec)), "/123:ABC", tt.body)

			if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
				t.Errorf("response = %d %q, want 200 OK", rr.Code, rr.Body.String())
			}
			if n := len(sender.sent()); n != 0 {
				t.Errorf("sent %d messages, want 0", n)
			}
			if len(rec.kinds) != 1 || rec.kinds[0] != ReplyNone {
				t.Errorf("reply kinds = %v, want [%s]", rec.kinds, ReplyNone)
			}
		})
	}
}

func TestHandler_InvalidBody(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC", `{"message":`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if n := len(sender.sent()); n != 0 {
		t.Errorf("sent %d messages, want 0", n)
	}
}

func TestHandler_LooselyTypedUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "numeric text echoes the update",
			body: `{"message":{"chat":{"id":1},"text":42}}`,
			want: `{"chat_id":1,"text":"{\"message\":{\"chat\":{\"id\":1},\"text\":42}}"}`,
		},
		{
			name: "object text echoes the update",
			body: `{"message":{"chat":{"id":1},"text":{"text":"x"}}}`,
			want: `{"chat_id":1,"text":"{\"message\":{\"chat\":{\"id\":1},\"text\":{\"text\":\"x\"}}}"}`,
		},
		{
			name: "unused fields of other types",
			body: `{"update_id":1.0,"message":{"date":"yesterday","from":{"id":"u1"},"chat":{"id":1},"text":"{text: 'ok'}"}}`,
			want: `{"chat_id":1,"text":"ok"}`,
		},
		{
			name: "empty string chat id",
			body: `{"message":{"chat":{"id":""},"text":"{text: 'ok'}"}}`,
			want: `{"chat_id":"","text":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC", tt.body)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			calls := sender.sent()
			if len(calls) != 1 {
				t.Fatalf("sent %d messages, want 1", len(calls))
			}
			if got := paramsJSON(t, calls[0].params); got != tt.want {
				t.Errorf("params = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHandler_FallbackMatchesStringify(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	rr := post(t, NewHandler(sender, discardLogger()), "/123:ABC",
		`{"update_id":10.0, "message":{"chat":{"id":3},"text":"\u4f60\u597d <b>"}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	calls := sender.sent()
	if len(calls) != 1 {
		t.Fatalf("sent %d messages, want 1", len(calls))
	}
	want := `{"update_id":10,"message":{"chat":{"id":3},"text":"你好 <b>"}}`
	if got := calls[0].params["text"]; got != want {
		t.Errorf("text = %v, want %s", got, want)
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := NewHandler(sender, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/123:ABC", strings.NewReader(`{"message":{"chat":{"id":1},"text":"x"}}`))
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 8)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestHandler_Prefix(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := NewHandler(sender, discardLogger(), WithPrefix("/telegram/"))

	rr := post(t, h, "/telegram/123:ABC", `{"message":{"chat":{"id":1},"text":"x"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if calls := sender.sent(); len(calls) != 1 || calls[0].token != "123:ABC" {
		t.Errorf("calls = %+v, want one call with token 123:ABC", calls)
	}

	rr = post(t, h, "/other/123:ABC", `{}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status outside prefix = %d, want 401", rr.Code)
	}
}

func TestHandler_ParseErrorIsLogged(t *testing.T) {
	t.Parallel()

	logger, buf := bufferLogger()
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	rr := post(t, NewHandler(sender, logger, WithRecorder(rec)), "/123:ABC", `{"message":{"chat":{"id":1},"text":"{unterminated"}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(buf.String(), "reply text is not relaxed JSON") {
		t.Errorf("log output missing parse failure:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "name=ParseError") {
		t.Errorf("log output missing normalized record:\n%s", buf.String())
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != ReplyFallback {
		t.Errorf("reply kinds = %v, want [%s]", rec.kinds, ReplyFallback)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", rec.statuses)
	}
}

func TestHandler_Idempotent(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := NewHandler(sender, discardLogger())
	body := `{"message":{"chat":{"id":5},"text":"{text: 'same'}"}}`

	for range 2 {
		if rr := post(t, h, "/123:ABC", body); rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	}

	calls := sender.sent()
	if len(calls) != 2 {
		t.Fatalf("sent %d messages, want 2", len(calls))
	}
	if a, b := paramsJSON(t, calls[0].params), paramsJSON(t, calls[1].params); a != b {
		t.Errorf("replies differ: %s vs %s", a, b)
	}
}
