package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/khakasnews/internal/logger"
)

type recorded struct {
	path string
	body map[string]interface{}
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		calls = append(calls, recorded{path: r.URL.Path, body: body})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSendMessage(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"ok":true,"result":{}}`)
	c := New("TOKEN", WithBaseURL(srv.URL))

	require.NoError(t, c.SendMessage(context.Background(), 42, "привет", ""))

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/botTOKEN/sendMessage", got.path)
	assert.Equal(t, float64(42), got.body["chat_id"])
	assert.Equal(t, "привет", got.body["text"])
	_, hasMode := got.body["parse_mode"]
	assert.False(t, hasMode)
}

func TestSendMessage_ParseMode(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"ok":true}`)
	c := New("T", WithBaseURL(srv.URL))

	require.NoError(t, c.SendMessage(context.Background(), 1, "<b>x</b>", "HTML"))
	assert.Equal(t, "HTML", (*calls)[0].body["parse_mode"])
}

func TestSendPhoto_TrimsCaptionByRunes(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"ok":true}`)
	c := New("T", WithBaseURL(srv.URL))

	long := strings.Repeat("ж", 1500)
	require.NoError(t, c.SendPhoto(context.Background(), 7, "https://example.org/a.jpg", long, ""))

	got := (*calls)[0]
	assert.Equal(t, "/botT/sendPhoto", got.path)
	assert.Equal(t, "https://example.org/a.jpg", got.body["photo"])
	caption := got.body["caption"].(string)
	assert.Equal(t, MaxCaptionRunes, utf8.RuneCountInString(caption))
	assert.True(t, utf8.ValidString(caption))
}

func TestCall_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"refused with description", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier"}`, "wrong file identifier"},
		{"ok false on 200", http.StatusOK, `{"ok":false,"description":"nope"}`, "nope"},
		{"non json error page", http.StatusBadGateway, `<html>bad gateway</html>`, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.reply)
			c := New("T", WithBaseURL(srv.URL))

			err := c.SendPhoto(context.Background(), 1, "u", "c", "")
			require.Error(t, err)
			var apiErr *APIError
			assert.True(t, errors.As(err, &apiErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCall_SingleAttempt(t *testing.T) {
	srv, calls := newServer(t, http.StatusInternalServerError, `{"ok":false}`)
	c := New("T", WithBaseURL(srv.URL))

	assert.Error(t, c.SendMessage(context.Background(), 1, "x", ""))
	assert.Len(t, *calls, 1)
}

func TestGetUpdates(t *testing.T) {
	reply := `{"ok":true,"result":[
		{"update_id":10,"message":{"message_id":1,"from":{"id":5,"first_name":"Ада"},"chat":{"id":5,"type":"private"},"text":"/start"}},
		{"update_id":11}
	]}`
	srv, calls := newServer(t, http.StatusOK, reply)
	c := New("T", WithBaseURL(srv.URL))

	updates, err := c.GetUpdates(context.Background(), 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(5), updates[0].Message.Chat.ID)
	assert.Nil(t, updates[1].Message)

	body := (*calls)[0].body
	assert.Equal(t, float64(10), body["offset"])
	assert.Equal(t, float64(30), body["timeout"])
}

func TestGetUpdates_ContextCanceled(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"ok":true,"result":[]}`)
	c := New("T", WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetUpdates(ctx, 0, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrimRunes(t *testing.T) {
	assert.Equal(t, "абв", TrimRunes("абвгд", 3))
	assert.Equal(t, "ab", TrimRunes("ab", 10))
	assert.Equal(t, "", TrimRunes("ab", 0))
}

func TestMention(t *testing.T) {
	u := &User{ID: 99, FirstName: "Ann", LastName: "<Lee>"}
	assert.Equal(t, `<a href="tg://user?id=99">Ann &lt;Lee&gt;</a>`, Mention(u))

	assert.Equal(t, `<a href="tg://user?id=3">bob</a>`, Mention(&User{ID: 3, Username: "bob"}))
	assert.Equal(t, `<a href="tg://user?id=4">4</a>`, Mention(&User{ID: 4}))
}

func TestSendMessage_LogsWhenTextIsCut(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"ok":true}`)
	var logs bytes.Buffer
	c := New("T", WithBaseURL(srv.URL), WithLogger(logger.New(&logs, false)))

	require.NoError(t, c.SendMessage(context.Background(), 1, strings.Repeat("я", MaxMessageRunes+10), ""))

	assert.Equal(t, MaxMessageRunes, utf8.RuneCountInString((*calls)[0].body["text"].(string)))
	assert.Contains(t, logs.String(), "text cut to Telegram limit")
	assert.Contains(t, logs.String(), "method=sendMessage")

	logs.Reset()
	require.NoError(t, c.SendMessage(context.Background(), 1, "short", ""))
	assert.NotContains(t, logs.String(), "text cut")
}
