package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/khakasnews/internal/translate"
)

func chatServer(t *testing.T, status int, reply string, got *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var body map[string]interface{}
	srv := chatServer(t, http.StatusOK, `{"text":"  Привет  ","generation_id":"g1"}`, &body)
	c := NewClient("co-key", "", srv.URL, 5*time.Second)

	reply, err := c.Complete(context.Background(), []translate.Message{
		{Role: "system", Content: "translate"},
		{Role: "user", Content: "Изеннер"},
	})
	require.NoError(t, err)
	assert.Equal(t, "  Привет  ", reply)
	assert.Equal(t, "Изеннер", body["message"])
	assert.Equal(t, "translate", body["preamble"])
	assert.Equal(t, "command-r", body["model"])
}

func TestComplete_EmptyText(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"text":""}`, nil)
	c := NewClient("co-key", "command-r", srv.URL, 5*time.Second)

	_, err := c.Complete(context.Background(), []translate.Message{{Role: "user", Content: "x"}})
	assert.True(t, errors.Is(err, translate.ErrEmptyCompletion))
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized, `{"message":"invalid api token"}`, nil)
	c := NewClient("co-key", "command-r", srv.URL, 5*time.Second)

	_, err := c.Complete(context.Background(), []translate.Message{{Role: "user", Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohere chat error")
}

func TestComplete_NoUserMessage(t *testing.T) {
	c := NewClient("co-key", "", "http://127.0.0.1:1", time.Second)
	_, err := c.Complete(context.Background(), []translate.Message{{Role: "system", Content: "x"}})
	assert.Error(t, err)
}

func TestSplitMessages(t *testing.T) {
	pre, msg := splitMessages([]translate.Message{
		{Role: "system", Content: "a"},
		{Role: "user", Content: "b"},
	})
	assert.Equal(t, "a", pre)
	assert.Equal(t, "b", msg)
}
