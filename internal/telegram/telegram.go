package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// MaxCaptionRunes is the Bot API limit for photo captions.
	MaxCaptionRunes = 1024
	// MaxMessageRunes is the Bot API limit for text messages.
	MaxMessageRunes = 4096
)

type Client struct {
	token   string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another Bot API server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName is the first and last name, or the username when both are empty.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// APIError is a request the Bot API answered but refused.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram API error: %s: status %d: %s", e.Method, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram API error: %s: status %d", e.Method, e.StatusCode)
}

// SendMessage sends a text message. An empty parseMode sends plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     c.trim(text, MaxMessageRunes, "sendMessage", chatID),
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	if err := c.call(ctx, "sendMessage", payload, nil); err != nil {
		return err
	}
	c.log.Debug("message sent to Telegram", "chat_id", chatID)
	return nil
}

// SendPhoto sends a photo by URL. Captions longer than MaxCaptionRunes are cut.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption, parseMode string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"photo":   photoURL,
		"caption": c.trim(caption, MaxCaptionRunes, "sendPhoto", chatID),
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	if err := c.call(ctx, "sendPhoto", payload, nil); err != nil {
		return err
	}
	c.log.Debug("photo sent to Telegram", "chat_id", chatID)
	return nil
}

// GetUpdates long-polls for updates with ids >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %s: %w", method, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error read response: %s: %w", method, err)
	}

	var api apiResponse
	if jsonErr := json.Unmarshal(raw, &api); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("error parse response: %s: %w", method, jsonErr)
	}
	if resp.StatusCode != http.StatusOK || !api.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: api.Description}
	}

	if result != nil && len(api.Result) > 0 {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("error parse result: %s: %w", method, err)
		}
	}
	return nil
}

// trim cuts s to the Bot API limit and logs when anything is lost.
func (c *Client) trim(s string, limit int, method string, chatID int64) string {
	out := TrimRunes(s, limit)
	if len(out) < len(s) {
		c.log.Warn("text cut to Telegram limit", "method", method, "chat_id", chatID,
			"limit", limit, "runes", utf8.RuneCountInString(s))
	}
	return out
}

// TrimRunes cuts s to at most n runes.
func TrimRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Mention renders an HTML link to the user's profile.
func Mention(u *User) string {
	name := u.DisplayName()
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, htmlEscape(name))
}

func htmlEscape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
