package cohere

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohereapi "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/deusflow/khakasnews/internal/translate"
)

// Client is a completion backend on top of the Cohere chat API.
type Client struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
}

var _ translate.Completer = (*Client)(nil)

// NewClient builds a client. baseURL may be empty for the public endpoint.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = "command-r"
	}
	httpClient := &http.Client{Timeout: timeout}

	var client *cohereclient.Client
	if baseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(httpClient),
			cohereclient.WithBaseURL(baseURL),
		)
	} else {
		client = cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(httpClient),
		)
	}
	return &Client{client: client, model: model, timeout: timeout}
}

// Complete sends system messages as the preamble and user messages as the
// chat message.
func (c *Client) Complete(ctx context.Context, messages []translate.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	preamble, message := splitMessages(messages)
	if message == "" {
		return "", fmt.Errorf("no user message to send")
	}

	req := &cohereapi.ChatRequest{
		Message: message,
		Model:   &c.model,
	}
	if preamble != "" {
		req.Preamble = &preamble
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", translate.ErrEmptyCompletion
	}
	return resp.Text, nil
}

func splitMessages(messages []translate.Message) (string, string) {
	var system, user []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		user = append(user, m.Content)
	}
	return strings.Join(system, "\n\n"), strings.Join(user, "\n\n")
}
