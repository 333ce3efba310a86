package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/khakasnews/internal/translate"
)

// Client is a completion backend on top of the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ translate.Completer = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &Client{client: client, model: model, timeout: timeout}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Complete maps system messages to the model's system instruction and sends
// the user messages as the prompt.
func (c *Client) Complete(ctx context.Context, messages []translate.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	system, parts := splitMessages(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no user message to send")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

func splitMessages(messages []translate.Message) (string, []genai.Part) {
	var system []string
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", translate.ErrEmptyCompletion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", translate.ErrEmptyCompletion
	}
	return b.String(), nil
}
