package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/khakasnews/internal/logger"
)

// ErrorPrefix marks a failed transformation when it is shown to the user.
const ErrorPrefix = "Ошибка API: "

// ErrEmptyCompletion is reported when the service answers without usable text.
var ErrEmptyCompletion = errors.New("empty completion")

type Role string

const (
	RoleTranslate Role = "translate"
	RoleRewrite   Role = "rewrite"
	RoleChat      Role = "chat"
)

// Message is one chat message sent to the completion service.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// Completer sends messages to a completion backend and returns the first answer.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Prompt defines how a role frames its input. An empty System sends the user
// message alone.
type Prompt struct {
	System       string
	UserTemplate string // must contain one %s for the source text
}

// DefaultPrompts translate Khakas news into Russian and paraphrase it.
func DefaultPrompts() map[Role]Prompt {
	return map[Role]Prompt{
		RoleTranslate: {
			System: "Ты профессиональный переводчик с хакасского языка на русский. " +
				"Переведи текст полностью, сохраняя смысл и структуру. " +
				"Не добавляй комментариев и вводных фраз, дай только перевод.",
			UserTemplate: "Переведи этот текст с хакасского на русский:\n\n%s",
		},
		RoleRewrite: {
			System: "Ты профессиональный редактор новостей. Перепиши текст своими словами, чтобы он стал уникальным. " +
				"Сохрани смысл, факты, имена и цифры. Отвечай только переписанным текстом, без вступлений.",
			UserTemplate: "Сделай рерайт этого текста:\n\n%s",
		},
		RoleChat: {
			UserTemplate: "%s",
		},
	}
}

// Result is the outcome of one transformation.
type Result struct {
	Text  string
	Cause error
}

func (r Result) Failed() bool {
	return r.Cause != nil
}

// Message is the text shown to the user: the transformed text, or the error
// prefix followed by the cause.
func (r Result) Message() string {
	if r.Failed() {
		return ErrorPrefix + r.Cause.Error()
	}
	return r.Text
}

type Transformer struct {
	completer Completer
	prompts   map[Role]Prompt
	log       *slog.Logger
}

func NewTransformer(completer Completer, prompts map[Role]Prompt, log *slog.Logger) *Transformer {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Transformer{
		completer: completer,
		prompts:   prompts,
		log:       logger.Component(log, "translate"),
	}
}

// Transform runs one completion for role. It never returns an error value:
// failures are carried in Result.Cause.
func (t *Transformer) Transform(ctx context.Context, role Role, text string) Result {
	t.log.Info("transform started", "role", role, "chars", len(text))

	messages, err := t.buildMessages(role, text)
	if err != nil {
		return t.fail(role, err)
	}

	reply, err := t.complete(ctx, messages)
	if err != nil {
		return t.fail(role, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return t.fail(role, ErrEmptyCompletion)
	}

	t.log.Info("transform finished", "role", role, "chars", len(reply))
	return Result{Text: reply}
}

func (t *Transformer) buildMessages(role Role, text string) ([]Message, error) {
	if t.completer == nil {
		return nil, errors.New("completion service is not configured")
	}
	prompt, ok := t.prompts[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user := text
	if prompt.UserTemplate != "" {
		user = fmt.Sprintf(prompt.UserTemplate, text)
	}

	messages := make([]Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, Message{Role: "system", Content: prompt.System})
	}
	return append(messages, Message{Role: "user", Content: user}), nil
}

// complete shields the caller from panics inside a backend.
func (t *Transformer) complete(ctx context.Context, messages []Message) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion panicked: %v", r)
		}
	}()
	return t.completer.Complete(ctx, messages)
}

func (t *Transformer) fail(role Role, err error) Result {
	t.log.Error("transform failed", "role", role, "error", err)
	return Result{Cause: err}
}
