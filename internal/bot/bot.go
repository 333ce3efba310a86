// Package bot receives Telegram updates by long polling and dispatches
// commands. Every update is handled on its own goroutine.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deusflow/khakasnews/internal/logger"
	"github.com/deusflow/khakasnews/internal/metrics"
	"github.com/deusflow/khakasnews/internal/pipeline"
	"github.com/deusflow/khakasnews/internal/rss"
	"github.com/deusflow/khakasnews/internal/telegram"
	"github.com/deusflow/khakasnews/internal/translate"
)

// API is the part of the Bot API the bot uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption, parseMode string) error
}

type Processor interface {
	Process(ctx context.Context, url string, req pipeline.Requester) *pipeline.Run
}

type FeedReader interface {
	Latest(ctx context.Context, feedURL string, n int) ([]rss.Item, error)
}

type Options struct {
	// ParseMode applies to delivered articles. Status messages are plain.
	ParseMode   string
	PollTimeout time.Duration
	FeedURL     string
	LatestLimit int
	// RetryDelay is the pause after a failed getUpdates call.
	RetryDelay time.Duration
}

const (
	msgStart = "Привет, %s! Я перевожу новости с хакасского языка на русский.\n\n" +
		"Пришлите /news и ссылку на статью, и я верну переведённый и переписанный текст."
	msgHelp = "Команды:\n" +
		"/news <ссылка> - перевести и переписать статью\n" +
		"/latest - последние статьи с сайта\n" +
		"/help - эта справка\n\n" +
		"Любой другой текст я передам в нейросеть как обычный вопрос."
	msgNewsUsage   = "Использование: /news <ссылка на статью>"
	msgNoFeed      = "Лента новостей не настроена."
	msgFeedFailed  = "Не удалось загрузить ленту новостей."
	msgFeedEmpty   = "В ленте пока нет новостей."
	msgLatestTitle = "Последние новости:\n\n"
)

type Bot struct {
	api       API
	processor Processor
	chat      pipeline.Transformer
	feed      FeedReader
	metrics   *metrics.Metrics
	opts      Options
	log       *slog.Logger

	wg sync.WaitGroup
}

func New(api API, processor Processor, chat pipeline.Transformer, feed FeedReader, m *metrics.Metrics, opts Options, log *slog.Logger) *Bot {
	if m == nil {
		m = metrics.New()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.LatestLimit <= 0 {
		opts.LatestLimit = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	return &Bot{
		api:       api,
		processor: processor,
		chat:      chat,
		feed:      feed,
		metrics:   m,
		opts:      opts,
		log:       logger.Component(log, "bot"),
	}
}

// Run polls for updates until ctx is canceled, then waits for in-flight
// handlers to finish. Handlers do not inherit the cancellation: a started run
// always reaches a terminal stage.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()
	handlerCtx := context.WithoutCancel(ctx)

	b.log.Info("polling for updates", "timeout", b.opts.PollTimeout)
	var offset int64
	for {
		updates, err := b.api.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Info("polling stopped")
				return nil
			}
			b.log.Error("getUpdates failed", "error", err)
			b.metrics.SetError(err.Error(), true)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.opts.RetryDelay):
			}
			continue
		}
		b.metrics.SetHealthy()

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			msg := u.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(handlerCtx, msg)
			}()
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *telegram.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panicked", "chat_id", msg.Chat.ID, "panic", r)
		}
	}()

	cmd, arg := parseCommand(msg.Text)
	log := b.log.With("chat_id", msg.Chat.ID)
	if cmd != "" {
		log.Debug("command received", "command", cmd)
	}

	switch cmd {
	case "":
		b.handleChat(ctx, msg.Chat.ID, arg)
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(ctx, msg.Chat.ID, msgHelp, "")
	case "news":
		b.handleNews(ctx, msg.Chat.ID, arg)
	case "latest":
		b.handleLatest(ctx, msg.Chat.ID)
	default:
		b.reply(ctx, msg.Chat.ID, msgHelp, "")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	name := "друг"
	if msg.From != nil {
		name = telegram.Mention(msg.From)
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(msgStart, name), "HTML")
}

func (b *Bot) handleNews(ctx context.Context, chatID int64, arg string) {
	url := firstField(arg)
	if url == "" {
		b.reply(ctx, chatID, msgNewsUsage, "")
		return
	}
	b.processor.Process(ctx, url, &chatRequester{bot: b, chatID: chatID})
}

func (b *Bot) handleLatest(ctx context.Context, chatID int64) {
	if b.feed == nil || b.opts.FeedURL == "" {
		b.reply(ctx, chatID, msgNoFeed, "")
		return
	}
	items, err := b.feed.Latest(ctx, b.opts.FeedURL, b.opts.LatestLimit)
	if err != nil {
		b.log.Warn("feed not loaded", "feed", b.opts.FeedURL, "error", err)
		b.reply(ctx, chatID, msgFeedFailed, "")
		return
	}
	if len(items) == 0 {
		b.reply(ctx, chatID, msgFeedEmpty, "")
		return
	}
	b.reply(ctx, chatID, msgLatestTitle+rss.Format(items), "")
}

func (b *Bot) handleChat(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	res := b.chat.Transform(ctx, translate.RoleChat, text)
	if !res.Failed() {
		b.metrics.IncrementChatReplies()
	}
	b.reply(ctx, chatID, res.Message(), "")
}

func (b *Bot) reply(ctx context.Context, chatID int64, text, parseMode string) {
	if err := b.send(ctx, chatID, text, parseMode); err != nil {
		b.log.Warn("reply not delivered", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text, parseMode string) error {
	if err := b.api.SendMessage(ctx, chatID, text, parseMode); err != nil {
		return err
	}
	b.metrics.IncrementTelegramMessagesSent()
	return nil
}

// parseCommand splits "/cmd@bot args" into a lowercase command and the rest.
// Text that is not a command comes back as arg with an empty command.
func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	head := text
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, arg = text[:i], strings.TrimSpace(text[i+1:])
	}
	cmd = strings.TrimPrefix(head, "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), arg
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
