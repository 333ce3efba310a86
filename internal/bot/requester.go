package bot

import (
	"context"

	"github.com/deusflow/khakasnews/internal/pipeline"
	"github.com/deusflow/khakasnews/internal/telegram"
)

// chatRequester reports one run back to the chat that asked for it.
type chatRequester struct {
	bot    *Bot
	chatID int64
}

var _ pipeline.Requester = (*chatRequester)(nil)

func (r *chatRequester) Notify(ctx context.Context, text string) error {
	return r.bot.send(ctx, r.chatID, text, "")
}

func (r *chatRequester) SendText(ctx context.Context, text string) error {
	mode := r.bot.opts.ParseMode
	return r.bot.send(ctx, r.chatID, telegram.RenderBold(text, mode), mode)
}

func (r *chatRequester) SendPhoto(ctx context.Context, photoURL, caption string) error {
	mode := r.bot.opts.ParseMode
	if err := r.bot.api.SendPhoto(ctx, r.chatID, photoURL, telegram.RenderBold(caption, mode), mode); err != nil {
		return err
	}
	r.bot.metrics.IncrementTelegramMessagesSent()
	return nil
}
