// Package pipeline runs one article through extraction, translation, rewriting
// and delivery, stopping at the first failed stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/khakasnews/internal/logger"
	"github.com/deusflow/khakasnews/internal/metrics"
	"github.com/deusflow/khakasnews/internal/scraper"
	"github.com/deusflow/khakasnews/internal/translate"
)

// Extractor turns a page URL into an article. Failures wrap scraper.ErrNotFound.
type Extractor interface {
	Extract(ctx context.Context, url string) (*scraper.Article, error)
}

// Transformer runs one completion role over a text.
type Transformer interface {
	Transform(ctx context.Context, role translate.Role, text string) translate.Result
}

// Requester is the chat that asked for the run.
type Requester interface {
	Notify(ctx context.Context, text string) error
	SendText(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// User-visible messages.
const (
	msgAccepted         = "Принял ссылку, начинаю обработку: %s"
	msgExtracted        = "Статья получена: «%s». Перевожу текст..."
	msgTranslated       = "Перевод готов."
	msgRewriting        = "Делаю рерайт текста..."
	msgExtractionFailed = "Не удалось получить статью по ссылке. Проверьте адрес страницы. Причина: %v"
	msgTranslateFailed  = "Ошибка на этапе перевода. %s"
	msgRewriteFailed    = "Ошибка на этапе рерайта. %s"
	msgDeliveryFailed   = "Не удалось отправить результат: %v"
)

type Orchestrator struct {
	extractor   Extractor
	transformer Transformer
	metrics     *metrics.Metrics
	log         *slog.Logger
}

func New(extractor Extractor, transformer Transformer, m *metrics.Metrics, log *slog.Logger) *Orchestrator {
	if m == nil {
		m = metrics.New()
	}
	return &Orchestrator{
		extractor:   extractor,
		transformer: transformer,
		metrics:     m,
		log:         logger.Component(log, "pipeline"),
	}
}

// Caption composes the delivered text: bold title, blank line, body.
func Caption(title, text string) string {
	return "**" + title + "**\n\n" + text
}

// Process runs the whole pipeline for url and reports to req. It always
// returns a run in a terminal stage.
func (o *Orchestrator) Process(ctx context.Context, url string, req Requester) *Run {
	run := newRun(url)
	log := o.log.With("run_id", run.ID, "url", url)
	o.metrics.IncrementRunsStarted()
	defer func() {
		run.FinishedAt = time.Now()
		o.metrics.RecordProcessingTime(run.Duration())
		if run.Failed() {
			log.Info("run finished", "stage", run.Stage, "failed_at", run.FailedAt, "duration", run.Duration())
			return
		}
		log.Info("run finished", "stage", run.Stage, "duration", run.Duration())
	}()

	o.notify(ctx, req, fmt.Sprintf(msgAccepted, url))

	// Extracting
	article, err := o.extractor.Extract(ctx, url)
	if err != nil {
		if !errors.Is(err, scraper.ErrNotFound) {
			err = fmt.Errorf("%w: %v", scraper.ErrNotFound, err)
		}
		o.metrics.IncrementExtractionFailures()
		o.fail(ctx, log, req, run, err, fmt.Sprintf(msgExtractionFailed, err))
		return run
	}
	run.Article = article
	run.advance(StageTranslating)
	o.notify(ctx, req, fmt.Sprintf(msgExtracted, article.Title))

	// Translating
	res := o.transformer.Transform(ctx, translate.RoleTranslate, article.Body)
	if res.Failed() {
		o.metrics.IncrementTranslationFailures()
		o.fail(ctx, log, req, run, res.Cause, fmt.Sprintf(msgTranslateFailed, res.Message()))
		return run
	}
	run.Text = res.Text
	o.notify(ctx, req, msgTranslated)

	// Rewriting
	run.advance(StageRewriting)
	o.notify(ctx, req, msgRewriting)
	res = o.transformer.Transform(ctx, translate.RoleRewrite, run.Text)
	if res.Failed() {
		o.metrics.IncrementRewriteFailures()
		o.fail(ctx, log, req, run, res.Cause, fmt.Sprintf(msgRewriteFailed, res.Message()))
		return run
	}
	run.Text = res.Text

	// Delivering
	run.advance(StageDelivering)
	if err := o.deliver(ctx, req, run); err != nil {
		o.metrics.IncrementDeliveryFailures()
		run.Cause = err
		run.FailedAt = StageDelivering
		run.advance(StageDeliveryFailed)
		log.Error("delivery failed", "error", err)
		o.notify(ctx, req, fmt.Sprintf(msgDeliveryFailed, err))
		return run
	}

	run.advance(StageDelivered)
	o.metrics.IncrementRunsDelivered()
	return run
}

func (o *Orchestrator) deliver(ctx context.Context, req Requester, run *Run) error {
	caption := Caption(run.Article.Title, run.Text)
	if run.Article.ImageURL != "" {
		return req.SendPhoto(ctx, run.Article.ImageURL, caption)
	}
	return req.SendText(ctx, caption)
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, req Requester, run *Run, cause error, message string) {
	run.Cause = cause
	run.FailedAt = run.Stage
	run.advance(StageFailed)
	o.metrics.SetError(fmt.Sprintf("%s: %v", run.FailedAt, cause), false)
	log.Warn("run failed", "stage", run.FailedAt, "error", cause)
	o.notify(ctx, req, message)
}

// notify sends a status message. Lost notifications never fail the run.
func (o *Orchestrator) notify(ctx context.Context, req Requester, text string) {
	if err := req.Notify(ctx, text); err != nil {
		o.log.Warn("notification not delivered", "error", err)
	}
}
