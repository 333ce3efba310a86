package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/khakasnews/internal/bot"
	"github.com/deusflow/khakasnews/internal/cohere"
	"github.com/deusflow/khakasnews/internal/config"
	"github.com/deusflow/khakasnews/internal/gemini"
	"github.com/deusflow/khakasnews/internal/logger"
	"github.com/deusflow/khakasnews/internal/metrics"
	"github.com/deusflow/khakasnews/internal/monitor"
	"github.com/deusflow/khakasnews/internal/pipeline"
	"github.com/deusflow/khakasnews/internal/rss"
	"github.com/deusflow/khakasnews/internal/scraper"
	"github.com/deusflow/khakasnews/internal/telegram"
	"github.com/deusflow/khakasnews/internal/translate"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCompleter()

	transformer := translate.NewTransformer(completer, translate.DefaultPrompts(), log)
	extractor := scraper.New(cfg.ScrapeTimeout, scraper.SelectorsFromSite(cfg.Site), log)
	orchestrator := pipeline.New(extractor, transformer, metrics.Global, log)

	api := telegram.New(cfg.TelegramToken,
		telegram.WithLogger(logger.Component(log, "telegram")),
		// long polls must outlive the server-side timeout
		telegram.WithHTTPClient(&http.Client{Timeout: cfg.PollTimeout + 15*time.Second}),
	)

	b := bot.New(api, orchestrator, transformer, rss.NewReader(cfg.FeedTimeout), metrics.Global, bot.Options{
		ParseMode:   cfg.TelegramParseMode,
		PollTimeout: cfg.PollTimeout,
		FeedURL:     cfg.FeedURL,
		LatestLimit: cfg.LatestLimit,
	}, log)

	log.Info("starting bot", "provider", cfg.Provider, "site", cfg.Site.Name)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	if cfg.EnableHTTPMonitoring {
		g.Go(func() error {
			return monitor.Run(gctx, ":"+cfg.MonitoringPort, metrics.Global, log)
		})
	}
	return g.Wait()
}

func newCompleter(ctx context.Context, cfg *config.Config) (translate.Completer, func(), error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.CompletionTimeout)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case config.ProviderCohere:
		return cohere.NewClient(cfg.CohereAPIKey, cfg.CohereModel, "", cfg.CompletionTimeout), func() {}, nil
	default:
		return translate.NewOpenAICompleter(translate.OpenAIOptions{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Timeout: cfg.CompletionTimeout,
			Referer: "https://github.com/deusflow/khakasnews",
			Title:   "Khakas News Bot",
		}), func() {}, nil
	}
}
