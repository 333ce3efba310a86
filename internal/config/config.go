// Package config loads bot settings from the environment and the site locator file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderCohere     = "cohere"
)

type Config struct {
	// Telegram settings
	TelegramToken     string
	TelegramParseMode string // "", "Markdown", "MarkdownV2" or "HTML"
	PollTimeout       time.Duration

	// Completion service settings
	Provider          string // openrouter | gemini | cohere
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	GeminiAPIKey      string
	GeminiModel       string
	CohereAPIKey      string
	CohereModel       string
	CompletionTimeout time.Duration

	// Scraper settings
	SiteConfigPath string
	ScrapeTimeout  time.Duration
	Site           SiteConfig

	// Feed listing for /latest
	FeedURL     string
	FeedTimeout time.Duration
	LatestLimit int

	// App settings
	Debug                bool
	EnableHTTPMonitoring bool
	MonitoringPort       string
}

// SiteConfig holds the structural locators of the source site.
// Empty fields keep the scraper defaults.
//
//	name: khakaschiry
//	title_container: div.detail-title
//	title: h3
//	content: div.news-detail
//	image: div.detail-img img.detail_picture
//	block: div[style="text-align: justify;"]
type SiteConfig struct {
	Name           string `yaml:"name"`
	TitleContainer string `yaml:"title_container"`
	Title          string `yaml:"title"`
	Content        string `yaml:"content"`
	Image          string `yaml:"image"`
	Block          string `yaml:"block"`
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		Provider:          ProviderOpenRouter,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		OpenRouterModel:   "openai/gpt-3.5-turbo",
		GeminiModel:       "gemini-1.5-flash",
		CohereModel:       "command-r",
		CompletionTimeout: 120 * time.Second,
		ScrapeTimeout:     30 * time.Second,
		FeedTimeout:       15 * time.Second,
		PollTimeout:       30 * time.Second,
		SiteConfigPath:    "configs/site.yaml",
		LatestLimit:       5,
		MonitoringPort:    "8080",
	}

	// Load from environment
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.CohereAPIKey = os.Getenv("COHERE_API_KEY")
	cfg.TelegramParseMode = os.Getenv("TELEGRAM_PARSE_MODE")
	cfg.FeedURL = os.Getenv("FEED_URL")

	if p := os.Getenv("COMPLETION_PROVIDER"); p != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(p))
	}
	cfg.OpenRouterBaseURL = getEnvOrDefault("OPENROUTER_BASE_URL", cfg.OpenRouterBaseURL)
	cfg.OpenRouterModel = getEnvOrDefault("OPENROUTER_MODEL", cfg.OpenRouterModel)
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.CohereModel = getEnvOrDefault("COHERE_MODEL", cfg.CohereModel)
	cfg.SiteConfigPath = getEnvOrDefault("SITE_CONFIG_PATH", cfg.SiteConfigPath)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.CompletionTimeout = getEnvDurationOrDefault("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	cfg.ScrapeTimeout = getEnvDurationOrDefault("SCRAPE_TIMEOUT", cfg.ScrapeTimeout)
	cfg.FeedTimeout = getEnvDurationOrDefault("FEED_TIMEOUT", cfg.FeedTimeout)
	cfg.PollTimeout = getEnvDurationOrDefault("POLL_TIMEOUT", cfg.PollTimeout)

	if v := os.Getenv("LATEST_LIMIT"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.LatestLimit = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.EnableHTTPMonitoring = true
	}

	site, err := LoadSite(cfg.SiteConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	return cfg, cfg.Validate()
}

// LoadSite reads the locator file. A missing file is not an error.
func LoadSite(path string) (SiteConfig, error) {
	var site SiteConfig
	if path == "" {
		return site, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return site, nil
		}
		return site, fmt.Errorf("open site config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&site); err != nil {
		return site, fmt.Errorf("decode site config %s: %w", path, err)
	}
	return site, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderCohere:
		if c.CohereAPIKey == "" {
			return fmt.Errorf("COHERE_API_KEY is required")
		}
	default:
		return fmt.Errorf("COMPLETION_PROVIDER must be one of '%s', '%s', '%s'", ProviderOpenRouter, ProviderGemini, ProviderCohere)
	}
	switch c.TelegramParseMode {
	case "", "Markdown", "MarkdownV2", "HTML":
	default:
		return fmt.Errorf("TELEGRAM_PARSE_MODE must be empty, 'Markdown', 'MarkdownV2' or 'HTML'")
	}
	return nil
}
