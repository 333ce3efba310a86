package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/khakasnews/internal/config"
	"github.com/deusflow/khakasnews/internal/logger"
)

// ErrNotFound is returned for every extraction failure: unreachable page,
// bad status, or missing required structure.
var ErrNotFound = errors.New("article not found")

// TitlePlaceholder is used when the title container has no usable title text.
const TitlePlaceholder = "Заголовок не найден"

const userAgent = "khakasnews/1.0"

// Article is the extracted page content. Title and Body are never empty.
type Article struct {
	Title    string
	Body     string
	ImageURL string
	URL      string
}

func newArticle(title, body, imageURL, pageURL string) (*Article, error) {
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: empty title or body", ErrNotFound)
	}
	return &Article{Title: title, Body: body, ImageURL: imageURL, URL: pageURL}, nil
}

// Selectors locate the parts of an article page.
type Selectors struct {
	TitleContainer string
	Title          string // relative to TitleContainer
	Content        string
	Image          string // relative to Content
	Block          string // relative to Content
}

// DefaultSelectors match the layout of the source news site.
func DefaultSelectors() Selectors {
	return Selectors{
		TitleContainer: "div.detail-title",
		Title:          "h3",
		Content:        "div.news-detail",
		Image:          "div.detail-img img.detail_picture",
		Block:          `div[style="text-align: justify;"]`,
	}
}

// SelectorsFromSite overlays configured locators on the defaults.
func SelectorsFromSite(site config.SiteConfig) Selectors {
	s := DefaultSelectors()
	if site.TitleContainer != "" {
		s.TitleContainer = site.TitleContainer
	}
	if site.Title != "" {
		s.Title = site.Title
	}
	if site.Content != "" {
		s.Content = site.Content
	}
	if site.Image != "" {
		s.Image = site.Image
	}
	if site.Block != "" {
		s.Block = site.Block
	}
	return s
}

type Scraper struct {
	client    *http.Client
	selectors Selectors
	log       *slog.Logger
}

// New makes a scraper with its own HTTP client. Redirects are followed.
func New(timeout time.Duration, selectors Selectors, log *slog.Logger) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		selectors: selectors,
		log:       logger.Component(log, "scraper"),
	}
}

// Extract fetches pageURL once and parses it into an Article.
// Every failure wraps ErrNotFound.
func (s *Scraper) Extract(ctx context.Context, pageURL string) (*Article, error) {
	s.log.Info("extracting article", "url", pageURL)

	doc, base, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		s.log.Error("fetch failed", "url", pageURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	article, err := s.parse(doc, base)
	if err != nil {
		s.log.Error("extraction failed", "url", pageURL, "error", err)
		return nil, err
	}
	article.URL = pageURL

	s.log.Info("article extracted", "title", article.Title, "body_chars", len(article.Body), "has_image", article.ImageURL != "")
	return article, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse HTML: %w", err)
	}

	// Resolve relative links against the final URL after redirects.
	base := resp.Request.URL
	if base == nil {
		base = req.URL
	}
	return doc, base, nil
}

func (s *Scraper) parse(doc *goquery.Document, base *url.URL) (*Article, error) {
	titleContainer := doc.Find(s.selectors.TitleContainer).First()
	if titleContainer.Length() == 0 {
		return nil, fmt.Errorf("%w: title container %q missing", ErrNotFound, s.selectors.TitleContainer)
	}
	title := strings.TrimSpace(titleContainer.Find(s.selectors.Title).First().Text())
	if title == "" {
		title = TitlePlaceholder
	}

	container := doc.Find(s.selectors.Content).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: content container %q missing", ErrNotFound, s.selectors.Content)
	}

	imageURL := extractImage(container, s.selectors.Image, base)

	body := extractBody(container, s.selectors.Block)
	if body == "" {
		return nil, fmt.Errorf("%w: no text in content container", ErrNotFound)
	}

	return newArticle(title, body, imageURL, base.String())
}

func extractImage(container *goquery.Selection, selector string, base *url.URL) string {
	src, ok := container.Find(selector).First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractBody joins the trimmed non-blank blocks in document order.
func extractBody(container *goquery.Selection, selector string) string {
	var blocks []string
	container.Find(selector).Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n")
}
