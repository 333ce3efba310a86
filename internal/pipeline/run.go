package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/khakasnews/internal/scraper"
)

type Stage int

const (
	StageExtracting Stage = iota
	StageTranslating
	StageRewriting
	StageDelivering
	StageDelivered
	StageFailed
	// StageDeliveryFailed ends a run whose result was ready but could not be handed over.
	StageDeliveryFailed
)

func (s Stage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageTranslating:
		return "translating"
	case StageRewriting:
		return "rewriting"
	case StageDelivering:
		return "delivering"
	case StageDelivered:
		return "delivered"
	case StageFailed:
		return "failed"
	case StageDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDelivered || s == StageFailed || s == StageDeliveryFailed
}

// Run is the state of one request. It belongs to a single Process call.
type Run struct {
	ID      string
	URL     string
	Article *scraper.Article
	// Text holds the translation, then the rewritten text.
	Text     string
	Stage    Stage
	FailedAt Stage
	Cause    error

	StartedAt  time.Time
	FinishedAt time.Time
}

func newRun(url string) *Run {
	return &Run{ID: uuid.New().String(), URL: url, Stage: StageExtracting, FailedAt: StageExtracting, StartedAt: time.Now()}
}

func (r *Run) advance(next Stage) {
	r.Stage = next
}

func (r *Run) Delivered() bool {
	return r.Stage == StageDelivered
}

func (r *Run) Failed() bool {
	return r.Stage == StageFailed || r.Stage == StageDeliveryFailed
}

func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
