package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsStarted          int64
	RunsDelivered        int64
	ExtractionFailures   int64
	TranslationFailures  int64
	RewriteFailures      int64
	DeliveryFailures     int64
	ChatReplies          int64
	TelegramMessagesSent int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) IncrementRunsStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsStarted++
	m.LastRunTime = time.Now()
}

func (m *Metrics) IncrementRunsDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsDelivered++
	m.IsHealthy = true
}

func (m *Metrics) IncrementExtractionFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionFailures++
}

func (m *Metrics) IncrementTranslationFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationFailures++
}

func (m *Metrics) IncrementRewriteFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewriteFailures++
}

func (m *Metrics) IncrementDeliveryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryFailures++
}

func (m *Metrics) IncrementChatReplies() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatReplies++
}

func (m *Metrics) IncrementTelegramMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelegramMessagesSent++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

// SetError records the last failure. Only transport-level problems of the bot
// itself mark it unhealthy; per-run failures are counted, not alarmed.
func (m *Metrics) SetError(err string, unhealthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	if unhealthy {
		m.IsHealthy = false
	}
}

func (m *Metrics) SetHealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IsHealthy = true
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_started":               m.RunsStarted,
		"runs_delivered":             m.RunsDelivered,
		"extraction_failures":        m.ExtractionFailures,
		"translation_failures":       m.TranslationFailures,
		"rewrite_failures":           m.RewriteFailures,
		"delivery_failures":          m.DeliveryFailures,
		"chat_replies":               m.ChatReplies,
		"telegram_messages_sent":     m.TelegramMessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
