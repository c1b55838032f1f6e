package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/platform/envutil"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// Metrics is a hand-rolled Prometheus text registry. Every method is safe
// on a nil receiver so callers can use Current() unconditionally.
type Metrics struct {
	httpRequests *CounterVec
	httpLatency  *HistogramVec
	httpInflight *GaugeVec

	quizSubmissions *CounterVec
	levelPromotions *CounterVec
	placements      *CounterVec
	quizGeneration  *CounterVec
	aiCalls         *CounterVec
	aiLatency       *HistogramVec

	dbPool  *GaugeVec
	cacheUp *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current is nil unless Init ran with METRICS_ENABLED.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		log.Info("metrics enabled")
	})
	return instance
}

func New() *Metrics {
	return &Metrics{
		httpRequests: NewCounterVec("rj_http_requests_total", "HTTP requests by method/route/status.", []string{"method", "route", "status"}),
		httpLatency: NewHistogramVec("rj_http_request_duration_seconds", "HTTP request latency by method/route.",
			[]string{"method", "route"}, []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		httpInflight: NewGaugeVec("rj_http_inflight_requests", "In-flight HTTP requests.", nil),

		quizSubmissions: NewCounterVec("rj_quiz_submissions_total", "Quiz submissions by outcome (passed|failed|error).", []string{"outcome"}),
		levelPromotions: NewCounterVec("rj_level_promotions_total", "Level mastery promotions by completed level.", []string{"level"}),
		placements:      NewCounterVec("rj_diagnostic_placements_total", "Diagnostic placements by assigned level.", []string{"level"}),
		quizGeneration:  NewCounterVec("rj_quiz_generation_total", "Quiz population attempts by outcome (generated|conflict|error).", []string{"outcome"}),
		aiCalls:         NewCounterVec("rj_ai_calls_total", "Tutor calls by operation/outcome (ok|fallback|error).", []string{"op", "outcome"}),
		aiLatency: NewHistogramVec("rj_ai_call_duration_seconds", "Tutor call latency by operation.",
			[]string{"op"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30}),

		dbPool:  NewGaugeVec("rj_db_pool", "database/sql pool stats.", []string{"stat"}),
		cacheUp: NewGaugeVec("rj_cache_up", "Content cache connectivity (1=up, 0=down).", nil),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface{ WritePrometheus(io.Writer) error }

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.httpRequests, m.httpLatency, m.httpInflight,
		m.quizSubmissions, m.levelPromotions, m.placements, m.quizGeneration,
		m.aiCalls, m.aiLatency,
		m.dbPool, m.cacheUp,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.Inc(method, route, strconv.Itoa(status))
	m.httpLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.httpInflight.Add(1)
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.httpInflight.Add(-1)
}

func (m *Metrics) IncQuizSubmission(outcome string) {
	if m == nil {
		return
	}
	m.quizSubmissions.Inc(outcome)
}

func (m *Metrics) IncLevelPromotion(level string) {
	if m == nil {
		return
	}
	m.levelPromotions.Inc(level)
}

func (m *Metrics) IncPlacement(level string) {
	if m == nil {
		return
	}
	m.placements.Inc(level)
}

func (m *Metrics) IncQuizGeneration(outcome string) {
	if m == nil {
		return
	}
	m.quizGeneration.Inc(outcome)
}

func (m *Metrics) ObserveAICall(op, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aiCalls.Inc(op, outcome)
	m.aiLatency.Observe(dur.Seconds(), op)
}

// QuizSubmissions reads a counter value; used by tests and the health page.
func (m *Metrics) QuizSubmissions(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.quizSubmissions.Value(outcome)
}

func (m *Metrics) AICalls(op, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.aiCalls.Value(op, outcome)
}

func (m *Metrics) QuizGenerations(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.quizGeneration.Value(outcome)
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second)
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}

// StartDBCollector samples database/sql pool stats until ctx ends.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
					continue
				}
				s := sqlDB.Stats()
				m.dbPool.Set(float64(s.OpenConnections), "open_connections")
				m.dbPool.Set(float64(s.InUse), "in_use")
				m.dbPool.Set(float64(s.Idle), "idle")
				m.dbPool.Set(float64(s.WaitCount), "wait_count")
				m.dbPool.Set(s.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

type pinger interface {
	Ping(ctx context.Context) error
}

// StartCacheCollector pings the content cache until ctx ends.
func (m *Metrics) StartCacheCollector(ctx context.Context, log *logger.Logger, c pinger) {
	if m == nil || c == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err := c.Ping(pctx)
				cancel()
				if err != nil {
					m.cacheUp.Set(0)
					log.Warn("metrics: cache ping failed", "error", err)
					continue
				}
				m.cacheUp.Set(1)
			}
		}
	}()
}
