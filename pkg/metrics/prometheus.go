package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cost per thousand grader tokens, in dollars.
const (
	promptCostPer1K     = 0.005
	completionCostPer1K = 0.015
)

// Manager manages all Prometheus metrics for the gamesdesk job.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Remote call layer
	remoteCalls       *prometheus.CounterVec
	remoteRetries     *prometheus.CounterVec
	remoteWaitSeconds *prometheus.HistogramVec
	throttleWait      prometheus.Histogram

	// Ingestion
	messagesFetched      *prometheus.CounterVec
	messagesSkipped      *prometheus.CounterVec
	submissionsIngested  *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	cellsReformatted     prometheus.Counter

	// Grading
	grades            *prometheus.CounterVec
	gradingErrors     prometheus.Counter
	rubricsGenerated  *prometheus.CounterVec
	graderTokens      *prometheus.CounterVec
	graderCostDollars prometheus.Counter
	windowMisses      *prometheus.CounterVec

	// Winners
	winnerWindows  prometheus.Gauge
	swagRerolls    prometheus.Counter
	swagKept       prometheus.Counter
	phaseDurations *prometheus.HistogramVec
	lastSuccess    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gamesdesk",
		subsystem:        "batch",
		histogramBuckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.remoteCalls = m.counterVec("remote_calls_total", "Remote calls by operation and outcome", "op", "outcome")
	m.remoteRetries = m.counterVec("remote_retries_total", "Remote call retries by failure class", "class")
	m.remoteWaitSeconds = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "remote_backoff_seconds",
		Help:    "Backoff waits chosen by the retry policy",
		Buckets: m.histogramBuckets,
	}, []string{"class"})
	m.throttleWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "throttle_wait_seconds",
		Help:    "Time spent waiting on the process-wide throttle",
		Buckets: m.histogramBuckets,
	})

	m.messagesFetched = m.counterVec("messages_fetched_total", "Mail messages fetched by game", "game")
	m.messagesSkipped = m.counterVec("messages_skipped_total", "Mail messages skipped by reason", "reason")
	m.submissionsIngested = m.counterVec("submissions_ingested_total", "New submission rows appended by game", "game")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Messages dropped because their dedup key was already stored")
	m.cellsReformatted = m.counter("cells_reformatted_total", "Submission cells rewritten by the cleanup phase")

	m.grades = m.counterVec("grades_total", "Grades written by verdict", "verdict")
	m.gradingErrors = m.counter("grading_errors_total", "Grading service failures downgraded to Uncertain")
	m.rubricsGenerated = m.counterVec("rubrics_generated_total", "Rubrics synthesized by source", "source")
	m.graderTokens = m.counterVec("grader_tokens_total", "Grader tokens consumed by kind", "kind")
	m.graderCostDollars = m.counter("grader_cost_dollars_total", "Estimated grader spend in dollars")
	m.windowMisses = m.counterVec("window_misses_total", "Submissions with no matching game window", "game")

	m.winnerWindows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "winner_windows", Help: "Winner rows written in the last run",
	})
	m.swagRerolls = m.counter("swag_rerolls_total", "Swag winners drawn at random")
	m.swagKept = m.counter("swag_kept_total", "Swag winners carried over from the previous run")
	m.phaseDurations = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "phase_duration_seconds",
		Help:    "Wall time of each batch phase",
		Buckets: m.histogramBuckets,
	}, []string{"phase"})
	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "last_success_unixtime", Help: "Unix time of the last completed run",
	})
}

// Remote call layer.

func RecordRemoteCall(op, outcome string) {
	globalManager.remoteCalls.WithLabelValues(op, outcome).Inc()
}

func RecordRemoteRetry(class string, waitSeconds float64) {
	globalManager.remoteRetries.WithLabelValues(class).Inc()
	globalManager.remoteWaitSeconds.WithLabelValues(class).Observe(waitSeconds)
}

func RecordThrottleWait(seconds float64) {
	globalManager.throttleWait.Observe(seconds)
}

// Ingestion.

func RecordMessageFetched(game string) {
	globalManager.messagesFetched.WithLabelValues(game).Inc()
}

func RecordMessageSkipped(reason string) {
	globalManager.messagesSkipped.WithLabelValues(reason).Inc()
}

func RecordSubmissionsIngested(game string, n int) {
	globalManager.submissionsIngested.WithLabelValues(game).Add(float64(n))
}

func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

func RecordCellsReformatted(n int) {
	globalManager.cellsReformatted.Add(float64(n))
}

// Grading.

func RecordGrade(verdict string) {
	globalManager.grades.WithLabelValues(verdict).Inc()
}

func RecordGradingError() {
	globalManager.gradingErrors.Inc()
}

func RecordRubricGenerated(source string) {
	globalManager.rubricsGenerated.WithLabelValues(source).Inc()
}

func RecordWindowMiss(game string) {
	globalManager.windowMisses.WithLabelValues(game).Inc()
}

// RecordGraderUsage adds token counts and returns the estimated cost of this
// call in dollars.
func RecordGraderUsage(promptTokens, completionTokens int) float64 {
	cost := EstimateCost(promptTokens, completionTokens)
	globalManager.graderTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	globalManager.graderTokens.WithLabelValues("completion").Add(float64(completionTokens))
	globalManager.graderCostDollars.Add(cost)
	return cost
}

// EstimateCost prices a grader call from its token counts.
func EstimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*promptCostPer1K + float64(completionTokens)/1000*completionCostPer1K
}

// Winners and run.

func UpdateWinnerWindows(n int) {
	globalManager.winnerWindows.Set(float64(n))
}

func RecordSwagKept() {
	globalManager.swagKept.Inc()
}

func RecordSwagReroll() {
	globalManager.swagRerolls.Inc()
}

func RecordPhaseDuration(phase string, seconds float64) {
	globalManager.phaseDurations.WithLabelValues(phase).Observe(seconds)
}

func MarkRunSucceeded() {
	globalManager.lastSuccess.SetToCurrentTime()
}

// GetRegistry returns the custom registry holding every gamesdesk metric.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
