// Package metrics provides a Prometheus-backed implementation of
// pkg/session.Recorder: counters/histograms for tool executions, stream
// events, compaction runs, doom-loop detections, and token usage.
//
// Grounded on haasonsaas-nexus's internal/observability.Metrics — a single
// struct of promauto-registered vectors plus thin Record* methods — scaled
// down to the five signals pkg/session.Recorder actually emits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
	"github.com/cexll/agentsdk-core/pkg/session"
)

var _ session.Recorder = (*Recorder)(nil)

// Recorder implements pkg/session.Recorder against Prometheus client_golang
// vectors. The zero value is not usable; construct with New.
type Recorder struct {
	toolExecutions *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	streamEvents   *prometheus.CounterVec
	compactionRuns prometheus.Counter
	doomLoops      *prometheus.CounterVec
	tokensUsed     *prometheus.CounterVec
}

// New creates and registers every vector with reg. Pass
// prometheus.NewRegistry() for an isolated registry (e.g. in tests) or
// prometheus.DefaultRegisterer to expose via the process-wide /metrics
// endpoint.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		toolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentsdk_tool_executions_total",
				Help: "Total tool executions by tool name and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentsdk_tool_execution_duration_seconds",
				Help:    "Tool execution duration in seconds, by tool name.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		streamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentsdk_stream_events_total",
				Help: "Total provider stream events by provider and event kind.",
			},
			[]string{"provider", "kind"},
		),
		compactionRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentsdk_compaction_runs_total",
				Help: "Total LLM-driven compaction runs across all sessions.",
			},
		),
		doomLoops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentsdk_doom_loop_detections_total",
				Help: "Total doom-loop detections by tool name.",
			},
			[]string{"tool"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentsdk_tokens_total",
				Help: "Total tokens consumed, by usage category.",
			},
			[]string{"category"},
		),
	}
}

// ToolExecuted implements session.Recorder.
func (r *Recorder) ToolExecuted(name string, success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	r.toolExecutions.WithLabelValues(name, outcome).Inc()
	r.toolDuration.WithLabelValues(name).Observe(d.Seconds())
}

// StreamEvent implements session.Recorder.
func (r *Recorder) StreamEvent(providerName string, kind provider.EventKind) {
	r.streamEvents.WithLabelValues(providerName, string(kind)).Inc()
}

// CompactionRun implements session.Recorder.
func (r *Recorder) CompactionRun() {
	r.compactionRuns.Inc()
}

// DoomLoopDetected implements session.Recorder.
func (r *Recorder) DoomLoopDetected(toolName string) {
	r.doomLoops.WithLabelValues(toolName).Inc()
}

// TokensUsed implements session.Recorder.
func (r *Recorder) TokensUsed(u message.Usage) {
	r.tokensUsed.WithLabelValues("input").Add(float64(u.InputTokens))
	r.tokensUsed.WithLabelValues("output").Add(float64(u.OutputTokens))
	r.tokensUsed.WithLabelValues("cache_read").Add(float64(u.CacheReadTokens))
	r.tokensUsed.WithLabelValues("cache_write").Add(float64(u.CacheWriteTokens))
}
