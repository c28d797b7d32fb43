package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/provider"
)

func TestToolExecutedRecordsOutcomeAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ToolExecuted("bash", true, 120*time.Millisecond)
	r.ToolExecuted("bash", false, 50*time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(r.toolExecutions.WithLabelValues("bash", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(r.toolExecutions.WithLabelValues("bash", "error")))
}

func TestStreamEventCountsByProviderAndKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.StreamEvent("anthropic", provider.EventTextDelta)
	r.StreamEvent("anthropic", provider.EventTextDelta)
	r.StreamEvent("openai", provider.EventToolCallComplete)

	require.Equal(t, float64(2), testutil.ToFloat64(r.streamEvents.WithLabelValues("anthropic", string(provider.EventTextDelta))))
	require.Equal(t, float64(1), testutil.ToFloat64(r.streamEvents.WithLabelValues("openai", string(provider.EventToolCallComplete))))
}

func TestCompactionRunIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.CompactionRun()
	r.CompactionRun()

	require.Equal(t, float64(2), testutil.ToFloat64(r.compactionRuns))
}

func TestDoomLoopDetectedTracksToolName(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.DoomLoopDetected("read")

	require.Equal(t, float64(1), testutil.ToFloat64(r.doomLoops.WithLabelValues("read")))
}

func TestTokensUsedSplitsByCategory(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.TokensUsed(message.Usage{InputTokens: 100, OutputTokens: 40, CacheReadTokens: 10, CacheWriteTokens: 5})

	require.Equal(t, float64(100), testutil.ToFloat64(r.tokensUsed.WithLabelValues("input")))
	require.Equal(t, float64(40), testutil.ToFloat64(r.tokensUsed.WithLabelValues("output")))
	require.Equal(t, float64(10), testutil.ToFloat64(r.tokensUsed.WithLabelValues("cache_read")))
	require.Equal(t, float64(5), testutil.ToFloat64(r.tokensUsed.WithLabelValues("cache_write")))
}
