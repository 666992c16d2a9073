package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fathomio/fathom-core/internal/align"
	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/metrics"
	"github.com/fathomio/fathom-core/internal/normalize"
)

func TestDefaultsValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(&cfg))
}

func TestValidateCatchesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"
	cfg.NodeID = ""
	cfg.Metrics.Alignment = "bogus"
	cfg.Storage.RetentionDays = 0

	err := Validate(&cfg)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "schema_version")
	require.Contains(t, msg, "node_id")
	require.Contains(t, msg, "alignment")
	require.Contains(t, msg, "retention_days")
}

func TestToMetricsConfigMapsEnums(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.Alignment = "Nearest"
	cfg.Metrics.Normalization = "ZScore"
	cfg.Metrics.LogBase = "e"
	cfg.Metrics.MissingData.Kind = "AllowPartial"
	cfg.Metrics.MissingData.MinChannels = 2

	mc, err := cfg.Metrics.ToMetricsConfig()
	require.NoError(t, err)
	require.Equal(t, align.Nearest, mc.Alignment)
	require.Equal(t, normalize.ZScore, mc.Normalize)
	require.Equal(t, align.MissingAllowPartial, mc.Missing.Kind)
	require.Equal(t, 2, mc.Missing.MinChannels)
}

func TestToMetricsConfigTriggerKinds(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.SignalCompute = TriggerConfig{Kind: "NOrMs", N: 5, Millis: 1000}
	mc, err := cfg.Metrics.ToMetricsConfig()
	require.NoError(t, err)
	require.Equal(t, metrics.NFlushesOrMillis, mc.Trigger.Kind)
	require.Equal(t, 5, mc.Trigger.N)
	require.Equal(t, uint64(1000), mc.Trigger.Millis)
}

func TestToComplexityConfigUnknownEventErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Complexity.Anomaly.Events = map[string]bool{"not_a_real_event": true}
	_, err := cfg.Complexity.ToComplexityConfig()
	require.Error(t, err)
}

func TestToComplexityConfigDisablesEventSelectively(t *testing.T) {
	cfg := Defaults()
	cfg.Complexity.Anomaly.Events = map[string]bool{"structure_break": false}
	cc, err := cfg.Complexity.ToComplexityConfig()
	require.NoError(t, err)
	require.False(t, cc.Anomaly.Enabled[anomaly.StructureBreak])
	require.True(t, cc.Anomaly.Enabled[anomaly.BaselineLocked])
}

func TestToWindowPolicyLastN(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.SignalWindow = SignalWindowConfig{Kind: "LastN", LastN: 100}
	_ = cfg.Metrics.ToWindowPolicy()
}
