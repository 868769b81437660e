package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoaderAppliesDefaultsWithoutAConfigFile(t *testing.T) {
	l, err := NewLoader("")
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())
}

func TestLoaderSetAppliesProgrammaticOverride(t *testing.T) {
	l, err := NewLoader("")
	require.NoError(t, err)

	var seen BridgeConfig
	l.OnChange(func(c BridgeConfig) { seen = c })

	override := Defaults()
	override.BackendFailFast = false
	l.Set(override)

	assert.False(t, l.Current().BackendFailFast)
	assert.False(t, seen.BackendFailFast)
}

func TestLoaderMergesConfigFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("callTimeoutMs: 5000\n"), 0o644))

	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Current()
	assert.EqualValues(t, 5000, cfg.CallTimeoutMs)
	assert.True(t, cfg.BackendFailFast, "unset options keep their default")
}

func TestSchemaDescribesEveryConfiguredOption(t *testing.T) {
	s := Schema()
	require.NotNil(t, s.Properties)
	for _, name := range []string{
		"callTimeoutMs", "backendFailFast", "heartbeatIntervalMs",
		"heartbeatTimeoutMs", "drainBudgetPerTick",
		"embeddedCloseIterationCap", "embeddedCloseSettleMs",
	} {
		_, ok := s.Properties.Get(name)
		assert.True(t, ok, "schema missing property %s", name)
	}
}
