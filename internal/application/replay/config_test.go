package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{Dir: "/tmp/history"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 200*time.Millisecond, cfg.Tick)
	assert.Equal(t, 10.0, cfg.Speed)
	assert.Equal(t, "geodesic", cfg.Distance)
	assert.Equal(t, 8, cfg.PageCacheSize)
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, "24h", cfg.TimeFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfigValidateErrors(t *testing.T) {
	start := 10.0
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing_dir", Config{}},
		{"negative_tick", Config{Dir: "d", Tick: -time.Second}},
		{"unknown_distance", Config{Dir: "d", Distance: "manhattan"}},
		{"half_clip", Config{Dir: "d", ClipStart: &start}},
		{"unknown_timezone", Config{Dir: "d", Timezone: "Mars/Olympus_Mons"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	data := []byte(`
dir: /data/run-1
tick: 100ms
speed: -4
distance: planar
follow: true
clipStart: 60
clipEnd: 3600
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/run-1", cfg.Dir)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.Equal(t, -4.0, cfg.Speed)
	assert.Equal(t, "planar", cfg.Distance)
	assert.True(t, cfg.Follow)
	require.NotNil(t, cfg.ClipStart)
	assert.Equal(t, 60.0, *cfg.ClipStart)
	assert.Equal(t, 3600.0, *cfg.ClipEnd)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speed: [fast"), 0o644))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}

func TestConfigMerge(t *testing.T) {
	base := &Config{Dir: "from-file", Speed: 5, Distance: "planar"}
	base.Merge(&Config{Dir: "from-flag", Tick: time.Second})

	assert.Equal(t, "from-flag", base.Dir)
	assert.Equal(t, time.Second, base.Tick)
	assert.Equal(t, 5.0, base.Speed)
	assert.Equal(t, "planar", base.Distance)
}
