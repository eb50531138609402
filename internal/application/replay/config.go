package replay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// Config contains configuration for one replay session
type Config struct {
	// History directory holding entities.json and the change files
	Dir string `yaml:"dir"`

	// Playback settings
	Tick     time.Duration `yaml:"tick"`
	Speed    float64       `yaml:"speed"`
	Distance string        `yaml:"distance"` // geodesic, planar

	// Optional window into the history, applied before any page is read
	ClipStart *float64 `yaml:"clipStart"`
	ClipEnd   *float64 `yaml:"clipEnd"`

	// Performance settings
	PageCacheSize int           `yaml:"pageCacheSize"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`

	// Follow rescans the directory when the simulator writes new pages
	Follow bool `yaml:"follow"`

	// MetricsAddr serves /metrics when set
	MetricsAddr string `yaml:"metricsAddr"`

	// Display settings
	Timezone      string        `yaml:"timezone"`
	TimeFormat    string        `yaml:"timeFormat"`
	UIRefreshRate time.Duration `yaml:"uiRefreshRate"`
	LayoutStyle   int           `yaml:"layoutStyle"`

	// Logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// LoadConfigFile reads a YAML config file. Missing fields stay zero so that
// Validate can default them.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("history directory is required")
	}
	if c.Tick == 0 {
		c.Tick = 200 * time.Millisecond
	}
	if c.Tick < 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Speed == 0 {
		c.Speed = 10
	}
	if c.Distance == "" {
		c.Distance = "geodesic"
	}
	if _, ok := geo.ParseDistanceMode(c.Distance); !ok {
		return fmt.Errorf("unknown distance mode %q (want geodesic or planar)", c.Distance)
	}
	if (c.ClipStart == nil) != (c.ClipEnd == nil) {
		return fmt.Errorf("clip needs both a start and an end")
	}
	if c.PageCacheSize == 0 {
		c.PageCacheSize = 8
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if _, err := util.LoadTimezone(c.Timezone); err != nil {
		return err
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "24h"
	}
	if c.UIRefreshRate == 0 {
		c.UIRefreshRate = 250 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return nil
}

// Merge overlays the fields of o that are set onto c
func (c *Config) Merge(o *Config) {
	if o.Dir != "" {
		c.Dir = o.Dir
	}
	if o.Tick != 0 {
		c.Tick = o.Tick
	}
	if o.Speed != 0 {
		c.Speed = o.Speed
	}
	if o.Distance != "" {
		c.Distance = o.Distance
	}
	if o.ClipStart != nil {
		c.ClipStart = o.ClipStart
	}
	if o.ClipEnd != nil {
		c.ClipEnd = o.ClipEnd
	}
	if o.PageCacheSize != 0 {
		c.PageCacheSize = o.PageCacheSize
	}
	if o.FetchTimeout != 0 {
		c.FetchTimeout = o.FetchTimeout
	}
	if o.Follow {
		c.Follow = true
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.TimeFormat != "" {
		c.TimeFormat = o.TimeFormat
	}
	if o.UIRefreshRate != 0 {
		c.UIRefreshRate = o.UIRefreshRate
	}
	if o.LayoutStyle != 0 {
		c.LayoutStyle = o.LayoutStyle
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
}
