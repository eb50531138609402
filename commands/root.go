package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-fleet-replay/internal/application/replay"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

var (
	// Logging related
	debug     bool
	logFormat string

	// History and config
	historyDir string
	configFile string
	clipRange  string
	timezone   string

	// Playback
	tick        time.Duration
	speed       float64
	distance    string
	follow      bool
	metricsAddr string

	// Display
	timeFormat string
	layout     string

	rootCmd = &cobra.Command{
		Use:   "go-fleet-replay [flags]",
		Short: "Replay a recorded bike-sharing simulation",
		Long: `go-fleet-replay plays back the history written by a bike-sharing simulator.

The history directory holds entities.json with the starting state and change
files named <start>-<end>_<count>.json. Playback runs forward and backward at
any speed, steps one change at a time and seeks to any time.

Examples:
  go-fleet-replay --dir ./run-1                      # Interactive playback
  go-fleet-replay --dir ./run-1 --speed 60 --follow  # Follow a simulation still running
  go-fleet-replay --config replay.yaml               # Settings from a YAML file
  go-fleet-replay state --dir ./run-1 --at 01:30:00  # Print the state at 1h30m
  go-fleet-replay pages --dir ./run-1 --verify       # List change files`,
		RunE: runReplay,
	}
)

const (
	defaultLogFile = "~/.go-fleet-replay/logs/app.log"
)

func init() {
	// History configuration shared by every command
	rootCmd.PersistentFlags().StringVar(&historyDir, "dir", "",
		"History directory written by the simulator")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"YAML config file; flags override its values")
	rootCmd.PersistentFlags().StringVar(&clipRange, "clip", "",
		"Only replay pages overlapping start:end in seconds, or HH:MM:SS-HH:MM:SS")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Local",
		"Timezone of the wall clock (e.g., Europe/Madrid, UTC)")

	// Playback
	rootCmd.Flags().DurationVar(&tick, "tick", 200*time.Millisecond,
		"Interval between playback ticks")
	rootCmd.Flags().Float64Var(&speed, "speed", 10,
		"Simulated seconds per real second; negative plays backward")
	rootCmd.Flags().StringVar(&distance, "distance", "geodesic",
		"Distance along routes (geodesic, planar)")
	rootCmd.Flags().BoolVarP(&follow, "follow", "f", false,
		"Pick up change files written while replaying")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve prometheus metrics on this address (e.g., :9090)")

	// Display
	rootCmd.Flags().StringVar(&timeFormat, "time-format", "24h",
		"Wall clock format (12h or 24h)")
	rootCmd.Flags().StringVar(&layout, "layout", "full",
		"Dashboard layout (full, minimal)")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log format (text, json)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(config); err != nil {
		return err
	}

	orchestrator, err := replay.NewOrchestrator(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return orchestrator.Run(ctx)
}

// buildConfig layers defaults, the YAML file and the flags the user set
func buildConfig(cmd *cobra.Command) (*replay.Config, error) {
	config := &replay.Config{}
	if configFile != "" {
		fileConfig, err := replay.LoadConfigFile(expandPath(configFile))
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	flags := &replay.Config{}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("dir") || config.Dir == "" {
		flags.Dir = historyDir
	}
	if changed("tick") {
		flags.Tick = tick
	}
	if changed("speed") {
		if speed == 0 {
			return nil, fmt.Errorf("speed must not be zero")
		}
		flags.Speed = speed
	}
	if changed("distance") {
		flags.Distance = distance
	}
	if changed("follow") {
		flags.Follow = follow
	}
	if changed("metrics-addr") {
		flags.MetricsAddr = metricsAddr
	}
	if changed("timezone") {
		flags.Timezone = timezone
	}
	if changed("time-format") {
		if timeFormat != "12h" && timeFormat != "24h" {
			return nil, fmt.Errorf("invalid time format '%s': must be either '12h' or '24h'", timeFormat)
		}
		flags.TimeFormat = timeFormat
	}
	if changed("layout") {
		switch layout {
		case "full":
		case "minimal":
			flags.LayoutStyle = 1
		default:
			return nil, fmt.Errorf("invalid layout '%s': must be either 'full' or 'minimal'", layout)
		}
	}
	if changed("log-format") {
		flags.LogFormat = logFormat
	}
	if debug {
		flags.LogLevel = "debug"
	}
	if clipRange != "" {
		start, end, err := parseClip(clipRange)
		if err != nil {
			return nil, err
		}
		flags.ClipStart, flags.ClipEnd = &start, &end
	}
	config.Merge(flags)

	if config.Dir == "" {
		return nil, fmt.Errorf("a history directory is required (--dir or dir: in --config)")
	}
	config.Dir = expandPath(config.Dir)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// initLogging writes to the log file, and to stderr in debug mode
func initLogging(config *replay.Config) error {
	logFile := expandPath(defaultLogFile)
	if err := util.InitLoggerWithFormat(config.LogLevel, logFile, debug, util.ParseLogFormat(config.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return util.InitializeTimeProvider(config.Timezone)
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// parseTime reads simulated seconds, either as a number or as HH:MM:SS
func parseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: want seconds or HH:MM:SS", s)
	}
	var total float64
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q: want seconds or HH:MM:SS", s)
		}
		total = total*60 + float64(n)
	}
	return total, nil
}

// parseClip reads a start:end range. HH:MM:SS bounds are separated by a dash.
func parseClip(s string) (float64, float64, error) {
	sep := ":"
	if strings.Count(s, ":") > 1 {
		sep = "-"
	}
	startStr, endStr, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("invalid clip %q: want start:end", s)
	}
	start, err := parseTime(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTime(endStr)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("invalid clip %q: end before start", s)
	}
	return start, end, nil
}
