package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./recallwatch.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing recall source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of concurrent workers for per-user matching"`
	SyncInterval      int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"0" description:"Pipeline interval in minutes (0 disables the internal scheduler)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the sync trigger endpoint (optional)"`
	MatchWindowDays   int    `long:"match-window-days" env:"MATCH_WINDOW_DAYS" default:"730" description:"Only recalls published within this many days are considered for matching"`
	NotifyWindowHours int    `long:"notify-window-hours" env:"NOTIFY_WINDOW_HOURS" default:"24" description:"Rolling window for pending match notifications, in hours"`

	// Delivery sink configuration
	SinkURL     string `long:"sink-url" env:"SINK_URL" description:"Webhook URL for notification delivery (empty logs batches instead)"`
	SinkTimeout int    `long:"sink-timeout" env:"SINK_TIMEOUT" default:"15" description:"Delivery sink request timeout in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RecallWatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SyncInterval:      raw.SyncInterval,
		APIAccessKey:      raw.APIAccessKey,
		MatchWindowDays:   raw.MatchWindowDays,
		NotifyWindowHours: raw.NotifyWindowHours,
		SinkURL:           raw.SinkURL,
		SinkTimeout:       raw.SinkTimeout,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
