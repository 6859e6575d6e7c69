package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Store  string `long:"store" env:"STORE" default:"sqlite" choice:"sqlite" choice:"memory" description:"Interaction store backend"`
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/news.db" description:"SQLite database file (:memory: for a throwaway database)"`

	// Application configuration
	ProvidersDir       string `long:"providers-dir" env:"PROVIDERS_DIR" default:"./providers" description:"Directory containing provider configuration files"`
	Port               string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	DefaultPageSize    int    `long:"default-page-size" env:"DEFAULT_PAGE_SIZE" default:"20" description:"Page size used when page_size is omitted"`
	MaxPageSize        int    `long:"max-page-size" env:"MAX_PAGE_SIZE" default:"100" description:"Largest accepted page_size"`
	FetchTimeout       int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Default provider fetch timeout in seconds"`
	ImageProbeTimeout  int    `long:"image-probe-timeout" env:"IMAGE_PROBE_TIMEOUT" default:"5" description:"Image reachability probe timeout in seconds"`
	RefreshInterval    int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Periodic catalog refresh interval in seconds (0 disables)"`
	WorkerCount        int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background task workers"`
	APIAccessKey       string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`
	RebuildPreferences bool   `long:"rebuild-preferences" env:"REBUILD_PREFERENCES" description:"Rebuild preference aggregates from the interaction log at startup"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads the optional .env file, then parses flags and environment.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Store:              raw.Store,
		DBPath:             raw.DBPath,
		ProvidersDir:       raw.ProvidersDir,
		Port:               raw.Port,
		DefaultPageSize:    raw.DefaultPageSize,
		MaxPageSize:        raw.MaxPageSize,
		FetchTimeout:       time.Duration(raw.FetchTimeout) * time.Second,
		ImageProbeTimeout:  time.Duration(raw.ImageProbeTimeout) * time.Second,
		RefreshInterval:    time.Duration(raw.RefreshInterval) * time.Second,
		WorkerCount:        raw.WorkerCount,
		APIAccessKey:       raw.APIAccessKey,
		RebuildPreferences: raw.RebuildPreferences,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
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

func (c *Cfg) validate() error {
	positiveFields := map[string]int{
		"default page size": c.DefaultPageSize,
		"max page size":     c.MaxPageSize,
		"worker count":      c.WorkerCount,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default page size %d exceeds max page size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.FetchTimeout <= 0 || c.ImageProbeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
