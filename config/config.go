package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Storage backend constants
const (
	StorageBackendFile   = "file"        // local directory sink
	StorageBackendNATS   = "nats-object" // NATS JetStream object store sink
	StorageBackendMemory = "memory"      // in-memory sink, kept for development
)

// Config represents the complete process configuration. Runtime-tunable
// processing options (brightness, filters, ...) are not here; they live
// in the options store and change per request. This file-level config
// covers everything fixed for the lifetime of the process.
type Config struct {
	Capture CaptureConfig `json:"capture"`
	Hub     HubConfig     `json:"hub"`
	Stats   StatsConfig   `json:"stats"`
	Upload  UploadConfig  `json:"upload"`
	Storage StorageConfig `json:"storage"`
	NATS    NATSConfig    `json:"nats"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// CaptureConfig defines the default capture source and open behavior.
type CaptureConfig struct {
	// Source is the device descriptor used when a start request names
	// none, e.g. "testpattern:640x480@30" or "dir:/data/frames@10".
	Source string `json:"source"`
	// OpenTimeout bounds how long a device open may take before the
	// start attempt fails.
	OpenTimeout time.Duration `json:"open_timeout"`
}

// Validate checks capture settings
func (c *CaptureConfig) Validate() error {
	if c.Source == "" {
		return errors.New("capture.source is required")
	}
	if c.OpenTimeout <= 0 {
		return errors.New("capture.open_timeout must be positive")
	}
	return nil
}

// HubConfig defines distribution hub settings.
type HubConfig struct {
	// SubscriberBuffer is the per-subscriber ring capacity. A slow
	// subscriber loses its oldest items once this fills.
	SubscriberBuffer int `json:"subscriber_buffer"`
	// StatsInterval is how often the hub publishes a stats item while
	// a stream is live.
	StatsInterval time.Duration `json:"stats_interval"`
}

// Validate checks hub settings
func (c *HubConfig) Validate() error {
	if c.SubscriberBuffer < 1 {
		return errors.New("hub.subscriber_buffer must be at least 1")
	}
	if c.StatsInterval <= 0 {
		return errors.New("hub.stats_interval must be positive")
	}
	return nil
}

// StatsConfig defines the sliding window of the stats aggregator.
type StatsConfig struct {
	WindowSpan time.Duration `json:"window_span"`
	MaxSamples int           `json:"max_samples"`
}

// Validate checks stats settings
func (c *StatsConfig) Validate() error {
	if c.WindowSpan <= 0 {
		return errors.New("stats.window_span must be positive")
	}
	if c.MaxSamples < 1 {
		return errors.New("stats.max_samples must be at least 1")
	}
	return nil
}

// UploadConfig defines the cloud upload queue.
type UploadConfig struct {
	QueueSize   int `json:"queue_size"`
	Workers     int `json:"workers"`
	MaxAttempts int `json:"max_attempts"`
	// RecentJobs is the capacity of the completed-jobs ring.
	RecentJobs int `json:"recent_jobs"`
	// AutoArchiveInterval enqueues the latest frame automatically at
	// this interval. Zero disables auto-archival.
	AutoArchiveInterval time.Duration `json:"auto_archive_interval"`
}

// Validate checks upload settings
func (c *UploadConfig) Validate() error {
	if c.QueueSize < 1 {
		return errors.New("upload.queue_size must be at least 1")
	}
	if c.Workers < 1 {
		return errors.New("upload.workers must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("upload.max_attempts must be at least 1")
	}
	if c.RecentJobs < 1 {
		return errors.New("upload.recent_jobs must be at least 1")
	}
	if c.AutoArchiveInterval < 0 {
		return errors.New("upload.auto_archive_interval cannot be negative")
	}
	return nil
}

// StorageConfig selects the archival sink.
type StorageConfig struct {
	Backend string `json:"backend"` // file, nats-object, or memory
	Dir     string `json:"dir"`     // file backend root directory
	Bucket  string `json:"bucket"`  // nats-object bucket name
}

// Validate checks storage settings
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendFile:
		if c.Dir == "" {
			return errors.New("storage.dir is required for the file backend")
		}
	case StorageBackendNATS:
		if c.Bucket == "" {
			return errors.New("storage.bucket is required for the nats-object backend")
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not one of file, nats-object, memory", c.Backend)
	}
	return nil
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL            string        `json:"url"`
	Name           string        `json:"name,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	Token          string        `json:"token,omitempty"`
}

// Validate checks NATS settings
func (c *NATSConfig) Validate() error {
	if c.ReconnectWait < 0 {
		return errors.New("nats.reconnect_wait cannot be negative")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("nats.connect_timeout must be positive")
	}
	return nil
}

// MetricsConfig defines the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// Validate checks metrics settings
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("metrics.port %d is out of range", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Path)
	}
	return nil
}

// LoggingConfig defines log output and the NATS log relay.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or text
	// Relay mirrors component logs onto videoproc.logs.<component>.
	// Requires a reachable NATS server.
	Relay bool `json:"relay,omitempty"`
}

// Validate checks logging settings
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not one of json, text", c.Format)
	}
	return nil
}

// Validate checks the whole config, section by section, plus the
// cross-section constraints.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture configuration: %w", err)
	}
	if err := c.Hub.Validate(); err != nil {
		return fmt.Errorf("hub configuration: %w", err)
	}
	if err := c.Stats.Validate(); err != nil {
		return fmt.Errorf("stats configuration: %w", err)
	}
	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload configuration: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration: %w", err)
	}
	if err := c.NATS.Validate(); err != nil {
		return fmt.Errorf("nats configuration: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}

	// NATS is optional until something needs it.
	if c.NeedsNATS() && c.NATS.URL == "" {
		return errors.New("nats.url is required when the nats-object storage backend or the log relay is enabled")
	}

	return nil
}

// NeedsNATS reports whether this configuration requires a NATS
// connection at startup.
func (c *Config) NeedsNATS() bool {
	return c.Storage.Backend == StorageBackendNATS || c.Logging.Relay
}

// Defaults returns the built-in configuration. Every field carries a
// value that works on a machine with no camera, no NATS server, and
// no cloud credentials.
func Defaults() *Config {
	return &Config{
		Capture: CaptureConfig{
			Source:      "testpattern:640x480@30",
			OpenTimeout: 5 * time.Second,
		},
		Hub: HubConfig{
			SubscriberBuffer: 8,
			StatsInterval:    time.Second,
		},
		Stats: StatsConfig{
			WindowSpan: 30 * time.Second,
			MaxSamples: 900,
		},
		Upload: UploadConfig{
			QueueSize:   64,
			Workers:     2,
			MaxAttempts: 5,
			RecentJobs:  50,
		},
		Storage: StorageConfig{
			Backend: StorageBackendFile,
			Dir:     "archive",
			Bucket:  "video-frames",
		},
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			Name:           "videoproc",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
