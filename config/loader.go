package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Loader builds a Config from layered sources. Later layers win over
// earlier ones, and environment variables win over every file.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a config loader with validation enabled and the
// VIDEOPROC_ environment prefix.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "VIDEOPROC",
	}
}

// AddLayer appends a config file path. Missing files are skipped at
// load time so a default layer list can name optional files.
func (l *Loader) AddLayer(path string) *Loader {
	l.layers = append(l.layers, path)
	return l
}

// EnableValidation toggles validation after load.
func (l *Loader) EnableValidation(enabled bool) *Loader {
	l.validation = enabled
	return l
}

// Load builds the configuration: defaults, then each file layer in
// order, then environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	config := Defaults()

	for _, path := range l.layers {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config layer %s: %w", path, err)
		}

		if err := l.mergeFromMap(config, raw); err != nil {
			return nil, fmt.Errorf("failed to merge config layer %s: %w", path, err)
		}
	}

	l.applyEnvOverrides(config)

	if l.validation {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return config, nil
}

// LoadFile is a convenience for loading a single required file on top
// of the defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return NewLoader().AddLayer(path).Load()
}

// loadRawJSON reads and parses a config file into a raw map, with the
// path and content checks from security.go applied first.
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return raw, nil
}

// mergeFromMap merges raw JSON data over the current config. The
// config is round-tripped through a map so that absent keys keep
// their current values instead of resetting to zero.
func (l *Loader) mergeFromMap(config *Config, raw map[string]any) error {
	current, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal current config: %w", err)
	}

	var base map[string]any
	if err := json.Unmarshal(current, &base); err != nil {
		return fmt.Errorf("failed to unmarshal current config: %w", err)
	}

	parseDurations(raw)
	merged := deepMergeMaps(base, raw)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal merged config: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal merged config: %w", err)
	}

	return nil
}

// deepMergeMaps recursively merges overlay into base. Nested maps
// merge key by key; any other value in overlay replaces the base
// value outright.
func deepMergeMaps(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range overlay {
		if overlayMap, ok := v.(map[string]any); ok {
			if baseMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overlayMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// durationFields lists the section/key pairs that accept Go duration
// strings in config files, e.g. "open_timeout": "5s".
var durationFields = [][2]string{
	{"capture", "open_timeout"},
	{"hub", "stats_interval"},
	{"stats", "window_span"},
	{"upload", "auto_archive_interval"},
	{"nats", "reconnect_wait"},
	{"nats", "connect_timeout"},
}

// parseDurations rewrites duration strings in raw config data to
// nanosecond counts so they unmarshal into time.Duration fields.
// Unparseable strings are left alone for validation to reject.
func parseDurations(raw map[string]any) {
	for _, field := range durationFields {
		section, ok := raw[field[0]].(map[string]any)
		if !ok {
			continue
		}
		str, ok := section[field[1]].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(str); err == nil {
			section[field[1]] = d.Nanoseconds()
		}
	}
}

// applyEnvOverrides applies environment variables on top of the
// loaded config. Only the operationally interesting knobs have
// variables; everything else is file-only.
func (l *Loader) applyEnvOverrides(config *Config) {
	if v := os.Getenv(l.envPrefix + "_CAPTURE_SOURCE"); v != "" {
		config.Capture.Source = v
	}
	if v := os.Getenv(l.envPrefix + "_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv(l.envPrefix + "_STORAGE_DIR"); v != "" {
		config.Storage.Dir = v
	}
	if v := os.Getenv(l.envPrefix + "_STORAGE_BUCKET"); v != "" {
		config.Storage.Bucket = v
	}
	if v := os.Getenv(l.envPrefix + "_NATS_URL"); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv(l.envPrefix + "_NATS_USERNAME"); v != "" {
		config.NATS.Username = v
	}
	if v := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); v != "" {
		config.NATS.Password = v
	}
	if v := os.Getenv(l.envPrefix + "_NATS_TOKEN"); v != "" {
		config.NATS.Token = v
	}
	if v := os.Getenv(l.envPrefix + "_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Metrics.Port = port
		}
	}
	if v := os.Getenv(l.envPrefix + "_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv(l.envPrefix + "_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
}
