package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Duration is a time.Duration that reads and writes JSON as "10s" style
// strings. Plain numbers are taken as nanoseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(b, &n); nerr != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the top-level configuration loaded from file/env.
type Config struct {
	ListenAddr        string   `json:"listenAddr"`
	Capacity          int      `json:"capacity"`
	MaxRecordBytes    int      `json:"maxRecordBytes"`
	DrainTimeout      Duration `json:"drainTimeout"`
	TimestampEnabled  bool     `json:"timestampEnabled"`
	TimestampInterval Duration `json:"timestampInterval"`

	HTTPAddr string `json:"httpAddr"`
	GRPCAddr string `json:"grpcAddr"`

	ArchiveEnabled    bool   `json:"archiveEnabled"`
	ArchiveMaxEntries uint64 `json:"archiveMaxEntries"`
	DataDir           string `json:"dataDir"`
	Fsync             string `json:"fsync"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		ListenAddr:        ":9000",
		Capacity:          10,
		MaxRecordBytes:    1 << 20,
		TimestampEnabled:  true,
		TimestampInterval: Duration(10 * time.Second),
		Fsync:             "always",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return Config{}, fmt.Errorf("config %s: yaml is not supported; use JSON", path)
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listenAddr must not be empty"))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be at least 1, got %d", c.Capacity))
	}
	if c.MaxRecordBytes < 1 {
		errs = append(errs, fmt.Errorf("maxRecordBytes must be positive, got %d", c.MaxRecordBytes))
	}
	if c.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("drainTimeout must not be negative, got %s", c.DrainTimeout.Std()))
	}
	if c.TimestampEnabled && c.TimestampInterval <= 0 {
		errs = append(errs, fmt.Errorf("timestampInterval must be positive, got %s", c.TimestampInterval.Std()))
	}
	switch strings.ToLower(c.Fsync) {
	case "", "always", "interval", "never":
	default:
		errs = append(errs, fmt.Errorf("fsync must be always|interval|never, got %q", c.Fsync))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat must be text|json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
