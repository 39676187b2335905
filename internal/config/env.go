package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays CMDLOG_* environment variables onto cfg. Unparseable
// values are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CMDLOG_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CMDLOG_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capacity = n
		}
	}
	if v := os.Getenv("CMDLOG_MAX_RECORD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRecordBytes = n
		}
	}
	if v := os.Getenv("CMDLOG_DRAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DrainTimeout = Duration(d)
		}
	}
	if v := os.Getenv("CMDLOG_TIMESTAMP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TimestampEnabled = b
		}
	}
	if v := os.Getenv("CMDLOG_TIMESTAMP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TimestampInterval = Duration(d)
		}
	}
	if v := os.Getenv("CMDLOG_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CMDLOG_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("CMDLOG_ARCHIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ArchiveEnabled = b
		}
	}
	if v := os.Getenv("CMDLOG_ARCHIVE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ArchiveMaxEntries = n
		}
	}
	if v := os.Getenv("CMDLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CMDLOG_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("CMDLOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CMDLOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
