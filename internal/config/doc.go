// Package config loads cmdlog configuration. Default gives the baseline,
// Load reads a JSON file over it, FromEnv overlays CMDLOG_* variables and
// Validate reports what is wrong with the result.
//
// Example:
//
//	cfg, err := config.Load("/etc/cmdlog.json")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
