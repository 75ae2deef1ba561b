package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL        string
	ChainID       uint64
	PGDSN         string
	SemanticsFile string
	In            string
	Out           string
	Errors        string
	DepthLimit    int
	BestEffort    bool
	Workers       int
	CacheSize     int
	CacheHeadLag  uint64
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":            "./data/transfers.jsonl",
		"errors":         "./data/decode_errors.jsonl",
		"depth-limit":    2000,
		"best-effort":    false,
		"workers":        4,
		"cache-size":     4096,
		"cache-head-lag": uint64(64),
		"max-retries":    5,
		"retry-backoff":  500 * time.Millisecond,
		"log-level":      "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPCURL:        v.GetString("rpc"),
		ChainID:       v.GetUint64("chain-id"),
		PGDSN:         v.GetString("pg-dsn"),
		SemanticsFile: v.GetString("semantics-file"),
		In:            v.GetString("in"),
		Out:           v.GetString("out"),
		Errors:        v.GetString("errors"),
		DepthLimit:    v.GetInt("depth-limit"),
		BestEffort:    v.GetBool("best-effort"),
		Workers:       v.GetInt("workers"),
		CacheSize:     v.GetInt("cache-size"),
		CacheHeadLag:  v.GetUint64("cache-head-lag"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		LogLevel:      v.GetString("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return DecodeConfig{}, err
	}
	return cfg, nil
}

// Validate checks the values the decode command cannot run without.
func (c DecodeConfig) Validate() error {
	if c.In == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Errors == "" {
		return fmt.Errorf("errors path is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.DepthLimit <= 0 {
		return fmt.Errorf("depth limit must be positive")
	}
	return nil
}
