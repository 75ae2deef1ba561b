package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "TOKENFLOW"

// ProxyConfig holds configuration for the proxy command.
type ProxyConfig struct {
	RPCURL       string
	ChainID      uint64
	Addresses    []string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// SemanticsConfig holds configuration for the semantics import command.
type SemanticsConfig struct {
	PGDSN         string
	SemanticsFile string
	LogLevel      string
}

// LoadProxy merges config file, environment variables, and flags into ProxyConfig.
func LoadProxy(cfgFile string, flags *pflag.FlagSet) (ProxyConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return ProxyConfig{}, err
	}

	return ProxyConfig{
		RPCURL:       v.GetString("rpc"),
		ChainID:      v.GetUint64("chain-id"),
		Addresses:    getStringSlice(v, "address"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// LoadSemantics merges config file, environment variables, and flags into SemanticsConfig.
func LoadSemantics(cfgFile string, flags *pflag.FlagSet) (SemanticsConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return SemanticsConfig{}, err
	}

	return SemanticsConfig{
		PGDSN:         v.GetString("pg-dsn"),
		SemanticsFile: v.GetString("semantics-file"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// load builds a viper instance reading TOKENFLOW_* env vars, flags and an
// optional config file. Without cfgFile a ./config.yaml is used when present.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
