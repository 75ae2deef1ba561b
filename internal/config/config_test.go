package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDecodeDefaultsAndFlags(t *testing.T) {
	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.Int("workers", 4, "")
	flags.Bool("best-effort", false, "")
	if err := flags.Parse([]string{"--in", "txs.jsonl", "--workers", "8", "--best-effort"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadDecode(writeConfig(t, "depth-limit: 50\n"), flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "txs.jsonl" || cfg.Workers != 8 || !cfg.BestEffort {
		t.Fatalf("flag values mismatch: %+v", cfg)
	}
	if cfg.DepthLimit != 50 {
		t.Fatalf("config file value mismatch: %d", cfg.DepthLimit)
	}
	if cfg.Out != "./data/transfers.jsonl" || cfg.RetryBackoff != 500*time.Millisecond || cfg.CacheHeadLag != 64 {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadDecodeEnv(t *testing.T) {
	t.Setenv("TOKENFLOW_IN", "from-env.jsonl")
	t.Setenv("TOKENFLOW_CHAIN_ID", "137")

	cfg, err := LoadDecode(writeConfig(t, "log-level: info\n"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "from-env.jsonl" || cfg.ChainID != 137 {
		t.Fatalf("env values mismatch: %+v", cfg)
	}
}

func TestLoadDecodeRequiresInput(t *testing.T) {
	if _, err := LoadDecode(writeConfig(t, "log-level: info\n"), nil); err == nil {
		t.Fatalf("expected missing input error")
	}
}

func TestLoadProxyAddresses(t *testing.T) {
	cfg, err := LoadProxy(writeConfig(t, "address: \"0x1, 0x2,,\"\n"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Addresses) != 2 || cfg.Addresses[0] != "0x1" || cfg.Addresses[1] != "0x2" {
		t.Fatalf("addresses mismatch: %v", cfg.Addresses)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
