package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "tokenflow",
		Short:        "Normalize transaction call trees and events into token transfers",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode transactions into transfers and balances",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "RPC URL used for proxy detection and token metadata (optional)")
	decodeCmd.Flags().Uint64("chain-id", 0, "chain id for transactions that omit it, 0 means ask the RPC")
	decodeCmd.Flags().String("pg-dsn", "", "Postgres DSN of the semantics store (optional)")
	decodeCmd.Flags().String("semantics-file", "", "YAML semantics seed file (optional)")
	decodeCmd.Flags().String("in", "", "input transactions JSONL")
	decodeCmd.Flags().String("out", "./data/transfers.jsonl", "output results JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().Int("depth-limit", 2000, "maximum call tree depth")
	decodeCmd.Flags().Bool("best-effort", false, "write partial results for transactions that fail")
	decodeCmd.Flags().Int("workers", 4, "transactions decoded in parallel")
	decodeCmd.Flags().Int("cache-size", 4096, "entries per lookup cache")
	decodeCmd.Flags().Uint64("cache-head-lag", 64, "blocks a cached lookup stays valid")
	decodeCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	decodeCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Report EIP-1967 proxies and their implementations",
		RunE:  runProxy,
	}

	proxyCmd.Flags().String("rpc", "", "RPC URL")
	proxyCmd.Flags().Uint64("chain-id", 0, "chain id, 0 means ask the RPC")
	proxyCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated)")
	proxyCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	proxyCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	proxyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(proxyCmd)

	semanticsCmd := &cobra.Command{
		Use:   "semantics",
		Short: "Manage contract semantics",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a YAML semantics file into Postgres",
		RunE:  runSemanticsImport,
	}

	importCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	importCmd.Flags().String("semantics-file", "", "YAML semantics seed file")
	importCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	semanticsCmd.AddCommand(importCmd)
	root.AddCommand(semanticsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
