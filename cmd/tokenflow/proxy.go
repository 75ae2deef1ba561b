package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenflow/internal/config"
	"tokenflow/internal/model"
	"tokenflow/internal/proxy"
)

type proxyReport struct {
	ChainID               uint64          `json:"chain_id"`
	Address               string          `json:"address"`
	IsProxy               bool            `json:"is_proxy"`
	Kind                  model.ProxyKind `json:"kind,omitempty"`
	ImplementationAddress string          `json:"implementation_address,omitempty"`
}

func runProxy(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProxy(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Addresses) == 0 {
		return fmt.Errorf("address list is required")
	}
	for _, address := range cfg.Addresses {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid address: %s", address)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dialChain(ctx, cfg.RPCURL, cfg.ChainID, cfg.MaxRetries, cfg.RetryBackoff, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	detector := proxy.NewDetector(proxy.Config{Readers: conn.stateReaders(), Logger: logger})

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, address := range cfg.Addresses {
		report := proxyReport{ChainID: conn.chainID, Address: strings.ToLower(address)}
		if record, ok := detector.Detect(ctx, conn.chainID, address); ok {
			report.IsProxy = true
			report.Kind = record.Kind
			report.ImplementationAddress = record.ImplementationAddress
		}
		logger.Debug("proxy checked", zap.String("address", report.Address), zap.Bool("is_proxy", report.IsProxy))
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
