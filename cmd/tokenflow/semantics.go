package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenflow/internal/config"
	"tokenflow/internal/model"
	"tokenflow/internal/semantics"
	"tokenflow/internal/storage/postgres"
)

func runSemanticsImport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSemantics(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if cfg.SemanticsFile == "" {
		return fmt.Errorf("semantics file is required")
	}

	seed, err := semantics.LoadSeedFile(cfg.SemanticsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	standards := make([]postgres.StandardRow, 0, len(seed.Standards))
	for _, s := range seed.Standards {
		standards = append(standards, postgres.StandardRow{ChainID: s.ChainID, Address: s.Address, Standard: model.Standard(s.Standard)})
	}
	tokens := make([]postgres.TokenRow, 0, len(seed.Tokens))
	for _, t := range seed.Tokens {
		tokens = append(tokens, postgres.TokenRow{ChainID: t.ChainID, Meta: t.TokenMeta})
	}
	labels := make([]postgres.LabelRow, 0, len(seed.Labels))
	for _, l := range seed.Labels {
		labels = append(labels, postgres.LabelRow{ChainID: l.ChainID, Address: l.Address, Label: l.Label})
	}

	if err := store.UpsertStandards(ctx, standards); err != nil {
		return fmt.Errorf("upsert standards: %w", err)
	}
	if err := store.UpsertTokens(ctx, tokens); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}
	if err := store.UpsertLabels(ctx, labels); err != nil {
		return fmt.Errorf("upsert labels: %w", err)
	}

	logger.Info("semantics imported",
		zap.String("file", cfg.SemanticsFile),
		zap.Int("standards", len(standards)),
		zap.Int("tokens", len(tokens)),
		zap.Int("labels", len(labels)),
	)
	return nil
}
