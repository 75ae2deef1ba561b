package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tokenflow/internal/cache"
	"tokenflow/internal/config"
	"tokenflow/internal/model"
	"tokenflow/internal/proxy"
	"tokenflow/internal/semantics"
	"tokenflow/internal/storage"
	"tokenflow/internal/storage/postgres"
	"tokenflow/internal/transfers"
)

const decodeBatchSize = 256

type decodeOutcome struct {
	result  *transfers.Result
	failure *model.FailureRecord
}

// pipeline decodes transactions with shared, head-scoped caches.
type pipeline struct {
	chainID  uint64
	detector *proxy.Detector
	checks   *cache.HeadCache[proxy.CheckKey, bool]
	repo     *semantics.Cached
	decoder  *transfers.Decoder
}

func (p *pipeline) advance(head uint64) {
	p.checks.Advance(head)
	p.repo.Advance(head)
}

func (p *pipeline) decode(ctx context.Context, tx model.Transaction) decodeOutcome {
	if tx.ChainID == 0 {
		tx.ChainID = p.chainID
	}
	for i := range tx.Events {
		if tx.Events[i].ChainID == 0 {
			tx.Events[i].ChainID = tx.ChainID
		}
	}
	p.advance(tx.BlockNumber)

	proxies := p.detector.Discover(ctx, tx.ChainID, tx.Root)
	result, err := p.decoder.Decode(ctx, &tx, proxies)
	if err == nil {
		return decodeOutcome{result: result}
	}

	failure := &model.FailureRecord{
		ChainID:     tx.ChainID,
		BlockNumber: tx.BlockNumber,
		TxHash:      tx.Hash,
		Error:       err.Error(),
	}
	var decodeErr *model.DecodeError
	if errors.As(err, &decodeErr) {
		failure.Stage = string(decodeErr.Stage)
	}
	return decodeOutcome{result: result, failure: failure}
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conn *chainConn
	if cfg.RPCURL != "" {
		conn, err = dialChain(ctx, cfg.RPCURL, cfg.ChainID, cfg.MaxRetries, cfg.RetryBackoff, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
	} else {
		logger.Warn("no rpc configured, proxy detection and on-chain token metadata disabled")
	}

	var sources []semantics.Source
	if cfg.SemanticsFile != "" {
		seed, err := semantics.LoadSeedFile(cfg.SemanticsFile)
		if err != nil {
			return err
		}
		sources = append(sources, semantics.NewMemoryStoreFromSeed(seed))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sources = append(sources, store)
	}

	p, err := newPipeline(cfg, conn, sources, logger)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Uint64("chain_id", p.chainID),
		zap.Int("workers", cfg.Workers),
		zap.Int("depth_limit", cfg.DepthLimit),
		zap.Bool("best_effort", cfg.BestEffort),
		zap.Int("semantic_sources", len(sources)),
	)

	reader := storage.NewTransactionReader(inputFile)
	var total, decoded, partial, failed int
	for {
		batch, done, err := readBatch(reader, decodeBatchSize, errWriter, &failed)
		if err != nil {
			return err
		}
		total += len(batch)

		outcomes := make([]decodeOutcome, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for i := range batch {
			i := i
			g.Go(func() error {
				outcomes[i] = p.decode(gctx, batch[i])
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, outcome := range outcomes {
			if outcome.failure != nil {
				failed++
				if err := errWriter.Write(outcome.failure); err != nil {
					return err
				}
			}
			if outcome.result == nil {
				continue
			}
			if outcome.failure != nil {
				partial++
			} else {
				decoded++
			}
			if err := outWriter.Write(outcome.result); err != nil {
				return err
			}
		}

		if done {
			break
		}
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("partial", partial),
		zap.Int("failed", failed),
	)

	return nil
}

func newPipeline(cfg config.DecodeConfig, conn *chainConn, sources []semantics.Source, logger *zap.Logger) (*pipeline, error) {
	cacheCfg := cache.Config{Size: cfg.CacheSize, MaxHeadLag: cfg.CacheHeadLag}

	checks, err := cache.New[proxy.CheckKey, bool](cacheCfg)
	if err != nil {
		return nil, err
	}
	detector := proxy.NewDetector(proxy.Config{
		Readers:    conn.stateReaders(),
		Checks:     checks,
		DepthLimit: cfg.DepthLimit,
		Logger:     logger,
	})

	var fetcher semantics.TokenFetcher
	if conn != nil {
		fetcher = semantics.NewChainTokens(conn.chainReaders(), logger)
	}
	repo, err := semantics.NewCached(semantics.NewLayered(sources, fetcher, logger), cacheCfg)
	if err != nil {
		return nil, err
	}

	decoder, err := transfers.NewDecoder(transfers.Config{
		Repository: repo,
		DepthLimit: cfg.DepthLimit,
		BestEffort: cfg.BestEffort,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		chainID:  cfg.ChainID,
		detector: detector,
		checks:   checks,
		repo:     repo,
		decoder:  decoder,
	}
	if conn != nil {
		p.chainID = conn.chainID
		p.advance(conn.head)
	}
	return p, nil
}

// readBatch reads up to size transactions. Unparseable lines go to errWriter.
func readBatch(reader *storage.TransactionReader, size int, errWriter storage.Sink, failed *int) ([]model.Transaction, bool, error) {
	batch := make([]model.Transaction, 0, size)
	for len(batch) < size {
		tx, _, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			var lineErr *storage.LineError
			if !errors.As(err, &lineErr) {
				return nil, false, err
			}
			*failed++
			if err := errWriter.Write(model.FailureRecord{Error: err.Error()}); err != nil {
				return nil, false, err
			}
			continue
		}
		batch = append(batch, tx)
	}
	return batch, false, nil
}
