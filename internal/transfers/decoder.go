package transfers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tokenflow/internal/aggregate"
	"tokenflow/internal/model"
	"tokenflow/internal/semantics"
	"tokenflow/internal/specials"
)

// Config wires a Decoder.
type Config struct {
	Repository semantics.Repository
	// Registry defaults to specials.DefaultRegistry.
	Registry   *specials.Registry
	DepthLimit int
	// BestEffort keeps decoding past fatal conditions and returns the partial
	// result together with the first error.
	BestEffort bool
	Logger     *zap.Logger
}

// Result is the normalized view of one transaction.
type Result struct {
	ChainID     uint64                 `json:"chain_id"`
	TxHash      string                 `json:"tx_hash"`
	BlockNumber uint64                 `json:"block_number"`
	Transfers   []model.TransferRecord `json:"transfers"`
	Balances    []model.BalanceEntry   `json:"balances"`
	Warnings    []model.Warning        `json:"warnings,omitempty"`
}

// Decoder turns a transaction's call tree and events into transfers and balances.
// A Decoder is safe for concurrent use when its repository is.
type Decoder struct {
	normalizer *Normalizer
	registry   *specials.Registry
	depthLimit int
	bestEffort bool
	logger     *zap.Logger
}

func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = specials.DefaultRegistry()
	}
	depthLimit := cfg.DepthLimit
	if depthLimit <= 0 {
		depthLimit = DefaultDepthLimit
	}
	return &Decoder{
		normalizer: NewNormalizer(cfg.Repository, logger),
		registry:   registry,
		depthLimit: depthLimit,
		bestEffort: cfg.BestEffort,
		logger:     logger,
	}, nil
}

// decodeRun carries the state of a single Decode call.
type decodeRun struct {
	tx       *model.Transaction
	result   *Result
	firstErr *model.DecodeError
}

// fail records a fatal condition and reports whether decoding must stop.
func (d *Decoder) fail(run *decodeRun, stage model.Stage, err error) bool {
	decodeErr := &model.DecodeError{Stage: stage, TxHash: run.tx.Hash, Err: err}
	if run.firstErr == nil {
		run.firstErr = decodeErr
	}
	if !d.bestEffort {
		return true
	}
	d.logger.Warn("decode continues past error", zap.String("tx_hash", run.tx.Hash), zap.Error(decodeErr))
	return false
}

// Decode normalizes tx using proxies to unwrap proxied token contracts.
func (d *Decoder) Decode(ctx context.Context, tx *model.Transaction, proxies model.ProxyMap) (*Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction")
	}
	run := &decodeRun{
		tx: tx,
		result: &Result{
			ChainID:     tx.ChainID,
			TxHash:      tx.Hash,
			BlockNumber: tx.BlockNumber,
		},
	}

	native, err := WalkCalls(tx.Root, d.depthLimit)
	if err != nil {
		if d.fail(run, model.StageCalls, err) {
			return nil, run.firstErr
		}
		run.result.Warnings = append(run.result.Warnings, model.Warning{
			Code:       model.WarnTruncatedCallTree,
			EventIndex: -1,
			Message:    err.Error(),
		})
	}
	for i := range native {
		native[i].From = d.normalizer.addressRef(ctx, tx.ChainID, native[i].From.Address, proxies)
		native[i].To = d.normalizer.addressRef(ctx, tx.ChainID, native[i].To.Address, proxies)
	}
	run.result.Transfers = append(run.result.Transfers, native...)

	for i, event := range tx.Events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, warnings, err := d.normalizer.NormalizeEvent(ctx, i, event, proxies)
		if err != nil {
			if d.fail(run, model.StageEvents, err) {
				return nil, run.firstErr
			}
			run.result.Warnings = append(run.result.Warnings, skipped(i, err))
			continue
		}
		run.result.Transfers = append(run.result.Transfers, records...)
		run.result.Warnings = append(run.result.Warnings, warnings...)
	}
	standard := run.result.Transfers

	var deltas []model.BalanceDelta
	var extra []model.TransferRecord
	for _, group := range d.registry.Correlate(tx.Events) {
		handler, _ := d.registry.Lookup(group.Event.ContractAddress, group.Event.EventName)
		records, err := handler.Transfers(group)
		if err == nil {
			var groupDeltas []model.BalanceDelta
			groupDeltas, err = handler.Balances(group)
			deltas = append(deltas, groupDeltas...)
		}
		if err != nil {
			if d.fail(run, model.StageSpecials, err) {
				return nil, run.firstErr
			}
			run.result.Warnings = append(run.result.Warnings, skipped(group.Index, err))
			continue
		}
		extra = append(extra, records...)
	}

	run.result.Balances = aggregate.Fold(standard, deltas)
	run.result.Transfers = append(standard, extra...)

	if run.firstErr != nil {
		return run.result, run.firstErr
	}
	return run.result, nil
}

func skipped(index int, err error) model.Warning {
	var malformed *model.MalformedEventError
	if errors.As(err, &malformed) {
		index = malformed.Index
	}
	return model.Warning{Code: model.WarnSkippedEvent, EventIndex: index, Message: err.Error()}
}
