package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Reader is the subset of Client used for state reads.
type Reader interface {
	StorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RetryReader retries transport failures of an underlying Reader with exponential backoff.
// Reverted calls are retried as well; callers that fail closed still see the final error.
type RetryReader struct {
	Reader     Reader
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

// NewRetryReader wraps reader.
func NewRetryReader(reader Reader, maxRetries int, backoff time.Duration, logger *zap.Logger) *RetryReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryReader{Reader: reader, MaxRetries: maxRetries, Backoff: backoff, Logger: logger}
}

// StorageAt reads a storage word with retries.
func (r *RetryReader) StorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) ([]byte, error) {
	var word []byte
	err := withRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context) error {
		var err error
		word, err = r.Reader.StorageAt(ctx, account, slot, blockNumber)
		if err != nil {
			r.Logger.Debug("storage read failed", zap.Error(err), zap.String("account", account.Hex()), zap.String("slot", slot.Hex()))
		}
		return err
	})
	return word, err
}

// CallContract performs an eth_call with retries.
func (r *RetryReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := withRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context) error {
		var err error
		out, err = r.Reader.CallContract(ctx, msg, blockNumber)
		if err != nil {
			r.Logger.Debug("contract call failed", zap.Error(err))
		}
		return err
	})
	return out, err
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
