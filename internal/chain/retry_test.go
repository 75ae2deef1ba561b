package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type flakyReader struct {
	failures int
	calls    int
}

func (f *flakyReader) StorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return common.LeftPadBytes([]byte{0x01}, 32), nil
}

func (f *flakyReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	return nil, errors.New("execution reverted")
}

func TestRetryReaderRecovers(t *testing.T) {
	inner := &flakyReader{failures: 2}
	reader := NewRetryReader(inner, 3, time.Millisecond, nil)

	word, err := reader.StorageAt(context.Background(), common.Address{}, common.Hash{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(word) != 32 || word[31] != 0x01 {
		t.Fatalf("word mismatch: %x", word)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryReaderGivesUp(t *testing.T) {
	inner := &flakyReader{}
	reader := NewRetryReader(inner, 1, time.Millisecond, nil)

	if _, err := reader.CallContract(context.Background(), ethereum.CallMsg{}, nil); err == nil {
		t.Fatalf("expected error")
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", inner.calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
