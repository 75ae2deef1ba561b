package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokenflow/internal/chain"
	"tokenflow/internal/proxy"
)

// chainConn is an RPC connection with the chain id and head it reported.
type chainConn struct {
	client  *chain.Client
	reader  *chain.RetryReader
	chainID uint64
	head    uint64
}

func dialChain(ctx context.Context, rpcURL string, chainID uint64, maxRetries int, backoff time.Duration, logger *zap.Logger) (*chainConn, error) {
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	if chainID == 0 {
		id, err := client.GetChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("get chain id: %w", err)
		}
		chainID = id.Uint64()
	}

	head, err := client.LatestBlockNumber(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	return &chainConn{
		client:  client,
		reader:  chain.NewRetryReader(client, maxRetries, backoff, logger),
		chainID: chainID,
		head:    head,
	}, nil
}

func (c *chainConn) Close() {
	if c != nil {
		c.client.Close()
	}
}

func (c *chainConn) stateReaders() map[uint64]proxy.StateReader {
	if c == nil {
		return nil
	}
	return map[uint64]proxy.StateReader{c.chainID: c.reader}
}

func (c *chainConn) chainReaders() map[uint64]chain.Reader {
	if c == nil {
		return nil
	}
	return map[uint64]chain.Reader{c.chainID: c.reader}
}
