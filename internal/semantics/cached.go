package semantics

import (
	"context"
	"errors"
	"strings"

	"tokenflow/internal/cache"
	"tokenflow/internal/model"
)

// Key identifies a contract on a chain.
type Key struct {
	ChainID uint64
	Address string
}

func newKey(chainID uint64, address string) Key {
	return Key{ChainID: chainID, Address: strings.ToLower(address)}
}

// errTokenDefaulted keeps defaulted token data out of the cache so a failed
// chain read is retried on the next lookup.
var errTokenDefaulted = errors.New("token data defaulted")

type standardResult struct {
	standard model.Standard
	found    bool
}

// Cached wraps a Repository with head-scoped read-through caches.
// Token data and labels are keyed by address only; the proxy map of the first
// fill decides the cached answer until the entry goes stale. Defaulted token
// data is never cached.
type Cached struct {
	inner     Repository
	standards *cache.HeadCache[Key, standardResult]
	tokens    *cache.HeadCache[Key, model.TokenMeta]
	labels    *cache.HeadCache[Key, string]
}

// NewCached builds the caches with cfg.
func NewCached(inner Repository, cfg cache.Config) (*Cached, error) {
	standards, err := cache.New[Key, standardResult](cfg)
	if err != nil {
		return nil, err
	}
	tokens, err := cache.New[Key, model.TokenMeta](cfg)
	if err != nil {
		return nil, err
	}
	labels, err := cache.New[Key, string](cfg)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, standards: standards, tokens: tokens, labels: labels}, nil
}

// Advance moves the chain head of every cache.
func (c *Cached) Advance(head uint64) {
	c.standards.Advance(head)
	c.tokens.Advance(head)
	c.labels.Advance(head)
}

func (c *Cached) GetStandard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error) {
	result, err := c.standards.Get(newKey(chainID, address), func() (standardResult, error) {
		standard, found, err := c.inner.GetStandard(ctx, chainID, address)
		return standardResult{standard: standard, found: found}, err
	})
	if err != nil {
		return "", false, err
	}
	return result.standard, result.found, nil
}

func (c *Cached) GetTokenData(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (model.TokenMeta, error) {
	lookup, ok := c.inner.(TokenLookup)
	if !ok {
		return c.tokens.Get(newKey(chainID, address), func() (model.TokenMeta, error) {
			return c.inner.GetTokenData(ctx, chainID, address, proxies)
		})
	}

	meta, err := c.tokens.Get(newKey(chainID, address), func() (model.TokenMeta, error) {
		meta, found, err := lookup.LookupToken(ctx, chainID, address, proxies)
		if err != nil {
			return model.TokenMeta{}, err
		}
		if !found {
			return model.TokenMeta{}, errTokenDefaulted
		}
		return meta, nil
	})
	if errors.Is(err, errTokenDefaulted) {
		return DefaultToken(address), nil
	}
	return meta, err
}

func (c *Cached) GetAddressLabel(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (string, error) {
	return c.labels.Get(newKey(chainID, address), func() (string, error) {
		return c.inner.GetAddressLabel(ctx, chainID, address, proxies)
	})
}
