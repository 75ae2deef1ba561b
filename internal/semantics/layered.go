package semantics

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tokenflow/internal/model"
)

// Layered answers lookups from an ordered list of sources; the first hit wins.
// Token data falls back to the proxy implementation, then to the chain, then to
// UnknownSymbol with DefaultDecimals.
type Layered struct {
	sources []Source
	chain   TokenFetcher
	logger  *zap.Logger
}

// NewLayered builds a Layered repository. chain may be nil.
func NewLayered(sources []Source, chain TokenFetcher, logger *zap.Logger) *Layered {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layered{sources: sources, chain: chain, logger: logger}
}

func (l *Layered) GetStandard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error) {
	for _, source := range l.sources {
		standard, ok, err := source.Standard(ctx, chainID, address)
		if err != nil {
			return "", false, err
		}
		if ok && standard != "" {
			return standard, true, nil
		}
	}
	return "", false, nil
}

func (l *Layered) GetTokenData(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (model.TokenMeta, error) {
	meta, ok, err := l.LookupToken(ctx, chainID, address, proxies)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if !ok {
		return DefaultToken(address), nil
	}
	return meta, nil
}

// LookupToken is GetTokenData without the default; ok is false when nothing answered.
func (l *Layered) LookupToken(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (model.TokenMeta, bool, error) {
	meta, ok, err := l.token(ctx, chainID, address)
	if err != nil || ok {
		return meta, ok, err
	}

	if record, isProxy := proxies.Get(address); isProxy {
		meta, ok, err = l.token(ctx, chainID, record.ImplementationAddress)
		if err != nil {
			return model.TokenMeta{}, false, err
		}
		if ok {
			meta.Address = strings.ToLower(address)
			return meta, true, nil
		}
	}

	if l.chain != nil {
		meta, err := l.chain.FetchToken(ctx, chainID, address)
		if err == nil {
			return meta, true, nil
		}
		l.logger.Debug("token metadata fetch failed", zap.Uint64("chain_id", chainID), zap.String("token", address), zap.Error(err))
	}
	return model.TokenMeta{}, false, nil
}

func (l *Layered) GetAddressLabel(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (string, error) {
	label, ok, err := l.label(ctx, chainID, address)
	if err != nil {
		return "", err
	}
	if ok {
		return label, nil
	}
	if record, isProxy := proxies.Get(address); isProxy {
		label, ok, err = l.label(ctx, chainID, record.ImplementationAddress)
		if err != nil {
			return "", err
		}
		if ok {
			return label, nil
		}
	}
	return address, nil
}

func (l *Layered) token(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error) {
	for _, source := range l.sources {
		meta, ok, err := source.Token(ctx, chainID, address)
		if err != nil {
			return model.TokenMeta{}, false, err
		}
		if ok {
			return meta, true, nil
		}
	}
	return model.TokenMeta{}, false, nil
}

func (l *Layered) label(ctx context.Context, chainID uint64, address string) (string, bool, error) {
	for _, source := range l.sources {
		label, ok, err := source.Label(ctx, chainID, address)
		if err != nil {
			return "", false, err
		}
		if ok && label != "" {
			return label, true, nil
		}
	}
	return "", false, nil
}
