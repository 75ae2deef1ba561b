package semantics

import (
	"context"
	"strings"

	"tokenflow/internal/model"
)

// Default token data returned when nothing is known about a contract.
const (
	UnknownSymbol   = "Unknown"
	DefaultDecimals = 18
)

// DefaultToken is the token data used when no source or chain read answers.
func DefaultToken(address string) model.TokenMeta {
	return model.TokenMeta{
		Address:  strings.ToLower(address),
		Name:     UnknownSymbol,
		Symbol:   UnknownSymbol,
		Decimals: DefaultDecimals,
	}
}

// StandardRepository resolves the token standard of a contract.
type StandardRepository interface {
	GetStandard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error)
}

// TokenRepository resolves fungible token metadata.
type TokenRepository interface {
	GetTokenData(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (model.TokenMeta, error)
}

// TokenLookup reports whether token data was found rather than defaulted.
type TokenLookup interface {
	LookupToken(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (model.TokenMeta, bool, error)
}

// LabelRepository resolves display names of addresses.
type LabelRepository interface {
	GetAddressLabel(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) (string, error)
}

// Repository is everything the transfer decoder looks up.
type Repository interface {
	StandardRepository
	TokenRepository
	LabelRepository
}

// Source is a single backing store of contract semantics.
type Source interface {
	Standard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error)
	Token(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error)
	Label(ctx context.Context, chainID uint64, address string) (string, bool, error)
}

// TokenFetcher reads token metadata from the chain itself.
type TokenFetcher interface {
	FetchToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, error)
}
