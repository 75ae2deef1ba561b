package transfers

import (
	"context"
	"fmt"

	"tokenflow/internal/model"
	"tokenflow/internal/semantics"
)

// ResolveStandard returns the token standard of the contract that emitted event.
// A proxy is unwrapped once to its implementation before the lookup. A proxy the
// repository knows nothing about is assumed to be an ERC20 token. An empty
// standard means unknown.
func ResolveStandard(ctx context.Context, repo semantics.StandardRepository, event model.LogEvent, proxies model.ProxyMap) (model.Standard, error) {
	address := event.ContractAddress
	if record, ok := proxies.Get(address); ok && isEIP1967(record.Kind) {
		address = record.ImplementationAddress
	}

	standard, found, err := repo.GetStandard(ctx, event.ChainID, address)
	if err != nil {
		return "", fmt.Errorf("get standard %s: %w", address, err)
	}
	if found && standard != "" {
		return standard, nil
	}
	if proxies.Has(event.ContractAddress) {
		return model.StandardERC20, nil
	}
	return "", nil
}

func isEIP1967(kind model.ProxyKind) bool {
	return kind == model.DirectProxy || kind == model.BeaconProxy
}
