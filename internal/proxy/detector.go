package proxy

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tokenflow/internal/cache"
	"tokenflow/internal/model"
)

// DefaultDepthLimit bounds the call-tree walk used for discovery.
const DefaultDepthLimit = 2000

// StateReader reads contract state for one chain.
type StateReader interface {
	StorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CheckKey identifies one memoized proxy check.
type CheckKey struct {
	ChainID   uint64
	Delegator string
	Delegate  string
	Kind      model.ProxyKind
}

// Config wires a Detector.
type Config struct {
	Readers    map[uint64]StateReader
	Checks     *cache.HeadCache[CheckKey, bool]
	DepthLimit int
	Logger     *zap.Logger
}

// Detector checks EIP-1967 delegation. Every failure is reported as "not a proxy":
// a storage read error, a reverted beacon call or an unknown chain all yield false.
type Detector struct {
	readers    map[uint64]StateReader
	checks     *cache.HeadCache[CheckKey, bool]
	depthLimit int
	logger     *zap.Logger
}

// NewDetector builds a Detector. Checks may be nil to disable memoization.
func NewDetector(cfg Config) *Detector {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	depthLimit := cfg.DepthLimit
	if depthLimit <= 0 {
		depthLimit = DefaultDepthLimit
	}
	return &Detector{
		readers:    cfg.Readers,
		checks:     cfg.Checks,
		depthLimit: depthLimit,
		logger:     logger,
	}
}

// IsDirectProxy reports whether delegator stores delegate in the implementation slot.
func (d *Detector) IsDirectProxy(ctx context.Context, chainID uint64, delegator, delegate string) bool {
	key := CheckKey{ChainID: chainID, Delegator: strings.ToLower(delegator), Delegate: strings.ToLower(delegate), Kind: model.DirectProxy}
	return d.memo(key, func() (bool, error) {
		return d.checkDirect(ctx, chainID, delegator, delegate)
	})
}

// IsBeaconProxy reports whether delegator points at a beacon whose implementation is delegate.
func (d *Detector) IsBeaconProxy(ctx context.Context, chainID uint64, delegator, delegate string) bool {
	key := CheckKey{ChainID: chainID, Delegator: strings.ToLower(delegator), Delegate: strings.ToLower(delegate), Kind: model.BeaconProxy}
	return d.memo(key, func() (bool, error) {
		return d.checkBeacon(ctx, chainID, delegator, delegate)
	})
}

// Detect reads both slots of address without a candidate delegate.
func (d *Detector) Detect(ctx context.Context, chainID uint64, address string) (model.ProxyRecord, bool) {
	reader, account, err := d.target(chainID, address)
	if err != nil {
		d.logger.Debug("proxy detect failed", zap.Uint64("chain_id", chainID), zap.String("address", address), zap.Error(err))
		return model.ProxyRecord{}, false
	}

	impl, err := readAddressSlot(ctx, reader, account, ImplementationSlot)
	if err == nil && impl != (common.Address{}) {
		return model.ProxyRecord{Kind: model.DirectProxy, ImplementationAddress: hexAddress(impl)}, true
	}

	beacon, err := readAddressSlot(ctx, reader, account, BeaconSlot)
	if err != nil || beacon == (common.Address{}) {
		return model.ProxyRecord{}, false
	}
	impl, err = beaconImplementation(ctx, reader, beacon)
	if err != nil {
		d.logger.Debug("beacon implementation failed", zap.String("beacon", beacon.Hex()), zap.Error(err))
		return model.ProxyRecord{}, false
	}
	return model.ProxyRecord{Kind: model.BeaconProxy, ImplementationAddress: hexAddress(impl)}, true
}

// Discover tests every delegatecall edge of the call tree and returns the proxies found.
func (d *Detector) Discover(ctx context.Context, chainID uint64, root *model.CallNode) model.ProxyMap {
	proxies := model.ProxyMap{}
	if root == nil {
		return proxies
	}

	type frame struct {
		node  *model.CallNode
		depth int
	}
	seen := make(map[string]struct{})
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == nil {
			continue
		}
		if top.depth > d.depthLimit {
			d.logger.Warn("proxy discovery truncated", zap.Int("depth_limit", d.depthLimit))
			continue
		}

		if top.node.IsDelegateCall() {
			pair := strings.ToLower(top.node.From) + ":" + strings.ToLower(top.node.To)
			if _, ok := seen[pair]; !ok {
				seen[pair] = struct{}{}
				d.classify(ctx, chainID, top.node.From, top.node.To, proxies)
			}
		}

		for i := len(top.node.Subcalls) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Subcalls[i], depth: top.depth + 1})
		}
	}
	return proxies
}

func (d *Detector) classify(ctx context.Context, chainID uint64, delegator, delegate string, proxies model.ProxyMap) {
	if proxies.Has(delegator) {
		return
	}
	switch {
	case d.IsDirectProxy(ctx, chainID, delegator, delegate):
		proxies.Set(delegator, model.ProxyRecord{Kind: model.DirectProxy, ImplementationAddress: delegate})
	case d.IsBeaconProxy(ctx, chainID, delegator, delegate):
		proxies.Set(delegator, model.ProxyRecord{Kind: model.BeaconProxy, ImplementationAddress: delegate})
	}
}

func (d *Detector) memo(key CheckKey, check func() (bool, error)) bool {
	var (
		ok  bool
		err error
	)
	if d.checks == nil {
		ok, err = check()
	} else {
		ok, err = d.checks.Get(key, check)
	}
	if err != nil {
		d.logger.Debug("proxy check failed closed",
			zap.Uint64("chain_id", key.ChainID),
			zap.String("delegator", key.Delegator),
			zap.String("delegate", key.Delegate),
			zap.String("kind", string(key.Kind)),
			zap.Error(err),
		)
		return false
	}
	return ok
}

func (d *Detector) checkDirect(ctx context.Context, chainID uint64, delegator, delegate string) (bool, error) {
	reader, account, err := d.target(chainID, delegator)
	if err != nil {
		return false, err
	}
	candidate, err := parseAddress(delegate)
	if err != nil {
		return false, err
	}

	impl, err := readAddressSlot(ctx, reader, account, ImplementationSlot)
	if err != nil {
		return false, err
	}
	return impl == candidate, nil
}

func (d *Detector) checkBeacon(ctx context.Context, chainID uint64, delegator, delegate string) (bool, error) {
	reader, account, err := d.target(chainID, delegator)
	if err != nil {
		return false, err
	}
	candidate, err := parseAddress(delegate)
	if err != nil {
		return false, err
	}

	beacon, err := readAddressSlot(ctx, reader, account, BeaconSlot)
	if err != nil {
		return false, err
	}
	if beacon == (common.Address{}) {
		return false, nil
	}

	impl, err := beaconImplementation(ctx, reader, beacon)
	if err != nil {
		return false, err
	}
	return impl == candidate, nil
}

func (d *Detector) target(chainID uint64, address string) (StateReader, common.Address, error) {
	reader, ok := d.readers[chainID]
	if !ok || reader == nil {
		return nil, common.Address{}, fmt.Errorf("no state reader for chain %d", chainID)
	}
	account, err := parseAddress(address)
	if err != nil {
		return nil, common.Address{}, err
	}
	return reader, account, nil
}

func readAddressSlot(ctx context.Context, reader StateReader, account common.Address, slot common.Hash) (common.Address, error) {
	word, err := reader.StorageAt(ctx, account, slot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("read slot %s: %w", slot.Hex(), err)
	}
	if len(word) != common.HashLength {
		return common.Address{}, fmt.Errorf("storage word length %d", len(word))
	}
	return common.BytesToAddress(word), nil
}

func beaconImplementation(ctx context.Context, reader StateReader, beacon common.Address) (common.Address, error) {
	parsed, err := BeaconABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse beacon abi: %w", err)
	}
	impl, err := callAddressMethod(ctx, reader, beacon, parsed, "implementation")
	if err == nil {
		return impl, nil
	}
	impl, childErr := callAddressMethod(ctx, reader, beacon, parsed, "childImplementation")
	if childErr != nil {
		return common.Address{}, fmt.Errorf("%v; %w", err, childErr)
	}
	return impl, nil
}

func callAddressMethod(ctx context.Context, reader StateReader, contract common.Address, parsed abi.ABI, method string) (common.Address, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := reader.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("unexpected %s values: %d", method, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unsupported address type %T", values[0])
	}
	return addr, nil
}

func parseAddress(address string) (common.Address, error) {
	address = model.NormalizeAddress(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address: %s", address)
	}
	return common.HexToAddress(address), nil
}

func hexAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
