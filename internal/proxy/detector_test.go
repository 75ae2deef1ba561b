package proxy

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"tokenflow/internal/cache"
	"tokenflow/internal/model"
)

type fakeReader struct {
	storage    map[common.Address]map[common.Hash][]byte
	storageErr error
	calls      map[common.Address]map[string][]byte
	callErr    map[string]error
	reads      int
	callCount  int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		storage: make(map[common.Address]map[common.Hash][]byte),
		calls:   make(map[common.Address]map[string][]byte),
		callErr: make(map[string]error),
	}
}

func (f *fakeReader) setSlot(account common.Address, slot common.Hash, value common.Address) {
	if f.storage[account] == nil {
		f.storage[account] = make(map[common.Hash][]byte)
	}
	f.storage[account][slot] = common.LeftPadBytes(value.Bytes(), 32)
}

func (f *fakeReader) setCall(t *testing.T, contract common.Address, method string, result common.Address) {
	parsed, err := BeaconABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	out, err := parsed.Methods[method].Outputs.Pack(result)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	if f.calls[contract] == nil {
		f.calls[contract] = make(map[string][]byte)
	}
	f.calls[contract][method] = out
}

func (f *fakeReader) StorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) ([]byte, error) {
	f.reads++
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	if word, ok := f.storage[account][slot]; ok {
		return word, nil
	}
	return make([]byte, 32), nil
}

func (f *fakeReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.callCount++
	parsed, err := BeaconABI()
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if !bytes.Equal(msg.Data[:4], method.ID) {
			continue
		}
		if err := f.callErr[name]; err != nil {
			return nil, err
		}
		if out, ok := f.calls[*msg.To][name]; ok {
			return out, nil
		}
		return nil, errors.New("execution reverted")
	}
	return nil, errors.New("unknown selector")
}

var (
	proxyAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	implAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	beaconAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	otherAddr  = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func TestEIP1967SlotsMatchPublishedValues(t *testing.T) {
	if got := ImplementationSlot.Hex(); got != "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc" {
		t.Fatalf("implementation slot mismatch: %s", got)
	}
	if got := BeaconSlot.Hex(); got != "0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50" {
		t.Fatalf("beacon slot mismatch: %s", got)
	}
}

func TestIsDirectProxy(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	ctx := context.Background()
	if !detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("expected direct proxy")
	}
	if !detector.IsDirectProxy(ctx, 1, proxyAddr.Hex(), implAddr.Hex()) {
		t.Fatalf("checksummed input must match")
	}
	if detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(otherAddr)) {
		t.Fatalf("different delegate must not match")
	}
	if detector.IsDirectProxy(ctx, 1, lower(otherAddr), lower(implAddr)) {
		t.Fatalf("empty slot must not match")
	}
}

func TestIsBeaconProxyFallsBackToChildImplementation(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, BeaconSlot, beaconAddr)
	reader.setCall(t, beaconAddr, "childImplementation", implAddr)
	reader.callErr["implementation"] = errors.New("execution reverted")
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	if !detector.IsBeaconProxy(context.Background(), 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("expected beacon proxy via childImplementation")
	}
	if reader.callCount != 2 {
		t.Fatalf("expected implementation then childImplementation, got %d calls", reader.callCount)
	}
}

func TestIsBeaconProxyUsesImplementation(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, BeaconSlot, beaconAddr)
	reader.setCall(t, beaconAddr, "implementation", implAddr)
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	if !detector.IsBeaconProxy(context.Background(), 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("expected beacon proxy")
	}
	if detector.IsBeaconProxy(context.Background(), 1, lower(proxyAddr), lower(otherAddr)) {
		t.Fatalf("different delegate must not match")
	}
}

func TestDetectionFailsClosed(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	reader.setSlot(proxyAddr, BeaconSlot, beaconAddr)
	reader.setCall(t, beaconAddr, "implementation", implAddr)
	reader.storageErr = errors.New("rpc unavailable")
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	ctx := context.Background()
	if detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("storage error must yield false")
	}
	if detector.IsBeaconProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("storage error must yield false for beacon")
	}

	reader.storageErr = nil
	reader.callErr["implementation"] = errors.New("execution reverted")
	reader.callErr["childImplementation"] = errors.New("execution reverted")
	if detector.IsBeaconProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("reverted beacon calls must yield false")
	}

	if detector.IsDirectProxy(ctx, 5, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("unknown chain must yield false")
	}
	if detector.IsDirectProxy(ctx, 1, "not-an-address", lower(implAddr)) {
		t.Fatalf("invalid address must yield false")
	}
}

func TestDetectionIsMemoized(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	checks, err := cache.New[CheckKey, bool](cache.Config{Size: 16})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}, Checks: checks})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if !detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
			t.Fatalf("expected direct proxy")
		}
	}
	if reader.reads != 1 {
		t.Fatalf("expected a single storage read, got %d", reader.reads)
	}
}

func TestFailuresAreNotMemoized(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	reader.storageErr = errors.New("timeout")
	checks, err := cache.New[CheckKey, bool](cache.Config{Size: 16})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}, Checks: checks})

	ctx := context.Background()
	if detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("failure must yield false")
	}
	reader.storageErr = nil
	if !detector.IsDirectProxy(ctx, 1, lower(proxyAddr), lower(implAddr)) {
		t.Fatalf("recovered reader must be consulted again")
	}
}

func TestDiscoverBuildsProxyMap(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	reader.setSlot(otherAddr, BeaconSlot, beaconAddr)
	reader.setCall(t, beaconAddr, "implementation", implAddr)
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	root := &model.CallNode{
		CallType: "call",
		From:     "0x9999999999999999999999999999999999999999",
		To:       lower(proxyAddr),
		Status:   true,
		Subcalls: []*model.CallNode{
			{CallType: "delegatecall", From: lower(proxyAddr), To: lower(implAddr), Status: true},
			{CallType: "call", From: lower(proxyAddr), To: lower(otherAddr), Status: true, Subcalls: []*model.CallNode{
				{CallType: "delegatecall", From: lower(otherAddr), To: lower(implAddr), Status: true},
			}},
			{CallType: "call", From: lower(proxyAddr), To: lower(beaconAddr), Status: true},
		},
	}

	proxies := detector.Discover(context.Background(), 1, root)
	if len(proxies) != 2 {
		t.Fatalf("expected 2 proxies, got %d: %+v", len(proxies), proxies)
	}
	direct, ok := proxies.Get(lower(proxyAddr))
	if !ok || direct.Kind != model.DirectProxy || direct.ImplementationAddress != lower(implAddr) {
		t.Fatalf("direct proxy mismatch: %+v", direct)
	}
	beacon, ok := proxies.Get(lower(otherAddr))
	if !ok || beacon.Kind != model.BeaconProxy {
		t.Fatalf("beacon proxy mismatch: %+v", beacon)
	}
}

func TestDetectReadsSlots(t *testing.T) {
	reader := newFakeReader()
	reader.setSlot(proxyAddr, ImplementationSlot, implAddr)
	reader.setSlot(otherAddr, BeaconSlot, beaconAddr)
	reader.setCall(t, beaconAddr, "implementation", implAddr)
	detector := NewDetector(Config{Readers: map[uint64]StateReader{1: reader}})

	ctx := context.Background()
	record, ok := detector.Detect(ctx, 1, lower(proxyAddr))
	if !ok || record.Kind != model.DirectProxy || record.ImplementationAddress != lower(implAddr) {
		t.Fatalf("direct detect mismatch: %+v %v", record, ok)
	}
	record, ok = detector.Detect(ctx, 1, lower(otherAddr))
	if !ok || record.Kind != model.BeaconProxy {
		t.Fatalf("beacon detect mismatch: %+v %v", record, ok)
	}
	if _, ok := detector.Detect(ctx, 1, lower(implAddr)); ok {
		t.Fatalf("plain contract must not be a proxy")
	}
}
