package proxy

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP-1967 storage slots, keccak256(label) - 1.
var (
	ImplementationSlot = eip1967Slot("eip1967.proxy.implementation")
	BeaconSlot         = eip1967Slot("eip1967.proxy.beacon")
)

func eip1967Slot(label string) common.Hash {
	slot := new(big.Int).SetBytes(crypto.Keccak256([]byte(label)))
	slot.Sub(slot, big.NewInt(1))
	return common.BigToHash(slot)
}

// NFTX vault beacons expose childImplementation() instead of implementation().
const beaconABIJSON = `[
  {"inputs": [], "name": "implementation", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "childImplementation", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

var (
	beaconABI     abi.ABI
	beaconABIOnce sync.Once
	beaconABIErr  error
)

// BeaconABI returns the parsed minimal beacon ABI.
func BeaconABI() (abi.ABI, error) {
	beaconABIOnce.Do(func() {
		beaconABI, beaconABIErr = abi.JSON(strings.NewReader(beaconABIJSON))
	})
	return beaconABI, beaconABIErr
}
