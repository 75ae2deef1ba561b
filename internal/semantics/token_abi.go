package semantics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Older tokens (MKR, SAI) return symbol and name as bytes32.
var metadataOutputs = []string{"string", "bytes32"}

var (
	metadataABIs    = map[string]abi.ABI{}
	metadataABIOnce sync.Once
	metadataABIErr  error
)

func metadataABIJSON(textType string) string {
	return fmt.Sprintf(`[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "%[1]s"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "%[1]s"}], "stateMutability": "view", "type": "function"}
]`, textType)
}

// metadataABI returns the ERC20 metadata ABI whose text getters return textType.
func metadataABI(textType string) (abi.ABI, error) {
	metadataABIOnce.Do(func() {
		for _, output := range metadataOutputs {
			parsed, err := abi.JSON(strings.NewReader(metadataABIJSON(output)))
			if err != nil {
				metadataABIErr = fmt.Errorf("parse %s metadata abi: %w", output, err)
				return
			}
			metadataABIs[output] = parsed
		}
	})
	if metadataABIErr != nil {
		return abi.ABI{}, metadataABIErr
	}
	parsed, ok := metadataABIs[textType]
	if !ok {
		return abi.ABI{}, fmt.Errorf("no metadata abi for %s", textType)
	}
	return parsed, nil
}
