package semantics

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tokenflow/internal/chain"
	"tokenflow/internal/model"
)

// ChainTokens reads ERC20 metadata with eth_call, per chain.
type ChainTokens struct {
	readers map[uint64]chain.Reader
	logger  *zap.Logger
}

func NewChainTokens(readers map[uint64]chain.Reader, logger *zap.Logger) *ChainTokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainTokens{readers: readers, logger: logger}
}

// FetchToken loads decimals, symbol and name. Decimals are required; symbol and
// name fall back from string to bytes32 return types and are optional.
func (c *ChainTokens) FetchToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: strings.ToLower(address)}
	reader, ok := c.readers[chainID]
	if !ok || reader == nil {
		return meta, fmt.Errorf("no chain reader for chain %d", chainID)
	}
	if !common.IsHexAddress(address) {
		return meta, fmt.Errorf("invalid token address: %s", address)
	}
	token := common.HexToAddress(address)

	stringABI, err := metadataABI("string")
	if err != nil {
		return meta, err
	}
	bytes32ABI, err := metadataABI("bytes32")
	if err != nil {
		return meta, err
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := reader.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("empty %s result", method)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		c.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		c.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
