package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// LogEvent is a log emitted during execution, already decoded into typed parameters.
// The position of an event in its sequence is its on-chain emission order.
type LogEvent struct {
	ChainID         uint64      `json:"chain_id"`
	ContractAddress string      `json:"contract_address"`
	EventName       string      `json:"event_name"`
	Parameters      []Parameter `json:"parameters"`
}

// Parameter is a decoded event argument.
type Parameter struct {
	Name  string      `json:"name,omitempty"`
	Type  string      `json:"type,omitempty"`
	Value interface{} `json:"value"`
}

// UnmarshalJSON decodes numbers as json.Number so uint256 values stay exact.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	type Alias LogEvent
	var a Alias
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&a); err != nil {
		return err
	}
	*e = LogEvent(a)
	return nil
}

// Param returns the parameter at index i.
func (e LogEvent) Param(i int) (Parameter, bool) {
	if i < 0 || i >= len(e.Parameters) {
		return Parameter{}, false
	}
	return e.Parameters[i], true
}

// Address returns the parameter value as an address string. Object values of
// the form {"address": ...} are accepted.
func (p Parameter) Address() (string, error) {
	switch v := p.Value.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty address")
		}
		return v, nil
	case common.Address:
		return strings.ToLower(v.Hex()), nil
	case *common.Address:
		if v == nil {
			return "", fmt.Errorf("nil address")
		}
		return strings.ToLower(v.Hex()), nil
	case map[string]interface{}:
		address, ok := v["address"].(string)
		if !ok || address == "" {
			return "", fmt.Errorf("object value has no address")
		}
		return address, nil
	default:
		return "", fmt.Errorf("unsupported address type %T", p.Value)
	}
}

// BigInt returns the parameter value as an integer.
func (p Parameter) BigInt() (*big.Int, error) {
	return asBigInt(p.Value)
}

// BigInts returns the parameter value as a list of integers.
func (p Parameter) BigInts() ([]*big.Int, error) {
	switch v := p.Value.(type) {
	case []*big.Int:
		out := make([]*big.Int, len(v))
		for i, item := range v {
			if item == nil {
				return nil, fmt.Errorf("nil integer at %d", i)
			}
			out[i] = new(big.Int).Set(item)
		}
		return out, nil
	case []interface{}:
		out := make([]*big.Int, 0, len(v))
		for i, item := range v {
			n, err := asBigInt(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	case []string:
		out := make([]*big.Int, 0, len(v))
		for i, item := range v {
			n, err := asBigInt(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	case []json.Number:
		out := make([]*big.Int, 0, len(v))
		for i, item := range v {
			n, err := asBigInt(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported list type %T", p.Value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case json.Number:
		return parseInteger(string(v))
	case string:
		return parseInteger(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("non-integer value %v", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func parseInteger(text string) (*big.Int, error) {
	text = strings.TrimSpace(text)
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", text)
	}
	return n, nil
}
