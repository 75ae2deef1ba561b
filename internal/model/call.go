package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// CallNode is one frame of a decoded call tree.
type CallNode struct {
	CallType string      `json:"call_type"`
	Status   bool        `json:"status"`
	Value    *big.Int    `json:"value"`
	From     string      `json:"from_address"`
	To       string      `json:"to_address"`
	Subcalls []*CallNode `json:"subcalls,omitempty"`
}

// HasValue reports whether the frame moved a non-zero native amount.
func (n *CallNode) HasValue() bool {
	return n != nil && n.Value != nil && n.Value.Sign() != 0
}

// IsDelegateCall reports whether the frame is a delegatecall.
func (n *CallNode) IsDelegateCall() bool {
	return n != nil && strings.EqualFold(n.CallType, "delegatecall")
}

// UnmarshalJSON accepts the value as a JSON number, a decimal string or a 0x hex string.
func (n *CallNode) UnmarshalJSON(data []byte) error {
	type Alias CallNode
	var a struct {
		Alias
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = CallNode(a.Alias)
	value, err := parseQuantity(a.Value)
	if err != nil {
		return fmt.Errorf("call value: %w", err)
	}
	n.Value = value
	return nil
}

// Transaction bundles the decoded call tree and event sequence of one transaction.
type Transaction struct {
	ChainID     uint64     `json:"chain_id"`
	Hash        string     `json:"tx_hash"`
	BlockNumber uint64     `json:"block_number"`
	Root        *CallNode  `json:"call,omitempty"`
	Events      []LogEvent `json:"events"`
}

func parseQuantity(raw json.RawMessage) (*big.Int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, nil
	}
	text = strings.Trim(text, `"`)
	if text == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", text)
	}
	return value, nil
}
