package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestTokenIdentityRoundTrip(t *testing.T) {
	contract := "0x06012c8cf97bead5deae237070f9587f8e7a266d"
	id, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	identity := FormatTokenIdentity(contract, id)
	if identity != contract+"?a="+id.String()+"#inventory" {
		t.Fatalf("identity mismatch: %s", identity)
	}

	gotContract, gotID, ok := ParseTokenIdentity(identity)
	if !ok {
		t.Fatalf("parse failed for %s", identity)
	}
	if gotContract != contract || gotID.Cmp(id) != 0 {
		t.Fatalf("round trip mismatch: %s %s", gotContract, gotID)
	}
}

func TestParseTokenIdentityRejectsPlainAddress(t *testing.T) {
	if _, _, ok := ParseTokenIdentity("0x06012c8cf97bead5deae237070f9587f8e7a266d"); ok {
		t.Fatalf("plain address must not parse as identity")
	}
	if _, _, ok := ParseTokenIdentity("0xabc?a=xyz#inventory"); ok {
		t.Fatalf("non-numeric id must not parse")
	}
}

func TestNormalizeAddressPadded(t *testing.T) {
	padded := "0x000000000000000000000000a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"
	if len(padded) != 66 {
		t.Fatalf("fixture length %d", len(padded))
	}
	got := NormalizeAddress(padded)
	if got != "0xa1b2c3d4e5f60718293a4b5c6d7e8f9012345678" {
		t.Fatalf("normalized mismatch: %s", got)
	}

	plain := "0xA1b2c3d4e5f60718293a4b5c6d7e8f9012345678"
	if NormalizeAddress(plain) != plain {
		t.Fatalf("well-formed address must be unchanged")
	}
	if NormalizeAddress("0x1234") != "0x1234" {
		t.Fatalf("short address must be unchanged")
	}
}

func TestLogEventJSONKeepsLargeIntegers(t *testing.T) {
	payload := `{
		"chain_id": 1,
		"contract_address": "0x1111111111111111111111111111111111111111",
		"event_name": "TransferBatch",
		"parameters": [
			{"name": "operator", "type": "address", "value": "0x2222222222222222222222222222222222222222"},
			{"name": "from", "type": "address", "value": "0x3333333333333333333333333333333333333333"},
			{"name": "to", "type": "address", "value": "0x4444444444444444444444444444444444444444"},
			{"name": "ids", "type": "uint256[]", "value": [1, 12345678901234567890123]},
			{"name": "values", "type": "uint256[]", "value": ["0x0a", "7"]}
		]
	}`

	var event LogEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ids, err := event.Parameters[3].BigInts()
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if ids[1].String() != "12345678901234567890123" {
		t.Fatalf("large id lost precision: %s", ids[1])
	}

	amounts, err := event.Parameters[4].BigInts()
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if amounts[0].Int64() != 10 || amounts[1].Int64() != 7 {
		t.Fatalf("amounts mismatch: %v", amounts)
	}

	from, err := event.Parameters[1].Address()
	if err != nil || from != "0x3333333333333333333333333333333333333333" {
		t.Fatalf("from mismatch: %s %v", from, err)
	}
}

func TestParameterAddressObjectForm(t *testing.T) {
	payload := `{
		"chain_id": 1,
		"contract_address": "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb",
		"event_name": "PunkBought",
		"parameters": [
			{"name": "punkIndex", "type": "uint256", "value": 7},
			{"name": "value", "type": "uint256", "value": "1000"},
			{"name": "fromAddress", "type": "address", "value": {"address": "0x3333333333333333333333333333333333333333", "name": "Seller"}},
			{"name": "toAddress", "type": "address", "value": {"name": "Buyer"}}
		]
	}`

	var event LogEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	from, err := event.Parameters[2].Address()
	if err != nil || from != "0x3333333333333333333333333333333333333333" {
		t.Fatalf("object address mismatch: %s %v", from, err)
	}
	if _, err := event.Parameters[3].Address(); err == nil {
		t.Fatalf("object without address must fail")
	}
}

func TestCallNodeJSONValueForms(t *testing.T) {
	payload := `{
		"call_type": "call",
		"status": true,
		"value": "0xde0b6b3a7640000",
		"from_address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"to_address": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"subcalls": [
			{"call_type": "delegatecall", "status": true, "value": 0, "from_address": "0xb", "to_address": "0xc"},
			{"call_type": "call", "status": false, "value": "25", "from_address": "0xb", "to_address": "0xd"}
		]
	}`

	var node CallNode
	if err := json.Unmarshal([]byte(payload), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if node.Value.String() != "1000000000000000000" {
		t.Fatalf("root value mismatch: %s", node.Value)
	}
	if len(node.Subcalls) != 2 {
		t.Fatalf("subcalls mismatch: %d", len(node.Subcalls))
	}
	if node.Subcalls[0].HasValue() || !node.Subcalls[0].IsDelegateCall() {
		t.Fatalf("first subcall mismatch: %+v", node.Subcalls[0])
	}
	if node.Subcalls[1].Value.Int64() != 25 {
		t.Fatalf("second subcall value mismatch: %s", node.Subcalls[1].Value)
	}
}

func TestTypedConditions(t *testing.T) {
	depthErr := fmt.Errorf("walk: %w", &RecursionDepthExceededError{Limit: 3, Depth: 4})
	if !errors.Is(depthErr, ErrRecursionDepthExceeded) {
		t.Fatalf("depth error must match sentinel")
	}

	wrapped := &DecodeError{Stage: StageEvents, Err: &MalformedEventError{Index: 2, EventName: "Transfer", Reason: "missing parameter 2"}}
	if !errors.Is(wrapped, ErrMalformedEvent) {
		t.Fatalf("decode error must unwrap to malformed event")
	}
	var malformed *MalformedEventError
	if !errors.As(wrapped, &malformed) || malformed.Index != 2 {
		t.Fatalf("errors.As mismatch: %+v", malformed)
	}
}

func TestProxyMapCaseInsensitive(t *testing.T) {
	proxies := ProxyMap{}
	proxies.Set("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD", ProxyRecord{Kind: DirectProxy, ImplementationAddress: "0x1"})
	if !proxies.Has("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd") {
		t.Fatalf("lookup must ignore case")
	}
	var empty ProxyMap
	if empty.Has("0x1") {
		t.Fatalf("nil map must report absent")
	}
}
