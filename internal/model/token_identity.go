package model

import (
	"math/big"
	"strings"
)

const (
	identityInstanceSep = "?a="
	identitySuffix      = "#inventory"
)

// FormatTokenIdentity encodes a non-fungible instance as contract?a=<id>#inventory.
func FormatTokenIdentity(contract string, instanceID *big.Int) string {
	id := "0"
	if instanceID != nil {
		id = instanceID.String()
	}
	return contract + identityInstanceSep + id + identitySuffix
}

// ParseTokenIdentity splits a composite identity back into contract and instance id.
func ParseTokenIdentity(identity string) (string, *big.Int, bool) {
	if !strings.HasSuffix(identity, identitySuffix) {
		return "", nil, false
	}
	body := strings.TrimSuffix(identity, identitySuffix)
	sep := strings.LastIndex(body, identityInstanceSep)
	if sep <= 0 {
		return "", nil, false
	}
	id, ok := new(big.Int).SetString(body[sep+len(identityInstanceSep):], 10)
	if !ok {
		return "", nil, false
	}
	return body[:sep], id, true
}
