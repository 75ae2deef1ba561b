package model

import "strings"

// ZeroAddress is the token address used for native value transfers.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// AddressRef is an address with its display label.
type AddressRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Badge   string `json:"badge,omitempty"`
}

// NewAddressRef returns a reference labelled with the address itself.
func NewAddressRef(address string) AddressRef {
	return AddressRef{Address: address, Name: address}
}

// NormalizeAddress repairs addresses delivered as full 32-byte words by keeping
// the last 40 hex characters. Well-formed and too-short inputs are returned as is.
func NormalizeAddress(address string) string {
	if len(address) == 42 {
		return address
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if len(digits) < 40 {
		return address
	}
	return "0x" + digits[len(digits)-40:]
}
