package model

import "strings"

// ProxyKind names the EIP-1967 delegation pattern of a proxy.
type ProxyKind string

const (
	DirectProxy ProxyKind = "DirectProxy"
	BeaconProxy ProxyKind = "BeaconProxy"
)

// ProxyRecord describes where a proxy delegates to.
type ProxyRecord struct {
	Kind                  ProxyKind `json:"kind"`
	ImplementationAddress string    `json:"implementation_address"`
}

// ProxyMap maps proxy addresses to their records. Keys are lower-case.
type ProxyMap map[string]ProxyRecord

// Set stores a record for address.
func (m ProxyMap) Set(address string, record ProxyRecord) {
	m[strings.ToLower(address)] = record
}

// Get returns the record stored for address.
func (m ProxyMap) Get(address string) (ProxyRecord, bool) {
	if m == nil {
		return ProxyRecord{}, false
	}
	record, ok := m[strings.ToLower(address)]
	return record, ok
}

// Has reports whether address is in the map with any kind.
func (m ProxyMap) Has(address string) bool {
	_, ok := m.Get(address)
	return ok
}
