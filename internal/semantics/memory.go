package semantics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"tokenflow/internal/model"
)

type entryKey struct {
	chainID uint64
	address string
}

func newEntryKey(chainID uint64, address string) entryKey {
	return entryKey{chainID: chainID, address: strings.ToLower(address)}
}

// MemoryStore is an in-memory Source, optionally seeded from a YAML file.
type MemoryStore struct {
	mu        sync.RWMutex
	standards map[entryKey]model.Standard
	tokens    map[entryKey]model.TokenMeta
	labels    map[entryKey]string
}

// SeedFile is the YAML layout accepted by LoadSeedFile.
type SeedFile struct {
	Standards []SeedStandard `yaml:"standards"`
	Tokens    []SeedToken    `yaml:"tokens"`
	Labels    []SeedLabel    `yaml:"labels"`
}

type SeedStandard struct {
	ChainID  uint64 `yaml:"chain_id"`
	Address  string `yaml:"address"`
	Standard string `yaml:"standard"`
}

type SeedToken struct {
	ChainID         uint64 `yaml:"chain_id"`
	model.TokenMeta `yaml:",inline"`
}

type SeedLabel struct {
	ChainID uint64 `yaml:"chain_id"`
	Address string `yaml:"address"`
	Label   string `yaml:"label"`
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		standards: make(map[entryKey]model.Standard),
		tokens:    make(map[entryKey]model.TokenMeta),
		labels:    make(map[entryKey]string),
	}
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed: %w", err)
	}
	return seed, nil
}

// NewMemoryStoreFromSeed builds a store populated with seed.
func NewMemoryStoreFromSeed(seed SeedFile) *MemoryStore {
	store := NewMemoryStore()
	for _, s := range seed.Standards {
		store.SetStandard(s.ChainID, s.Address, model.Standard(s.Standard))
	}
	for _, t := range seed.Tokens {
		store.SetToken(t.ChainID, t.TokenMeta)
	}
	for _, l := range seed.Labels {
		store.SetLabel(l.ChainID, l.Address, l.Label)
	}
	return store
}

func (s *MemoryStore) SetStandard(chainID uint64, address string, standard model.Standard) {
	s.mu.Lock()
	s.standards[newEntryKey(chainID, address)] = standard
	s.mu.Unlock()
}

func (s *MemoryStore) SetToken(chainID uint64, meta model.TokenMeta) {
	s.mu.Lock()
	s.tokens[newEntryKey(chainID, meta.Address)] = meta
	s.mu.Unlock()
}

func (s *MemoryStore) SetLabel(chainID uint64, address, label string) {
	s.mu.Lock()
	s.labels[newEntryKey(chainID, address)] = label
	s.mu.Unlock()
}

func (s *MemoryStore) Standard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error) {
	s.mu.RLock()
	standard, ok := s.standards[newEntryKey(chainID, address)]
	s.mu.RUnlock()
	return standard, ok, nil
}

func (s *MemoryStore) Token(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error) {
	s.mu.RLock()
	meta, ok := s.tokens[newEntryKey(chainID, address)]
	s.mu.RUnlock()
	return meta, ok, nil
}

func (s *MemoryStore) Label(ctx context.Context, chainID uint64, address string) (string, bool, error) {
	s.mu.RLock()
	label, ok := s.labels[newEntryKey(chainID, address)]
	s.mu.RUnlock()
	return label, ok, nil
}
