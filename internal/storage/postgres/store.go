package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tokenflow/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS contract_standards (
	chain_id   BIGINT NOT NULL,
	address    TEXT NOT NULL,
	standard   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address)
);
CREATE TABLE IF NOT EXISTS tokens (
	chain_id   BIGINT NOT NULL,
	address    TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	symbol     TEXT NOT NULL DEFAULT '',
	decimals   SMALLINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address)
);
CREATE TABLE IF NOT EXISTS address_labels (
	chain_id   BIGINT NOT NULL,
	address    TEXT NOT NULL,
	label      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address)
);
`

// Store provides Postgres persistence for contract semantics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the semantics tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Standard returns the recorded token standard of a contract.
func (s *Store) Standard(ctx context.Context, chainID uint64, address string) (model.Standard, bool, error) {
	var standard string
	row := s.pool.QueryRow(ctx, `SELECT standard FROM contract_standards WHERE chain_id=$1 AND address=$2`,
		int64(chainID), strings.ToLower(address))
	if err := row.Scan(&standard); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query standard: %w", err)
	}
	return model.Standard(standard), true, nil
}

// Token returns recorded fungible token metadata.
func (s *Store) Token(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error) {
	meta := model.TokenMeta{Address: strings.ToLower(address)}
	var decimals int16
	row := s.pool.QueryRow(ctx, `SELECT name, symbol, decimals FROM tokens WHERE chain_id=$1 AND address=$2`,
		int64(chainID), meta.Address)
	if err := row.Scan(&meta.Name, &meta.Symbol, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenMeta{}, false, nil
		}
		return model.TokenMeta{}, false, fmt.Errorf("query token: %w", err)
	}
	meta.Decimals = uint8(decimals)
	return meta, true, nil
}

// Label returns the recorded display name of an address.
func (s *Store) Label(ctx context.Context, chainID uint64, address string) (string, bool, error) {
	var label string
	row := s.pool.QueryRow(ctx, `SELECT label FROM address_labels WHERE chain_id=$1 AND address=$2`,
		int64(chainID), strings.ToLower(address))
	if err := row.Scan(&label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query label: %w", err)
	}
	return label, true, nil
}

// StandardRow is one contract_standards record.
type StandardRow struct {
	ChainID  uint64
	Address  string
	Standard model.Standard
}

// TokenRow is one tokens record.
type TokenRow struct {
	ChainID uint64
	Meta    model.TokenMeta
}

// LabelRow is one address_labels record.
type LabelRow struct {
	ChainID uint64
	Address string
	Label   string
}

// UpsertStandards inserts or updates contract standards.
func (s *Store) UpsertStandards(ctx context.Context, rows []StandardRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO contract_standards (chain_id, address, standard, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET standard = EXCLUDED.standard, updated_at = now()
		`, int64(row.ChainID), strings.ToLower(row.Address), string(row.Standard))
	}
	return s.sendBatch(ctx, batch, len(rows))
}

// UpsertTokens inserts or updates token metadata.
func (s *Store) UpsertTokens(ctx context.Context, rows []TokenRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO tokens (chain_id, address, name, symbol, decimals, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				updated_at = now()
		`, int64(row.ChainID), strings.ToLower(row.Meta.Address), row.Meta.Name, row.Meta.Symbol, int16(row.Meta.Decimals))
	}
	return s.sendBatch(ctx, batch, len(rows))
}

// UpsertLabels inserts or updates address labels.
func (s *Store) UpsertLabels(ctx context.Context, rows []LabelRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO address_labels (chain_id, address, label, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET label = EXCLUDED.label, updated_at = now()
		`, int64(row.ChainID), strings.ToLower(row.Address), row.Label)
	}
	return s.sendBatch(ctx, batch, len(rows))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
