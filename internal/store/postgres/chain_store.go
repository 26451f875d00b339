package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// ChainStore implements store.ChainStore on the blocks, chain_pointers
// and chain_config tables.
type ChainStore struct {
	db *DB
}

var _ store.ChainStore = (*ChainStore)(nil)

func NewChainStore(db *DB) *ChainStore {
	return &ChainStore{db: db}
}

func (s *ChainStore) GetBlock(ctx context.Context, chain model.Chain, hash string) (*model.BlockRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		block   model.BlockRecord
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, parent_hash, height, payload
		FROM blocks
		WHERE chain = $1 AND hash = $2
	`, chain, hash).Scan(&block.Hash, &block.ParentHash, &block.Height, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", hash, store.ErrNotFound)
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "get_block").Inc()
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	block.Payload = json.RawMessage(payload)
	return &block, nil
}

func (s *ChainStore) PutBlock(ctx context.Context, chain model.Chain, block *model.BlockRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	payload := block.Payload
	if payload == nil {
		payload = json.RawMessage(`null`)
	}
	// Blocks are immutable: re-inserting a known hash is a no-op.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks (chain, hash, parent_hash, height, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain, hash) DO NOTHING
	`, chain, block.Hash, block.ParentHash, block.Height, []byte(payload))
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "put_block").Inc()
		return fmt.Errorf("put block %s: %w", block.Hash, err)
	}
	return nil
}

func (s *ChainStore) GetPointer(ctx context.Context, chain model.Chain, name string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT hash FROM chain_pointers WHERE chain = $1 AND name = $2
	`, chain, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("pointer %s: %w", name, store.ErrNotFound)
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "get_pointer").Inc()
		return "", fmt.Errorf("get pointer %s: %w", name, err)
	}
	return hash, nil
}

func (s *ChainStore) SetPointer(ctx context.Context, chain model.Chain, name, hash string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	// Single upsert statement keeps the rewrite atomic for readers.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_pointers (chain, name, hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain, name) DO UPDATE SET
			hash = EXCLUDED.hash,
			updated_at = now()
	`, chain, name, hash)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "set_pointer").Inc()
		return fmt.Errorf("set pointer %s: %w", name, err)
	}
	return nil
}

func (s *ChainStore) GetConfig(ctx context.Context, chain model.Chain, name string) (uint64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var value int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM chain_config WHERE chain = $1 AND name = $2
	`, chain, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("config %s: %w", name, store.ErrNotFound)
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "get_config").Inc()
		return 0, fmt.Errorf("get config %s: %w", name, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("config %s: negative value %d", name, value)
	}
	return uint64(value), nil
}

func (s *ChainStore) SetConfig(ctx context.Context, chain model.Chain, name string, value uint64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_config (chain, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain, name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()
	`, chain, name, int64(value))
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("postgres", "set_config").Inc()
		return fmt.Errorf("set config %s: %w", name, err)
	}
	return nil
}
