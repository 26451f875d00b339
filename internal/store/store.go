// Package store defines the persistence boundary of the settlement core:
// the chain store the decision engines operate over, plus the deposit
// address book and UTXO accounting repositories the pipeline writes to.
package store

import (
	"context"
	"errors"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// ErrNotFound is returned for absent blocks, pointers, and config values.
// Callers must distinguish it from real store failure: NotFound means
// "not applicable yet" and resolves to a no-op, while any other error
// aborts the pipeline stage that hit it.
var ErrNotFound = errors.New("not found")

// ErrConfigMissing marks an unset deployment configuration value. It is
// always fatal to the operation that needed the value.
var ErrConfigMissing = errors.New("configuration value missing")

// Named pointer slots. The latest pointer is owned by the ingestion stage;
// the canon pointer is mutated only by the canon advancer.
const (
	PointerLatest = "latest"
	PointerCanon  = "canon"
)

// ConfigConfirmationDepth names the per-chain confirmation depth: the
// number of blocks that must build on a block before it can become canon.
const ConfigConfirmationDepth = "confirmation_depth"

// ChainStore is the persistent block store keyed by block hash, with named
// pointer slots and integer configuration values, all scoped per chain.
//
// Implementations must return ErrNotFound (possibly wrapped) for absent
// data so callers can tell benign gaps from I/O failure.
type ChainStore interface {
	GetBlock(ctx context.Context, chain model.Chain, hash string) (*model.BlockRecord, error)
	PutBlock(ctx context.Context, chain model.Chain, block *model.BlockRecord) error
	GetPointer(ctx context.Context, chain model.Chain, name string) (string, error)
	// SetPointer atomically overwrites a pointer slot. Readers never
	// observe a half-written value.
	SetPointer(ctx context.Context, chain model.Chain, name, hash string) error
	GetConfig(ctx context.Context, chain model.Chain, name string) (uint64, error)
	// SetConfig is used by deployment bootstrap and tooling, never by the
	// settlement engines themselves.
	SetConfig(ctx context.Context, chain model.Chain, name string, value uint64) error
}

// DepositIndexRepository exposes the watched-address book. Snapshot
// materializes the address → deposit-info map consumed by one extraction
// call.
type DepositIndexRepository interface {
	Snapshot(ctx context.Context, chain model.Chain, network model.Network) (model.DepositIndex, error)
	Upsert(ctx context.Context, chain model.Chain, network model.Network, info model.DepositInfo) error
}

// UtxoRepository is the bridge's UTXO accounting pool. Inserting an
// already-known outpoint is a no-op, which keeps pipeline re-runs
// idempotent.
type UtxoRepository interface {
	InsertBatch(ctx context.Context, chain model.Chain, network model.Network, utxos []model.UtxoRecord) error
	ListUnsigned(ctx context.Context, chain model.Chain, network model.Network, limit int) ([]model.UtxoRecord, error)
}
