package postgres

import (
	"context"
	"fmt"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// DepositIndexRepo exposes the deposit address book stored in the
// deposit_addresses table.
type DepositIndexRepo struct {
	db *DB
}

var _ store.DepositIndexRepository = (*DepositIndexRepo)(nil)

func NewDepositIndexRepo(db *DB) *DepositIndexRepo {
	return &DepositIndexRepo{db: db}
}

// Snapshot materializes the watched-address map for one extraction run.
// The unique constraint on (chain, network, deposit_address) guarantees
// key uniqueness; a duplicate surfacing anyway is a data error.
func (r *DepositIndexRepo) Snapshot(ctx context.Context, chain model.Chain, network model.Network) (model.DepositIndex, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nonce, deposit_address, recipient_address
		FROM deposit_addresses
		WHERE chain = $1 AND network = $2
	`, chain, network)
	if err != nil {
		return nil, fmt.Errorf("snapshot deposit index: %w", err)
	}
	defer rows.Close()

	index := make(model.DepositIndex)
	for rows.Next() {
		var info model.DepositInfo
		if err := rows.Scan(&info.ID, &info.Nonce, &info.DepositAddress, &info.RecipientAddress); err != nil {
			return nil, fmt.Errorf("scan deposit address: %w", err)
		}
		if _, dup := index[info.DepositAddress]; dup {
			return nil, fmt.Errorf("deposit index: duplicate watched address %s", info.DepositAddress)
		}
		index[info.DepositAddress] = info
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposit addresses: %w", err)
	}
	return index, nil
}

func (r *DepositIndexRepo) Upsert(ctx context.Context, chain model.Chain, network model.Network, info model.DepositInfo) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deposit_addresses (id, chain, network, nonce, deposit_address, recipient_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chain, network, deposit_address) DO UPDATE SET
			id = EXCLUDED.id,
			nonce = EXCLUDED.nonce,
			recipient_address = EXCLUDED.recipient_address,
			updated_at = now()
	`, info.ID, chain, network, info.Nonce, info.DepositAddress, info.RecipientAddress)
	if err != nil {
		return fmt.Errorf("upsert deposit address %s: %w", info.DepositAddress, err)
	}
	return nil
}
