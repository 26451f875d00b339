package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// UtxoRepo is the bridge's UTXO accounting pool in the utxos table.
type UtxoRepo struct {
	db *DB
}

var _ store.UtxoRepository = (*UtxoRepo)(nil)

func NewUtxoRepo(db *DB) *UtxoRepo {
	return &UtxoRepo{db: db}
}

// InsertBatch inserts extracted records in one transaction. Conflicting
// outpoints are skipped, so re-running a pipeline over an already
// processed block is a no-op.
func (r *UtxoRepo) InsertBatch(ctx context.Context, chain model.Chain, network model.Network, utxos []model.UtxoRecord) error {
	if len(utxos) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin utxo insert: %w", err)
	}
	defer tx.Rollback()

	for _, u := range utxos {
		var deposit []byte
		if u.DepositInfo != nil {
			deposit, err = json.Marshal(u.DepositInfo)
			if err != nil {
				return fmt.Errorf("marshal deposit info for %s: %w", u.Outpoint, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO utxos (chain, network, txid, vout, value, spend_descriptor, deposit_info)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (chain, network, txid, vout) DO NOTHING
		`, chain, network, u.Outpoint.TxID, u.Outpoint.Index, int64(u.Value), u.SpendDescriptor, deposit); err != nil {
			return fmt.Errorf("insert utxo %s: %w", u.Outpoint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit utxo insert: %w", err)
	}
	return nil
}

// ListUnsigned returns UTXOs still waiting for the signing stage, oldest
// first. limit <= 0 means no limit.
func (r *UtxoRepo) ListUnsigned(ctx context.Context, chain model.Chain, network model.Network, limit int) ([]model.UtxoRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT txid, vout, value, spend_descriptor, deposit_info
		FROM utxos
		WHERE chain = $1 AND network = $2 AND spend_signature IS NULL
		ORDER BY created_at, txid, vout
	`
	args := []any{chain, network}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unsigned utxos: %w", err)
	}
	defer rows.Close()

	var records []model.UtxoRecord
	for rows.Next() {
		var (
			u       model.UtxoRecord
			value   int64
			deposit sql.NullString
		)
		if err := rows.Scan(&u.Outpoint.TxID, &u.Outpoint.Index, &value, &u.SpendDescriptor, &deposit); err != nil {
			return nil, fmt.Errorf("scan utxo: %w", err)
		}
		u.Value = uint64(value)
		if deposit.Valid && deposit.String != "" {
			info := &model.DepositInfo{}
			if err := json.Unmarshal([]byte(deposit.String), info); err != nil {
				return nil, fmt.Errorf("decode deposit info for %s: %w", u.Outpoint, err)
			}
			u.DepositInfo = info
		}
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate utxos: %w", err)
	}
	return records, nil
}

// SetSignature records the signature produced by the out-of-core signing
// stage for one outpoint.
func (r *UtxoRepo) SetSignature(ctx context.Context, chain model.Chain, network model.Network, outpoint model.Outpoint, signature []byte) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE utxos SET spend_signature = $5, updated_at = now()
		WHERE chain = $1 AND network = $2 AND txid = $3 AND vout = $4
	`, chain, network, outpoint.TxID, outpoint.Index, signature)
	if err != nil {
		return fmt.Errorf("set signature for %s: %w", outpoint, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set signature for %s: %w", outpoint, err)
	}
	if affected == 0 {
		return fmt.Errorf("utxo %s: %w", outpoint, store.ErrNotFound)
	}
	return nil
}
