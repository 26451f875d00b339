package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Cleancoindev2/ptokens-core/internal/canon"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/event"
	"github.com/Cleancoindev2/ptokens-core/internal/extractor"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// Publisher is the outbound settlement event boundary.
type Publisher interface {
	PublishUtxosExtracted(ctx context.Context, ev event.UtxosExtracted) error
	PublishCanonAdvanced(ctx context.Context, ev event.CanonAdvanced) error
}

// IngestBlockStage writes the submitted block and moves the latest
// pointer onto it. The block is stored before the pointer moves, so
// readers of latest never see a hash the store cannot resolve.
func IngestBlockStage(cs store.ChainStore) Stage {
	return Stage{
		Name: "ingest_block",
		Run: func(ctx context.Context, st *State) error {
			if st.Block == nil {
				return fmt.Errorf("submission carries no block")
			}
			if err := cs.PutBlock(ctx, st.Chain, st.Block); err != nil {
				return err
			}
			return cs.SetPointer(ctx, st.Chain, store.PointerLatest, st.Block.Hash)
		},
	}
}

// AdvanceCanonStage runs the canon advancer once, the call cadence its
// one-block-per-advance behavior is built around.
func AdvanceCanonStage(advancer *canon.Advancer) Stage {
	return Stage{
		Name: "advance_canon",
		Run: func(ctx context.Context, st *State) error {
			result, err := advancer.MaybeAdvance(ctx)
			if err != nil {
				return err
			}
			st.Canon = result
			return nil
		},
	}
}

// SnapshotDepositIndexStage materializes the watched-address map the
// extraction stages join against. The snapshot is immutable for the rest
// of the run.
func SnapshotDepositIndexStage(repo store.DepositIndexRepository) Stage {
	return Stage{
		Name: "snapshot_deposit_index",
		Run: func(ctx context.Context, st *State) error {
			index, err := repo.Snapshot(ctx, st.Chain, st.Network)
			if err != nil {
				return fmt.Errorf("snapshot deposit index: %w", err)
			}
			st.DepositIndex = index
			return nil
		},
	}
}

// FilterDepositTxsStage narrows the submission's transactions to those
// paying a watched address.
func FilterDepositTxsStage(ex *extractor.Extractor, params *chaincfg.Params) Stage {
	return Stage{
		Name: "filter_deposit_txs",
		Run: func(_ context.Context, st *State) error {
			kept, err := ex.FilterDepositTxs(st.Txs, st.DepositIndex, params)
			if err != nil {
				return err
			}
			st.DepositTxs = kept
			return nil
		},
	}
}

// ExtractUtxosStage runs deposit-matching UTXO extraction over the
// filtered transactions.
func ExtractUtxosStage(ex *extractor.Extractor, params *chaincfg.Params) Stage {
	return Stage{
		Name: "extract_utxos",
		Run: func(_ context.Context, st *State) error {
			utxos, err := ex.Extract(st.DepositTxs, st.DepositIndex, params)
			if err != nil {
				return err
			}
			st.Utxos = utxos
			return nil
		},
	}
}

// PersistUtxosStage merges extracted records into the UTXO pool.
func PersistUtxosStage(repo store.UtxoRepository) Stage {
	return Stage{
		Name: "persist_utxos",
		Run: func(ctx context.Context, st *State) error {
			if len(st.Utxos) == 0 {
				return nil
			}
			if err := repo.InsertBatch(ctx, st.Chain, st.Network, st.Utxos); err != nil {
				return fmt.Errorf("persist utxos: %w", err)
			}
			return nil
		},
	}
}

// PublishEventsStage emits settlement events for this run's outcomes.
// It runs last: events only describe state that is already persisted.
func PublishEventsStage(publisher Publisher) Stage {
	return Stage{
		Name: "publish_events",
		Run: func(ctx context.Context, st *State) error {
			now := time.Now().UTC()

			if len(st.Utxos) > 0 {
				blockHash := ""
				if st.Block != nil {
					blockHash = st.Block.Hash
				}
				if err := publisher.PublishUtxosExtracted(ctx, event.UtxosExtracted{
					Chain:     st.Chain,
					Network:   st.Network,
					BlockHash: blockHash,
					Utxos:     st.Utxos,
					At:        now,
				}); err != nil {
					return err
				}
			}

			if st.Canon.Advanced {
				if err := publisher.PublishCanonAdvanced(ctx, event.CanonAdvanced{
					Chain:       st.Chain,
					Network:     st.Network,
					CanonHash:   st.Canon.CanonHash,
					CanonHeight: st.Canon.CanonHeight,
					At:          now,
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// DepositStages is the stage list for the UTXO chain: ingest, advance
// canon, then recognize and account deposits.
func DepositStages(cs store.ChainStore, advancer *canon.Advancer, deposits store.DepositIndexRepository, utxos store.UtxoRepository, ex *extractor.Extractor, params *chaincfg.Params, publisher Publisher) []Stage {
	return []Stage{
		IngestBlockStage(cs),
		AdvanceCanonStage(advancer),
		SnapshotDepositIndexStage(deposits),
		FilterDepositTxsStage(ex, params),
		ExtractUtxosStage(ex, params),
		PersistUtxosStage(utxos),
		PublishEventsStage(publisher),
	}
}

// AccountChainStages is the stage list for the account chain, which only
// tracks canonicality.
func AccountChainStages(cs store.ChainStore, advancer *canon.Advancer, publisher Publisher) []Stage {
	return []Stage{
		IngestBlockStage(cs),
		AdvanceCanonStage(advancer),
		PublishEventsStage(publisher),
	}
}
