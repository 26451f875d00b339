// Package memory provides an in-process implementation of the store
// interfaces. It backs dev mode and is the substrate most unit tests run
// the settlement engines against.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

type chainState struct {
	blocks   map[string]model.BlockRecord
	pointers map[string]string
	config   map[string]uint64
}

// Store is a mutex-guarded, map-backed store.ChainStore.
type Store struct {
	mu     sync.RWMutex
	chains map[model.Chain]*chainState
}

var _ store.ChainStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{chains: make(map[model.Chain]*chainState)}
}

func (s *Store) state(chain model.Chain) *chainState {
	cs, ok := s.chains[chain]
	if !ok {
		cs = &chainState{
			blocks:   make(map[string]model.BlockRecord),
			pointers: make(map[string]string),
			config:   make(map[string]uint64),
		}
		s.chains[chain] = cs
	}
	return cs
}

func (s *Store) GetBlock(_ context.Context, chain model.Chain, hash string) (*model.BlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", hash, store.ErrNotFound)
	}
	block, ok := cs.blocks[hash]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", hash, store.ErrNotFound)
	}
	return &block, nil
}

func (s *Store) PutBlock(_ context.Context, chain model.Chain, block *model.BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(chain).blocks[block.Hash] = *block
	return nil
}

func (s *Store) GetPointer(_ context.Context, chain model.Chain, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.chains[chain]
	if !ok {
		return "", fmt.Errorf("pointer %s: %w", name, store.ErrNotFound)
	}
	hash, ok := cs.pointers[name]
	if !ok {
		return "", fmt.Errorf("pointer %s: %w", name, store.ErrNotFound)
	}
	return hash, nil
}

func (s *Store) SetPointer(_ context.Context, chain model.Chain, name, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(chain).pointers[name] = hash
	return nil
}

func (s *Store) GetConfig(_ context.Context, chain model.Chain, name string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.chains[chain]
	if !ok {
		return 0, fmt.Errorf("config %s: %w", name, store.ErrNotFound)
	}
	value, ok := cs.config[name]
	if !ok {
		return 0, fmt.Errorf("config %s: %w", name, store.ErrNotFound)
	}
	return value, nil
}

func (s *Store) SetConfig(_ context.Context, chain model.Chain, name string, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(chain).config[name] = value
	return nil
}

type depositKey struct {
	chain   model.Chain
	network model.Network
}

// DepositIndexRepo is an in-memory store.DepositIndexRepository.
type DepositIndexRepo struct {
	mu      sync.RWMutex
	indexes map[depositKey]model.DepositIndex
}

var _ store.DepositIndexRepository = (*DepositIndexRepo)(nil)

func NewDepositIndexRepo() *DepositIndexRepo {
	return &DepositIndexRepo{indexes: make(map[depositKey]model.DepositIndex)}
}

func (r *DepositIndexRepo) Snapshot(_ context.Context, chain model.Chain, network model.Network) (model.DepositIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(model.DepositIndex)
	for addr, info := range r.indexes[depositKey{chain, network}] {
		snapshot[addr] = info
	}
	return snapshot, nil
}

func (r *DepositIndexRepo) Upsert(_ context.Context, chain model.Chain, network model.Network, info model.DepositInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := depositKey{chain, network}
	index, ok := r.indexes[key]
	if !ok {
		index = make(model.DepositIndex)
		r.indexes[key] = index
	}
	index[info.DepositAddress] = info
	return nil
}

type utxoKey struct {
	chain   model.Chain
	network model.Network
}

type storedUtxo struct {
	record model.UtxoRecord
	seq    uint64
}

// UtxoRepo is an in-memory store.UtxoRepository. Insertion order is
// preserved so ListUnsigned pages deterministically.
type UtxoRepo struct {
	mu    sync.RWMutex
	pools map[utxoKey]map[model.Outpoint]storedUtxo
	seq   uint64
}

var _ store.UtxoRepository = (*UtxoRepo)(nil)

func NewUtxoRepo() *UtxoRepo {
	return &UtxoRepo{pools: make(map[utxoKey]map[model.Outpoint]storedUtxo)}
}

func (r *UtxoRepo) InsertBatch(_ context.Context, chain model.Chain, network model.Network, utxos []model.UtxoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := utxoKey{chain, network}
	pool, ok := r.pools[key]
	if !ok {
		pool = make(map[model.Outpoint]storedUtxo)
		r.pools[key] = pool
	}
	for _, u := range utxos {
		if _, exists := pool[u.Outpoint]; exists {
			continue
		}
		r.seq++
		pool[u.Outpoint] = storedUtxo{record: u, seq: r.seq}
	}
	return nil
}

// SetSignature records the signing stage's output for one outpoint.
func (r *UtxoRepo) SetSignature(_ context.Context, chain model.Chain, network model.Network, outpoint model.Outpoint, signature []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := r.pools[utxoKey{chain, network}]
	stored, ok := pool[outpoint]
	if !ok {
		return fmt.Errorf("utxo %s: %w", outpoint, store.ErrNotFound)
	}
	stored.record.SpendSignature = signature
	pool[outpoint] = stored
	return nil
}

func (r *UtxoRepo) ListUnsigned(_ context.Context, chain model.Chain, network model.Network, limit int) ([]model.UtxoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stored []storedUtxo
	for _, u := range r.pools[utxoKey{chain, network}] {
		if u.record.SpendSignature == nil {
			stored = append(stored, u)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	records := make([]model.UtxoRecord, 0, len(stored))
	for _, u := range stored {
		records = append(records, u.record)
	}
	return records, nil
}
