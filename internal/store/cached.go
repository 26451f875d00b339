package store

import (
	"context"

	"github.com/Cleancoindev2/ptokens-core/internal/cache"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// CachedChainStore decorates a ChainStore with an in-process block cache.
// Only block reads are cached: blocks are immutable once stored, while
// pointers and config are mutable and always hit the backing store.
type CachedChainStore struct {
	ChainStore
	blocks *cache.BlockCache
}

func NewCachedChainStore(inner ChainStore, blocks *cache.BlockCache) *CachedChainStore {
	return &CachedChainStore{ChainStore: inner, blocks: blocks}
}

func (s *CachedChainStore) GetBlock(ctx context.Context, chain model.Chain, hash string) (*model.BlockRecord, error) {
	if block, ok := s.blocks.Get(chain, hash); ok {
		return block, nil
	}
	block, err := s.ChainStore.GetBlock(ctx, chain, hash)
	if err != nil {
		return nil, err
	}
	s.blocks.Put(chain, block)
	return block, nil
}

func (s *CachedChainStore) PutBlock(ctx context.Context, chain model.Chain, block *model.BlockRecord) error {
	if err := s.ChainStore.PutBlock(ctx, chain, block); err != nil {
		return err
	}
	s.blocks.Put(chain, block)
	return nil
}
