package store_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/cache"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
	"github.com/Cleancoindev2/ptokens-core/internal/store/memory"
)

// countingStore counts block reads reaching the backing store.
type countingStore struct {
	store.ChainStore
	blockReads atomic.Int64
}

func (c *countingStore) GetBlock(ctx context.Context, chain model.Chain, hash string) (*model.BlockRecord, error) {
	c.blockReads.Add(1)
	return c.ChainStore.GetBlock(ctx, chain, hash)
}

func TestCachedChainStore_ServesRepeatBlockReadsFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	counting := &countingStore{ChainStore: memory.NewStore()}
	cached := store.NewCachedChainStore(counting, cache.NewBlockCache(16))

	block := &model.BlockRecord{Hash: "0x01", ParentHash: "0x00", Height: 1}
	require.NoError(t, cached.PutBlock(ctx, model.ChainETH, block))

	// PutBlock warmed the cache, so neither read touches the backend.
	for i := 0; i < 2; i++ {
		got, err := cached.GetBlock(ctx, model.ChainETH, "0x01")
		require.NoError(t, err)
		assert.Equal(t, block, got)
	}
	assert.Equal(t, int64(0), counting.blockReads.Load())
}

func TestCachedChainStore_MissFallsThroughOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.PutBlock(ctx, model.ChainETH, &model.BlockRecord{Hash: "0x02", Height: 2}))

	counting := &countingStore{ChainStore: backend}
	cached := store.NewCachedChainStore(counting, cache.NewBlockCache(16))

	for i := 0; i < 3; i++ {
		_, err := cached.GetBlock(ctx, model.ChainETH, "0x02")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), counting.blockReads.Load())
}

func TestCachedChainStore_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := memory.NewStore()
	counting := &countingStore{ChainStore: backend}
	cached := store.NewCachedChainStore(counting, cache.NewBlockCache(16))

	_, err := cached.GetBlock(ctx, model.ChainETH, "0x03")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Once the block lands, the next read must see it.
	require.NoError(t, backend.PutBlock(ctx, model.ChainETH, &model.BlockRecord{Hash: "0x03", Height: 3}))
	got, err := cached.GetBlock(ctx, model.ChainETH, "0x03")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Height)
}

func TestCachedChainStore_PointersBypassCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cached := store.NewCachedChainStore(memory.NewStore(), cache.NewBlockCache(16))

	require.NoError(t, cached.SetPointer(ctx, model.ChainETH, store.PointerCanon, "0x01"))
	hash, err := cached.GetPointer(ctx, model.ChainETH, store.PointerCanon)
	require.NoError(t, err)
	assert.Equal(t, "0x01", hash)
}
