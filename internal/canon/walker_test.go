package canon

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
	"github.com/Cleancoindev2/ptokens-core/internal/store/memory"
)

const testChain = model.ChainETH

func blockHash(height uint64) string {
	return fmt.Sprintf("0xblock%04d", height)
}

// seedChain stores sequential blocks [from, to] linked by parent hashes.
func seedChain(t *testing.T, cs store.ChainStore, from, to uint64) {
	t.Helper()
	ctx := context.Background()
	for h := from; h <= to; h++ {
		require.NoError(t, cs.PutBlock(ctx, testChain, &model.BlockRecord{
			Hash:       blockHash(h),
			ParentHash: blockHash(h - 1),
			Height:     h,
		}))
	}
}

func TestNthAncestor_WalksExactly(t *testing.T) {
	t.Parallel()

	cs := memory.NewStore()
	seedChain(t, cs, 100, 110)

	block, err := NthAncestor(context.Background(), cs, testChain, blockHash(110), 4)
	require.NoError(t, err)
	assert.Equal(t, blockHash(106), block.Hash)
	assert.Equal(t, uint64(106), block.Height)
}

func TestNthAncestor_ZeroReturnsStart(t *testing.T) {
	t.Parallel()

	cs := memory.NewStore()
	seedChain(t, cs, 100, 101)

	block, err := NthAncestor(context.Background(), cs, testChain, blockHash(101), 0)
	require.NoError(t, err)
	assert.Equal(t, blockHash(101), block.Hash)
}

func TestNthAncestor_MissingStartIsNotFound(t *testing.T) {
	t.Parallel()

	cs := memory.NewStore()

	_, err := NthAncestor(context.Background(), cs, testChain, blockHash(1), 0)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestNthAncestor_GapAbortsWholeWalk(t *testing.T) {
	t.Parallel()

	cs := memory.NewStore()
	// 105..110 present, 104 and below absent: a 6-step walk from 110
	// must fail even though 5 ancestors resolve.
	seedChain(t, cs, 105, 110)

	block, err := NthAncestor(context.Background(), cs, testChain, blockHash(110), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), block.Height)

	_, err = NthAncestor(context.Background(), cs, testChain, blockHash(110), 6)
	require.ErrorIs(t, err, store.ErrNotFound)
}
