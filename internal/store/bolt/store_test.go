package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_BlockRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetBlock(ctx, model.ChainETH, "0xabc")
	require.ErrorIs(t, err, store.ErrNotFound)

	block := &model.BlockRecord{
		Hash:       "0xabc",
		ParentHash: "0xaab",
		Height:     1234,
		Payload:    []byte(`{"receipts":[]}`),
	}
	require.NoError(t, s.PutBlock(ctx, model.ChainETH, block))

	got, err := s.GetBlock(ctx, model.ChainETH, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, block, got)

	_, err = s.GetBlock(ctx, model.ChainBTC, "0xabc")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_PointerOverwrite(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetPointer(ctx, model.ChainETH, store.PointerCanon)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetPointer(ctx, model.ChainETH, store.PointerCanon, "0x01"))
	require.NoError(t, s.SetPointer(ctx, model.ChainETH, store.PointerCanon, "0x02"))

	hash, err := s.GetPointer(ctx, model.ChainETH, store.PointerCanon)
	require.NoError(t, err)
	assert.Equal(t, "0x02", hash)
}

func TestStore_ConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth, 20))
	depth, err := s.GetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), depth)
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bridge.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutBlock(ctx, model.ChainETH, &model.BlockRecord{Hash: "0x01", Height: 1}))
	require.NoError(t, s.SetPointer(ctx, model.ChainETH, store.PointerLatest, "0x01"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	block, err := s.GetBlock(ctx, model.ChainETH, "0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Height)

	hash, err := s.GetPointer(ctx, model.ChainETH, store.PointerLatest)
	require.NoError(t, err)
	assert.Equal(t, "0x01", hash)
}
