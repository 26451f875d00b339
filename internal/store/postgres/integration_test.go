package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// testDB connects to the database named by TEST_DB_URL and applies the
// migrations. Tests are skipped when the variable is unset.
func testDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DB_URL")
	if url == "" {
		t.Skip("TEST_DB_URL not set, skipping postgres integration tests")
	}

	db, err := New(Config{URL: url, MaxOpenConns: 4, MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations("migrations"))

	// Isolate each run.
	for _, table := range []string{"utxos", "deposit_addresses", "chain_config", "chain_pointers", "blocks"} {
		_, err := db.ExecContext(context.Background(), "TRUNCATE "+table)
		require.NoError(t, err)
	}
	return db
}

func TestChainStore_Integration(t *testing.T) {
	db := testDB(t)
	cs := NewChainStore(db)
	ctx := context.Background()

	_, err := cs.GetBlock(ctx, model.ChainETH, "0x01")
	require.ErrorIs(t, err, store.ErrNotFound)

	block := &model.BlockRecord{
		Hash:       "0x01",
		ParentHash: "0x00",
		Height:     100,
		Payload:    []byte(`{"receipts":[{"status":1}]}`),
	}
	require.NoError(t, cs.PutBlock(ctx, model.ChainETH, block))
	// Blocks are immutable, duplicate insert is a no-op.
	require.NoError(t, cs.PutBlock(ctx, model.ChainETH, block))

	got, err := cs.GetBlock(ctx, model.ChainETH, "0x01")
	require.NoError(t, err)
	assert.Equal(t, block.Hash, got.Hash)
	assert.Equal(t, block.ParentHash, got.ParentHash)
	assert.Equal(t, block.Height, got.Height)
	assert.JSONEq(t, string(block.Payload), string(got.Payload))

	_, err = cs.GetPointer(ctx, model.ChainETH, store.PointerCanon)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, cs.SetPointer(ctx, model.ChainETH, store.PointerCanon, "0x01"))
	require.NoError(t, cs.SetPointer(ctx, model.ChainETH, store.PointerCanon, "0x02"))
	hash, err := cs.GetPointer(ctx, model.ChainETH, store.PointerCanon)
	require.NoError(t, err)
	assert.Equal(t, "0x02", hash)

	_, err = cs.GetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, cs.SetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth, 20))
	depth, err := cs.GetConfig(ctx, model.ChainETH, store.ConfigConfirmationDepth)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), depth)
}

func TestDepositIndexRepo_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewDepositIndexRepo(db)
	ctx := context.Background()

	first := model.DepositInfo{
		ID:               uuid.New(),
		Nonce:            1,
		DepositAddress:   "3P14159f73E4gFr7JterCCQh9QjiTjiZrG",
		RecipientAddress: "0x1111111111111111111111111111111111111111",
	}
	require.NoError(t, repo.Upsert(ctx, model.ChainBTC, model.NetworkMainnet, first))

	second := first
	second.ID = uuid.New()
	second.Nonce = 2
	second.DepositAddress = "3QJmV3qfvL9SuYo34YihAf3sRCW3qSinyC"
	require.NoError(t, repo.Upsert(ctx, model.ChainBTC, model.NetworkMainnet, second))

	// Upsert of an existing address replaces its metadata.
	first.Nonce = 9
	require.NoError(t, repo.Upsert(ctx, model.ChainBTC, model.NetworkMainnet, first))

	index, err := repo.Snapshot(ctx, model.ChainBTC, model.NetworkMainnet)
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, uint64(9), index[first.DepositAddress].Nonce)

	// Other networks are isolated.
	other, err := repo.Snapshot(ctx, model.ChainBTC, model.NetworkTestnet)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUtxoRepo_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewUtxoRepo(db)
	ctx := context.Background()

	info := &model.DepositInfo{
		ID:               uuid.New(),
		Nonce:            7,
		DepositAddress:   "3P14159f73E4gFr7JterCCQh9QjiTjiZrG",
		RecipientAddress: "0x2222222222222222222222222222222222222222",
	}
	batch := []model.UtxoRecord{
		{
			Value:           314159,
			Outpoint:        model.Outpoint{TxID: "aa01", Index: 0},
			SpendDescriptor: []byte{0x01, 0x02},
			DepositInfo:     info,
		},
		{
			Value:           1000000,
			Outpoint:        model.Outpoint{TxID: "bb02", Index: 1},
			SpendDescriptor: []byte{0x03, 0x04},
		},
	}

	require.NoError(t, repo.InsertBatch(ctx, model.ChainBTC, model.NetworkMainnet, batch))
	require.NoError(t, repo.InsertBatch(ctx, model.ChainBTC, model.NetworkMainnet, batch))

	unsigned, err := repo.ListUnsigned(ctx, model.ChainBTC, model.NetworkMainnet, 0)
	require.NoError(t, err)
	require.Len(t, unsigned, 2)
	assert.Equal(t, uint64(314159), unsigned[0].Value)
	require.NotNil(t, unsigned[0].DepositInfo)
	assert.Equal(t, info.ID, unsigned[0].DepositInfo.ID)
	assert.Nil(t, unsigned[1].DepositInfo)

	require.NoError(t, repo.SetSignature(ctx, model.ChainBTC, model.NetworkMainnet,
		model.Outpoint{TxID: "aa01", Index: 0}, []byte{0x30, 0x45}))

	unsigned, err = repo.ListUnsigned(ctx, model.ChainBTC, model.NetworkMainnet, 0)
	require.NoError(t, err)
	require.Len(t, unsigned, 1)
	assert.Equal(t, "bb02", unsigned[0].Outpoint.TxID)

	err = repo.SetSignature(ctx, model.ChainBTC, model.NetworkMainnet,
		model.Outpoint{TxID: "missing", Index: 0}, []byte{0x30})
	require.ErrorIs(t, err, store.ErrNotFound)
}
