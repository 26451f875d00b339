package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

func TestStreamNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bridge:submissions:btc:mainnet",
		submissionStream(model.ChainBTC, model.NetworkMainnet))
	assert.Equal(t, "bridge:events:eth:testnet",
		eventStream(model.ChainETH, model.NetworkTestnet))
	assert.Equal(t, "bridge:submissions:eth:mainnet:checkpoint",
		checkpointKey(model.ChainETH, model.NetworkMainnet))
}

func TestDecodeEntry(t *testing.T) {
	t.Parallel()

	entry, err := decodeEntry(redis.XMessage{
		ID:     "1724800000000-0",
		Values: map[string]any{payloadField: `{"block":{}}`},
	})
	require.NoError(t, err)
	assert.Equal(t, "1724800000000-0", entry.ID)
	assert.Equal(t, []byte(`{"block":{}}`), entry.Payload)
}

func TestDecodeEntry_Malformed(t *testing.T) {
	t.Parallel()

	_, err := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]any{}})
	require.Error(t, err)

	_, err = decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]any{payloadField: 42}})
	require.Error(t, err)
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New("not-a-redis-url")
	require.Error(t, err)
}
