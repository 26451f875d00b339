package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	mu   sync.Mutex
	sent []Alert
	fail bool
}

func (r *recordingAlerter) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("channel down")
	}
	r.sent = append(r.sent, a)
	return nil
}

func (r *recordingAlerter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestMulti_FansOut(t *testing.T) {
	t.Parallel()

	a, b := &recordingAlerter{}, &recordingAlerter{}
	m := NewMulti(time.Minute, nil, a, b)

	require.NoError(t, m.Send(context.Background(), Alert{Type: TypePipelineFailure, Chain: "btc"}))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestMulti_CooldownSuppressesRepeats(t *testing.T) {
	t.Parallel()

	ch := &recordingAlerter{}
	m := NewMulti(time.Minute, nil, ch)
	now := time.Unix(1_700_000_000, 0)
	m.nowFn = func() time.Time { return now }

	alert := Alert{Type: TypeStoreIO, Chain: "eth", Network: "mainnet"}
	require.NoError(t, m.Send(context.Background(), alert))
	require.NoError(t, m.Send(context.Background(), alert))
	assert.Equal(t, 1, ch.count())

	// A different type is a different cooldown key.
	require.NoError(t, m.Send(context.Background(), Alert{Type: TypeCanonStall, Chain: "eth", Network: "mainnet"}))
	assert.Equal(t, 2, ch.count())

	// And the same alert goes through again once the window elapses.
	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Send(context.Background(), alert))
	assert.Equal(t, 3, ch.count())
}

func TestMulti_ReportsFirstChannelError(t *testing.T) {
	t.Parallel()

	failing := &recordingAlerter{fail: true}
	working := &recordingAlerter{}
	m := NewMulti(time.Minute, nil, failing, working)

	err := m.Send(context.Background(), Alert{Type: TypePipelineFailure})
	require.Error(t, err)
	// The failing channel must not stop delivery to the others.
	assert.Equal(t, 1, working.count())
}

func TestWebhookAlerter_PostsJSON(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewWebhookAlerter(server.URL).Send(context.Background(), Alert{
		Type:    TypeStoreIO,
		Chain:   "btc",
		Network: "mainnet",
		Title:   "store write failed",
		Fields:  map[string]string{"op": "set_pointer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "STORE_IO_FAILURE", got["type"])
	assert.Equal(t, "btc", got["chain"])
}

func TestWebhookAlerter_NonSuccessStatusIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookAlerter(server.URL).Send(context.Background(), Alert{Type: TypeStoreIO})
	require.Error(t, err)
}

func TestSlackAlerter_PostsText(t *testing.T) {
	t.Parallel()

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlackAlerter(server.URL).Send(context.Background(), Alert{
		Type:    TypeCanonStall,
		Chain:   "eth",
		Network: "mainnet",
		Title:   "canon has not advanced",
	})
	require.NoError(t, err)
	assert.Contains(t, got["text"], "CANON_STALL")
	assert.Contains(t, got["text"], "eth/mainnet")
}

func TestNoopAlerter(t *testing.T) {
	t.Parallel()
	assert.NoError(t, (&NoopAlerter{}).Send(context.Background(), Alert{}))
}
