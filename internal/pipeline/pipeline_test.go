package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

func namedStage(name string, trace *[]string, err error) Stage {
	return Stage{
		Name: name,
		Run: func(_ context.Context, _ *State) error {
			*trace = append(*trace, name)
			return err
		},
	}
}

func TestRunner_RunsStagesInOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	runner := NewRunner(model.ChainBTC, model.NetworkMainnet, []Stage{
		namedStage("first", &trace, nil),
		namedStage("second", &trace, nil),
		namedStage("third", &trace, nil),
	}, nil, nil)

	require.NoError(t, runner.Run(context.Background(), &State{}))
	assert.Equal(t, []string{"first", "second", "third"}, trace)
}

func TestRunner_ShortCircuitsOnFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("store unavailable")
	var trace []string
	runner := NewRunner(model.ChainBTC, model.NetworkMainnet, []Stage{
		namedStage("first", &trace, nil),
		namedStage("second", &trace, boom),
		namedStage("third", &trace, nil),
	}, nil, nil)

	err := runner.Run(context.Background(), &State{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage second")
	assert.Equal(t, []string{"first", "second"}, trace)
}

func TestRunner_StagesShareOneState(t *testing.T) {
	t.Parallel()

	runner := NewRunner(model.ChainBTC, model.NetworkMainnet, []Stage{
		{
			Name: "write",
			Run: func(_ context.Context, st *State) error {
				st.Utxos = []model.UtxoRecord{{Value: 314159}}
				return nil
			},
		},
		{
			Name: "read",
			Run: func(_ context.Context, st *State) error {
				if len(st.Utxos) != 1 {
					return errors.New("state not threaded")
				}
				return nil
			},
		},
	}, nil, nil)

	st := &State{Chain: model.ChainBTC, Network: model.NetworkMainnet}
	require.NoError(t, runner.Run(context.Background(), st))
	assert.Len(t, st.Utxos, 1)
}
