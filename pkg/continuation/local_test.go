package continuation

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestLocalIsFIFO(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	sink := NewLocal(clock)

	_, err := sink.Next(ctx)
	require.ErrorIs(t, err, ErrNoCheckpoint)

	first := testCheckpoint()
	require.NoError(t, sink.Continue(ctx, first))
	require.NotEmpty(t, first.ID)

	second := testCheckpoint()
	second.Stage = StageGenomicFiles
	require.NoError(t, sink.Continue(ctx, second))
	require.Equal(t, 2, sink.Len())

	// later mutations by the producer are not observed
	first.Records = nil

	got, err := sink.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Len(t, got.Records, 1)

	got, err = sink.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StageGenomicFiles, got.Stage)

	_, err = sink.Next(ctx)
	require.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestLocalCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewLocal(nil)
	require.ErrorIs(t, sink.Continue(ctx, testCheckpoint()), context.Canceled)
	_, err := sink.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
