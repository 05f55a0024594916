package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewPoolBoundsGoroutines(t *testing.T) {
	var running, peak atomic.Int32

	p := NewPool(context.Background(), 2)
	for range 10 {
		p.Go(func(ctx context.Context) error {
			n := running.Add(1)
			for {
				current := peak.Load()
				if n <= current || peak.CompareAndSwap(current, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	require.NoError(t, p.Wait())
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestNewPoolFirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")

	p := NewPool(context.Background(), 1)
	p.Go(func(ctx context.Context) error {
		return boom
	})
	p.Go(func(ctx context.Context) error {
		return ctx.Err()
	})

	err := p.Wait()
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, context.Canceled)
}
