package continuation

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/openfga/consentsync/pkg/id"
)

// Local keeps checkpoints in process. The CLI drains it by starting a fresh invocation
// for each checkpoint, with a fresh time budget.
type Local struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	checkpoints []*Checkpoint // GUARDED_BY(mu).
}

var _ SinkSource = (*Local)(nil)

func NewLocal(clock clockwork.Clock) *Local {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Local{clock: clock}
}

func (l *Local) Continue(ctx context.Context, checkpoint *Checkpoint) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	name, err := id.NewStringFromTime(l.clock.Now())
	if err != nil {
		return err
	}

	// round trip so that the stored copy shares no memory with the caller
	data, err := checkpoint.Marshal()
	if err != nil {
		return err
	}
	stored, err := Unmarshal(data)
	if err != nil {
		return err
	}
	stored.ID = name

	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkpoints = append(l.checkpoints, stored)
	checkpoint.ID = name

	return nil
}

func (l *Local) Next(ctx context.Context) (*Checkpoint, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.checkpoints) == 0 {
		return nil, ErrNoCheckpoint
	}

	next := l.checkpoints[0]
	l.checkpoints[0] = nil
	l.checkpoints = l.checkpoints[1:]
	return next, nil
}

// Len returns the number of pending checkpoints.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.checkpoints)
}
