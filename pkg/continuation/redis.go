package continuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/openfga/consentsync/pkg/id"
)

// Redis pushes checkpoints onto a redis list and pops them in hand-off order.
type Redis struct {
	client redis.UniversalClient
	key    string
	clock  clockwork.Clock
}

var _ SinkSource = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, key string, clock clockwork.Clock) *Redis {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Redis{client: client, key: key, clock: clock}
}

func (r *Redis) Continue(ctx context.Context, checkpoint *Checkpoint) error {
	name, err := id.NewStringFromTime(r.clock.Now())
	if err != nil {
		return err
	}
	checkpoint.ID = name

	data, err := checkpoint.Marshal()
	if err != nil {
		return err
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("push checkpoint to %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Next(ctx context.Context) (*Checkpoint, error) {
	data, err := r.client.LPop(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("pop checkpoint from %s: %w", r.key, err)
	}
	return Unmarshal(data)
}

// Len returns the number of pending checkpoints.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
