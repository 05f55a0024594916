package continuation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/openfga/consentsync/pkg/id"
)

const checkpointExt = ".json"

// File writes each checkpoint to its own JSON file in a directory. File names are ULIDs,
// so lexical order is hand-off order.
type File struct {
	mu    sync.Mutex
	dir   string
	clock clockwork.Clock
}

var _ SinkSource = (*File)(nil)

func NewFile(dir string, clock clockwork.Clock) (*File, error) {
	if dir == "" {
		return nil, errors.New("checkpoint directory must be set")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &File{dir: dir, clock: clock}, nil
}

func (f *File) Continue(ctx context.Context, checkpoint *Checkpoint) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	name, err := id.NewStringFromTime(f.clock.Now())
	if err != nil {
		return err
	}
	checkpoint.ID = name

	data, err := checkpoint.Marshal()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// write then rename so a reader never sees a partial checkpoint
	tmp := filepath.Join(f.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, f.path(name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write checkpoint: %w", err)
	}

	return nil
}

// Next reads and removes the oldest checkpoint in the directory.
func (f *File) Next(ctx context.Context) (*Checkpoint, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	names, err := f.pending()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoCheckpoint
	}

	path := f.path(names[0])
	checkpoint, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("remove checkpoint: %w", err)
	}

	return checkpoint, nil
}

func (f *File) pending() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, checkpointExt))
	}
	slices.Sort(names)
	return names, nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, name+checkpointExt)
}

// Load reads a checkpoint file.
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return Unmarshal(data)
}
