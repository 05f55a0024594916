// Package aggregate groups genomic files across the biospecimens they are derived from.
package aggregate

import (
	"slices"
	"sync"

	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/types"
)

// Aggregator is the set of genomic file accumulators of one run. It is safe for
// concurrent use. Accumulators are handed out in the order their file was first seen.
type Aggregator struct {
	mu sync.Mutex

	// map: genomic file id => accumulator
	accumulators map[string]*types.Accumulator // GUARDED_BY(mu).

	// order holds every key of accumulators exactly once.
	order []string // GUARDED_BY(mu).
}

func New() *Aggregator {
	return &Aggregator{
		accumulators: make(map[string]*types.Accumulator),
	}
}

// Accumulate records that every file in files is derived from biospecimenID, which
// carries consentCode. A file seen for the first time is seeded with its current ACL
// and visibility. Accumulating the same biospecimen twice is a no-op.
func (a *Aggregator) Accumulate(biospecimenID string, files []dataservice.GenomicFile, consentCode *string, study types.StudyRef) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, gf := range files {
		acc, ok := a.accumulators[gf.ID]
		if !ok {
			acc = &types.Accumulator{
				FileID:          gf.ID,
				CurrentACL:      slices.Clone(gf.ACL),
				Visible:         gf.Visible,
				StudyID:         study.ID,
				ExternalStudyID: study.ExternalID,
				Contributions:   make(map[string]*string),
			}
			a.insert(acc)
		}

		acc.Contributions[biospecimenID] = types.CloneString(consentCode)
	}
}

// Len returns the number of accumulators not yet handed out.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Pop hands out the next accumulator, removing it from the aggregator. It returns false
// when the aggregator is empty.
func (a *Aggregator) Pop() (*types.Accumulator, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.order) == 0 {
		return nil, false
	}

	id := a.order[0]
	a.order[0] = ""
	a.order = a.order[1:]

	acc := a.accumulators[id]
	delete(a.accumulators, id)

	return acc, true
}

// Requeue puts a popped accumulator back at the end of the order.
func (a *Aggregator) Requeue(acc *types.Accumulator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge(acc)
}

// Snapshot returns a deep copy of every accumulator in hand-out order.
func (a *Aggregator) Snapshot() []*types.Accumulator {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*types.Accumulator, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.accumulators[id].Clone())
	}
	return out
}

// Restore merges accumulators taken from a Snapshot into the aggregator.
func (a *Aggregator) Restore(accs []*types.Accumulator) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, acc := range accs {
		a.merge(acc.Clone())
	}
}

func (a *Aggregator) merge(acc *types.Accumulator) {
	existing, ok := a.accumulators[acc.FileID]
	if !ok {
		if acc.Contributions == nil {
			acc.Contributions = make(map[string]*string)
		}
		a.insert(acc)
		return
	}

	for id, code := range acc.Contributions {
		existing.Contributions[id] = code
	}
	existing.Attempts = max(existing.Attempts, acc.Attempts)
}

func (a *Aggregator) insert(acc *types.Accumulator) {
	a.accumulators[acc.FileID] = acc
	a.order = append(a.order, acc.FileID)
}
