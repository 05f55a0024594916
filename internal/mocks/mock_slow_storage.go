package mocks

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openfga/consentsync/pkg/dataservice"
)

// slowRecordStore is a proxy to the actual record store except every call advances a fake
// clock by callDelay. This allows simulating a run that exhausts its time budget after a
// known number of record store calls.
type slowRecordStore struct {
	callDelay time.Duration
	clock     *clockwork.FakeClock
	dataservice.RecordStore
}

// NewMockSlowRecordStore returns a wrapper of a record store that moves clock forward by
// callDelay on each call.
func NewMockSlowRecordStore(store dataservice.RecordStore, clock *clockwork.FakeClock, callDelay time.Duration) dataservice.RecordStore {
	return &slowRecordStore{
		callDelay:   callDelay,
		clock:       clock,
		RecordStore: store,
	}
}

func (m *slowRecordStore) FindStudies(ctx context.Context, externalID string) ([]dataservice.Study, error) {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.FindStudies(ctx, externalID)
}

func (m *slowRecordStore) ListStudies(ctx context.Context) ([]dataservice.Study, error) {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.ListStudies(ctx)
}

func (m *slowRecordStore) FindBiospecimens(ctx context.Context, studyID, externalSampleID string) ([]dataservice.Biospecimen, error) {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.FindBiospecimens(ctx, studyID, externalSampleID)
}

func (m *slowRecordStore) PatchBiospecimen(ctx context.Context, id string, patch dataservice.BiospecimenPatch) error {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.PatchBiospecimen(ctx, id, patch)
}

func (m *slowRecordStore) ListGenomicFiles(ctx context.Context, biospecimenID string) ([]dataservice.GenomicFile, error) {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.ListGenomicFiles(ctx, biospecimenID)
}

func (m *slowRecordStore) PatchGenomicFile(ctx context.Context, id string, patch dataservice.GenomicFilePatch) error {
	m.clock.Advance(m.callDelay)
	return m.RecordStore.PatchGenomicFile(ctx, id, patch)
}
