// Package memory contains an in-memory dataservice.RecordStore. It backs pipeline tests
// and local dry runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/dataservice"
)

var tracer = otel.Tracer("consentsync/pkg/dataservice/memory")

// Operation names used by FailFunc and the write counters.
const (
	OpFindStudies      = "FindStudies"
	OpListStudies      = "ListStudies"
	OpFindBiospecimens = "FindBiospecimens"
	OpPatchBiospecimen = "PatchBiospecimen"
	OpListGenomicFiles = "ListGenomicFiles"
	OpPatchGenomicFile = "PatchGenomicFile"
)

// FailFunc is consulted before every operation. A non-nil return is handed to the caller
// instead of running the operation. key is the id or query the operation was called with.
type FailFunc func(op, key string) error

type biospecimenEntry struct {
	studyID string
	record  dataservice.Biospecimen
}

// StoreOption configures a Store.
type StoreOption func(s *Store)

// WithFailFunc installs a fault injector.
func WithFailFunc(fn FailFunc) StoreOption {
	return func(s *Store) {
		s.fail = fn
	}
}

// Store is an in-memory record store. All methods are safe for concurrent use and every
// record crossing the API boundary is copied.
type Store struct {
	mu sync.RWMutex

	studies []dataservice.Study // GUARDED_BY(mu).

	// map: biospecimen id => entry
	biospecimens map[string]*biospecimenEntry // GUARDED_BY(mu).

	// map: genomic file id => file
	files map[string]*dataservice.GenomicFile // GUARDED_BY(mu).

	// map: biospecimen id => genomic file ids
	links map[string][]string // GUARDED_BY(mu).

	// map: operation => number of calls
	calls map[string]int // GUARDED_BY(mu).

	// map: record id => patches applied, in order
	biospecimenPatches map[string][]dataservice.BiospecimenPatch // GUARDED_BY(mu).
	genomicFilePatches map[string][]dataservice.GenomicFilePatch // GUARDED_BY(mu).

	fail FailFunc
}

var _ dataservice.RecordStore = (*Store)(nil)

func New(opts ...StoreOption) *Store {
	s := &Store{
		biospecimens:       make(map[string]*biospecimenEntry),
		files:              make(map[string]*dataservice.GenomicFile),
		links:              make(map[string][]string),
		calls:              make(map[string]int),
		biospecimenPatches: make(map[string][]dataservice.BiospecimenPatch),
		genomicFilePatches: make(map[string][]dataservice.GenomicFilePatch),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddStudy seeds a study.
func (s *Store) AddStudy(study dataservice.Study) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies = append(s.studies, study)
}

// AddBiospecimen seeds a biospecimen belonging to studyID.
func (s *Store) AddBiospecimen(studyID string, bs dataservice.Biospecimen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.biospecimens[bs.ID] = &biospecimenEntry{studyID: studyID, record: cloneBiospecimen(bs)}
}

// AddGenomicFile seeds a genomic file derived from every biospecimen in biospecimenIDs.
func (s *Store) AddGenomicFile(gf dataservice.GenomicFile, biospecimenIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := gf.Clone()
	s.files[gf.ID] = &clone
	for _, id := range biospecimenIDs {
		if !slices.Contains(s.links[id], gf.ID) {
			s.links[id] = append(s.links[id], gf.ID)
		}
	}
}

// Biospecimen returns the current state of a biospecimen.
func (s *Store) Biospecimen(id string) (dataservice.Biospecimen, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.biospecimens[id]
	if !ok {
		return dataservice.Biospecimen{}, false
	}
	return cloneBiospecimen(entry.record), true
}

// GenomicFile returns the current state of a genomic file.
func (s *Store) GenomicFile(id string) (dataservice.GenomicFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gf, ok := s.files[id]
	if !ok {
		return dataservice.GenomicFile{}, false
	}
	return gf.Clone(), true
}

// Calls returns how many times op was invoked, failed invocations included.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// BiospecimenPatches returns the patches applied to a biospecimen.
func (s *Store) BiospecimenPatches(id string) []dataservice.BiospecimenPatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.biospecimenPatches[id])
}

// GenomicFilePatches returns the patches applied to a genomic file.
func (s *Store) GenomicFilePatches(id string) []dataservice.GenomicFilePatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.genomicFilePatches[id])
}

func (s *Store) FindStudies(ctx context.Context, externalID string) ([]dataservice.Study, error) {
	_, span := tracer.Start(ctx, "memory.FindStudies")
	defer span.End()

	if err := s.enter(ctx, OpFindStudies, externalID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dataservice.Study
	for _, study := range s.studies {
		if study.ExternalID == externalID {
			out = append(out, study)
		}
	}
	return out, nil
}

func (s *Store) ListStudies(ctx context.Context) ([]dataservice.Study, error) {
	_, span := tracer.Start(ctx, "memory.ListStudies")
	defer span.End()

	if err := s.enter(ctx, OpListStudies, ""); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.studies), nil
}

func (s *Store) FindBiospecimens(ctx context.Context, studyID, externalSampleID string) ([]dataservice.Biospecimen, error) {
	_, span := tracer.Start(ctx, "memory.FindBiospecimens")
	defer span.End()

	if err := s.enter(ctx, OpFindBiospecimens, externalSampleID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dataservice.Biospecimen
	for _, entry := range s.biospecimens {
		if entry.studyID == studyID && entry.record.ExternalSampleID == externalSampleID {
			out = append(out, cloneBiospecimen(entry.record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PatchBiospecimen(ctx context.Context, id string, patch dataservice.BiospecimenPatch) error {
	_, span := tracer.Start(ctx, "memory.PatchBiospecimen")
	defer span.End()

	if err := s.enter(ctx, OpPatchBiospecimen, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.biospecimens[id]
	if !ok {
		return errs.NotFound("biospecimen", id)
	}

	patch.ConsentCode = cloneString(patch.ConsentCode)
	entry.record.ConsentCode = cloneString(patch.ConsentCode)
	consentType := patch.ConsentType
	entry.record.ConsentType = &consentType
	s.biospecimenPatches[id] = append(s.biospecimenPatches[id], patch)
	return nil
}

func (s *Store) ListGenomicFiles(ctx context.Context, biospecimenID string) ([]dataservice.GenomicFile, error) {
	_, span := tracer.Start(ctx, "memory.ListGenomicFiles")
	defer span.End()

	if err := s.enter(ctx, OpListGenomicFiles, biospecimenID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.links[biospecimenID]
	out := make([]dataservice.GenomicFile, 0, len(ids))
	for _, id := range ids {
		if gf, ok := s.files[id]; ok {
			out = append(out, gf.Clone())
		}
	}
	return out, nil
}

func (s *Store) PatchGenomicFile(ctx context.Context, id string, patch dataservice.GenomicFilePatch) error {
	_, span := tracer.Start(ctx, "memory.PatchGenomicFile")
	defer span.End()

	if err := s.enter(ctx, OpPatchGenomicFile, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gf, ok := s.files[id]
	if !ok {
		return errs.NotFound("genomic file", id)
	}

	patch.ACL = slices.Clone(patch.ACL)
	gf.ACL = slices.Clone(patch.ACL)
	s.genomicFilePatches[id] = append(s.genomicFilePatches[id], patch)
	return nil
}

// enter counts the call and runs the fault injector.
func (s *Store) enter(ctx context.Context, op, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()

	if s.fail != nil {
		return s.fail(op, key)
	}
	return nil
}

func cloneBiospecimen(bs dataservice.Biospecimen) dataservice.Biospecimen {
	bs.ConsentCode = cloneString(bs.ConsentCode)
	bs.ConsentType = cloneString(bs.ConsentType)
	return bs
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
