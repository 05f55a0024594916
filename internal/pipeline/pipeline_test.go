package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/internal/mocks"
	"github.com/openfga/consentsync/internal/resolver"
	"github.com/openfga/consentsync/pkg/continuation"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/dataservice/memory"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/types"
)

var study = types.StudyRef{ExternalID: "S1", ID: "SD_1", Version: "v1.p1"}

func ptr(s string) *string { return &s }

func record(sampleID, code, shortName string) types.SampleRecord {
	return types.SampleRecord{Study: study, SampleID: sampleID, ConsentCode: code, ConsentShortName: shortName}
}

func newController(t *testing.T, store dataservice.RecordStore, opts ...ControllerOption) *Controller {
	t.Helper()

	r, err := resolver.New(store)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	c, err := NewController(r, store, opts...)
	require.NoError(t, err)
	return c
}

func TestNewControllerValidatesOptions(t *testing.T) {
	store := memory.New()

	_, err := NewController(nil, store, WithMaxItemAttempts(0))
	require.ErrorContains(t, err, "max item attempts")

	_, err = NewController(nil, store, WithTimeBudget(time.Second, time.Second))
	require.ErrorContains(t, err, "budget reserve")

	_, err = NewController(nil, store, WithTimeBudget(0, time.Hour))
	require.NoError(t, err)
}

func TestWorkedExample(t *testing.T) {
	store := memory.New()
	store.AddStudy(dataservice.Study{ID: "SD_1", ExternalID: "S1", Version: "v1.p1"})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", ACL: []string{}, Visible: true}, "BS_1")

	c := newController(t, store)
	summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
	require.NoError(t, err)

	require.Equal(t, Summary{Processed: 3, BiospecimenWrites: 1, AclWrites: 1}, summary)

	bs, _ := store.Biospecimen("BS_1")
	require.Equal(t, "S1.c1", *bs.ConsentCode)
	require.Equal(t, "GRU", *bs.ConsentType)

	gf, _ := store.GenomicFile("GF_1")
	require.Equal(t, []string{"S1", "S1.c1", "SD_1"}, gf.ACL)
}

func TestInvisibleBiospecimenClearsConsentAndRestrictsACL(t *testing.T) {
	store := memory.New()
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", ConsentCode: ptr("S1.c1"), ConsentType: ptr("GRU"), Visible: false})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", ACL: []string{"S1", "S1.c1", "SD_1"}, Visible: true}, "BS_1")

	c := newController(t, store)
	summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
	require.NoError(t, err)
	require.Equal(t, 1, summary.BiospecimenWrites)
	require.Equal(t, 1, summary.AclWrites)

	bs, _ := store.Biospecimen("BS_1")
	require.Nil(t, bs.ConsentCode)

	gf, _ := store.GenomicFile("GF_1")
	require.Equal(t, []string{"S1", "SD_1"}, gf.ACL)
}

func TestConflictingConsentCodesRestrictACLInAnyOrder(t *testing.T) {
	orders := map[string][]types.SampleRecord{
		"a1_first": {record("A1", "1", "GRU"), record("A2", "2", "HMB")},
		"a2_first": {record("A2", "2", "HMB"), record("A1", "1", "GRU")},
	}

	for name, records := range orders {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
			store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_2", ExternalSampleID: "A2", Visible: true})
			store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_shared", ACL: []string{}, Visible: true}, "BS_1", "BS_2")
			store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", ACL: []string{}, Visible: true}, "BS_1")

			c := newController(t, store)
			summary, err := c.Run(context.Background(), "run", study, records)
			require.NoError(t, err)
			require.Equal(t, 2, summary.AclWrites)

			shared, _ := store.GenomicFile("GF_shared")
			require.Equal(t, []string{"S1", "SD_1"}, shared.ACL)
			require.Len(t, store.GenomicFilePatches("GF_shared"), 1)

			single, _ := store.GenomicFile("GF_1")
			require.Equal(t, []string{"S1", "S1.c1", "SD_1"}, single.ACL)
		})
	}
}

func TestSecondRunIssuesNoWrites(t *testing.T) {
	store := memory.New()
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_2", ExternalSampleID: "A2", Visible: true})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_3", ExternalSampleID: "A3", Visible: false})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", Visible: true}, "BS_1", "BS_2")
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_2", Visible: true}, "BS_3")

	records := []types.SampleRecord{record("A1", "1", "GRU"), record("A2", "2", "HMB"), record("A3", "1", "GRU")}
	c := newController(t, store)

	first, err := c.Run(context.Background(), "run-1", study, records)
	require.NoError(t, err)
	require.Equal(t, 3, first.BiospecimenWrites)
	require.Equal(t, 2, first.AclWrites)

	second, err := c.Run(context.Background(), "run-2", study, records)
	require.NoError(t, err)
	require.Equal(t, Summary{Processed: 8}, second)
	require.Equal(t, 3, store.Calls(memory.OpPatchBiospecimen))
	require.Equal(t, 2, store.Calls(memory.OpPatchGenomicFile))
}

func TestACLComparedAsSet(t *testing.T) {
	store := memory.New()
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", ConsentCode: ptr("S1.c1"), ConsentType: ptr("GRU"), Visible: true})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", ACL: []string{"SD_1", "S1.c1", "S1", "S1"}, Visible: true}, "BS_1")

	c := newController(t, store)
	summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
	require.NoError(t, err)
	require.Zero(t, summary.AclWrites)
	require.Zero(t, summary.BiospecimenWrites)
	require.Zero(t, store.Calls(memory.OpPatchGenomicFile))
}

func TestDataIntegrityErrorsAreSkipped(t *testing.T) {
	store := memory.New()
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_2", ExternalSampleID: "dup", Visible: true})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_3", ExternalSampleID: "dup", Visible: true})

	log, logs := logger.NewObserverLogger("warn")
	c := newController(t, store, WithLogger(log))

	records := []types.SampleRecord{record("missing", "1", "GRU"), record("dup", "1", "GRU"), record("A1", "1", "GRU")}
	summary, err := c.Run(context.Background(), "run", study, records)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 1, summary.BiospecimenWrites)

	skipped := logs.FilterMessage("skipped item").All()
	require.Len(t, skipped, 2)
	require.Equal(t, "missing", skipped[0].ContextMap()["sample_id"])
	require.Equal(t, "SD_1", skipped[0].ContextMap()["study_id"])
	require.Equal(t, "run", skipped[0].ContextMap()["run_id"])
	require.Contains(t, skipped[1].ContextMap()["error"], "ambiguous match")
}

func TestTransientErrorIsRequeued(t *testing.T) {
	failures := 1
	store := memory.New(memory.WithFailFunc(func(op, key string) error {
		if op == memory.OpPatchGenomicFile && failures > 0 {
			failures--
			return errs.With(errors.New("502 from dataservice"), errs.ErrUpstreamTimeout)
		}
		return nil
	}))
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", Visible: true}, "BS_1")

	c := newController(t, store)
	summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Requeued)
	require.Equal(t, 1, summary.AclWrites)
	require.Zero(t, summary.DeadLettered)

	gf, _ := store.GenomicFile("GF_1")
	require.Equal(t, []string{"S1", "S1.c1", "SD_1"}, gf.ACL)
}

func TestPermanentlyFailingItemIsDeadLettered(t *testing.T) {
	tests := map[string]error{
		"upstream_timeout": errs.With(errors.New("503"), errs.ErrUpstreamTimeout),
		"unknown_error":    errors.New("boom"),
	}

	for name, failure := range tests {
		t.Run(name, func(t *testing.T) {
			store := memory.New(memory.WithFailFunc(func(op, key string) error {
				if op == memory.OpPatchGenomicFile && key == "GF_bad" {
					return failure
				}
				return nil
			}))
			store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
			store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_bad", Visible: true}, "BS_1")
			store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_ok", Visible: true}, "BS_1")

			log, logs := logger.NewObserverLogger("error")
			c := newController(t, store, WithLogger(log), WithMaxItemAttempts(4))

			summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
			require.NoError(t, err)
			require.Equal(t, 3, summary.Requeued)
			require.Equal(t, 1, summary.DeadLettered)
			require.Equal(t, 1, summary.AclWrites)
			require.Equal(t, 5, store.Calls(memory.OpPatchGenomicFile))

			deadLettered := logs.FilterMessage("dead-lettered item").All()
			require.Len(t, deadLettered, 1)
			require.Equal(t, "GF_bad", deadLettered[0].ContextMap()["genomic_file_id"])
			require.Equal(t, int64(4), deadLettered[0].ContextMap()["attempts"])
		})
	}
}

func TestDeadLetteredBiospecimenWithholdsConsentCode(t *testing.T) {
	store := memory.New(memory.WithFailFunc(func(op, key string) error {
		if op == memory.OpListGenomicFiles && key == "BS_2" {
			return errs.With(errors.New("504"), errs.ErrUpstreamTimeout)
		}
		return nil
	}))
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_1", ExternalSampleID: "A1", Visible: true})
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_2", ExternalSampleID: "A2", Visible: true})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", ACL: []string{}, Visible: true}, "BS_1", "BS_2")

	log, logs := logger.NewObserverLogger("warn")
	c := newController(t, store, WithLogger(log))

	summary, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU"), record("A2", "2", "HMB")})
	require.NoError(t, err)
	require.Equal(t, Summary{Processed: 4, Requeued: 2, DeadLettered: 1, BiospecimenWrites: 2, AclWrites: 1}, summary)

	bs, _ := store.Biospecimen("BS_2")
	require.Equal(t, "S1.c2", *bs.ConsentCode)

	// BS_2 never contributed, so the single code seen for GF_1 cannot be trusted
	gf, _ := store.GenomicFile("GF_1")
	require.Equal(t, []string{"S1", "SD_1"}, gf.ACL)

	withheld := logs.FilterMessage("withholding consent codes from genomic file acls after dead-lettered samples").All()
	require.Len(t, withheld, 1)
	require.Equal(t, []interface{}{"A2"}, withheld[0].ContextMap()["dead_lettered_samples"])
}

func TestDeadLetteredSamplesTravelInCheckpoint(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := memory.New(memory.WithFailFunc(func(op, key string) error {
		if op == memory.OpFindBiospecimens && key == "A1" {
			return errors.New("boom")
		}
		return nil
	}))
	records := seedChain(store, 2)

	slow := mocks.NewMockSlowRecordStore(store, clock, time.Second)
	sink := continuation.NewLocal(clock)
	c := newController(t, slow,
		WithClock(clock),
		WithMaxItemAttempts(1),
		WithTimeBudget(5*time.Second, 3*time.Second),
		WithSink(sink))

	summary, err := c.Run(ctx, "run", study, records)
	require.NoError(t, err)
	require.Equal(t, 1, summary.DeadLettered)
	require.Equal(t, 1, summary.Continued)

	checkpoint, err := sink.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"A1"}, checkpoint.DeadLetteredSamples)

	summary, err = c.Resume(ctx, checkpoint)
	require.NoError(t, err)
	require.Equal(t, 1, summary.AclWrites)

	gf, _ := store.GenomicFile("GF_2")
	require.Equal(t, []string{"S1", "SD_1"}, gf.ACL)
}

func TestFatalErrorAbortsRun(t *testing.T) {
	store := memory.New(memory.WithFailFunc(func(op, key string) error {
		if op == memory.OpFindBiospecimens {
			return errs.ErrRegistryUnavailable
		}
		return nil
	}))

	c := newController(t, store)
	_, err := c.Run(context.Background(), "run", study, []types.SampleRecord{record("A1", "1", "GRU"), record("A2", "1", "GRU")})
	require.ErrorIs(t, err, errs.ErrRegistryUnavailable)
	require.Equal(t, 1, store.Calls(memory.OpFindBiospecimens))
}

func TestCanceledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newController(t, memory.New())
	_, err := c.Run(ctx, "run", study, []types.SampleRecord{record("A1", "1", "GRU")})
	require.ErrorIs(t, err, context.Canceled)
}

// seedChain links sample An to biospecimen BS_n and file GF_n for n in [1, count].
func seedChain(store *memory.Store, count int) []types.SampleRecord {
	var records []types.SampleRecord
	for i := 1; i <= count; i++ {
		sample := fmt.Sprintf("A%d", i)
		bsID := fmt.Sprintf("BS_%d", i)
		store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: bsID, ExternalSampleID: sample, Visible: true})
		store.AddGenomicFile(dataservice.GenomicFile{ID: fmt.Sprintf("GF_%d", i), Visible: true}, bsID)
		records = append(records, record(sample, "1", "GRU"))
	}
	return records
}

func TestContinuationPartitionsRemainingWork(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := memory.New()
	records := seedChain(store, 5)

	// every record store call takes one second of a ten second budget
	slow := mocks.NewMockSlowRecordStore(store, clock, time.Second)
	sink := continuation.NewLocal(clock)
	c := newController(t, slow,
		WithClock(clock),
		WithTimeBudget(10*time.Second, 3*time.Second),
		WithSink(sink))

	summary, err := c.Run(ctx, "run", study, records)
	require.NoError(t, err)
	require.Equal(t, Summary{Processed: 4, BiospecimenWrites: 4, Continued: 1}, summary)

	first, err := sink.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, continuation.StageRecords, first.Stage)
	require.Equal(t, "run", first.RunID)
	require.Equal(t, 2, first.Invocation)
	require.Len(t, first.Records, 1)
	require.Equal(t, "A5", first.Records[0].SampleID)
	require.Len(t, first.Biospecimens, 4)
	require.Equal(t, "BS_1", first.Biospecimens[0].BiospecimenID)
	require.Equal(t, "S1.c1", *first.Biospecimens[0].ConsentCode)
	require.Empty(t, first.GenomicFiles)

	summary, err = c.Resume(ctx, first)
	require.NoError(t, err)
	require.Equal(t, Summary{Processed: 7, BiospecimenWrites: 1, AclWrites: 1, Continued: 1}, summary)

	second, err := sink.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, continuation.StageGenomicFiles, second.Stage)
	require.Equal(t, 3, second.Invocation)
	require.Empty(t, second.Records)
	require.Empty(t, second.Biospecimens)
	require.Len(t, second.GenomicFiles, 4)
	require.Equal(t, "GF_2", second.GenomicFiles[0].FileID)
	require.Equal(t, map[string]*string{"BS_2": ptr("S1.c1")}, second.GenomicFiles[0].Contributions)

	summary, err = c.Resume(ctx, second)
	require.NoError(t, err)
	require.Equal(t, Summary{Processed: 4, AclWrites: 4}, summary)

	_, err = sink.Next(ctx)
	require.ErrorIs(t, err, continuation.ErrNoCheckpoint)

	// nothing was processed twice
	require.Equal(t, 5, store.Calls(memory.OpFindBiospecimens))
	require.Equal(t, 5, store.Calls(memory.OpPatchBiospecimen))
	require.Equal(t, 5, store.Calls(memory.OpListGenomicFiles))
	require.Equal(t, 5, store.Calls(memory.OpPatchGenomicFile))
	for i := 1; i <= 5; i++ {
		gf, _ := store.GenomicFile(fmt.Sprintf("GF_%d", i))
		require.Equal(t, []string{"S1", "S1.c1", "SD_1"}, gf.ACL)
	}
}

func TestContinuationCarriesAttempts(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := memory.New(memory.WithFailFunc(func(op, key string) error {
		if op == memory.OpFindBiospecimens && key == "A1" {
			return errs.With(errors.New("timeout"), errs.ErrUpstreamTimeout)
		}
		return nil
	}))
	records := seedChain(store, 2)

	slow := mocks.NewMockSlowRecordStore(store, clock, time.Second)
	sink := continuation.NewLocal(clock)
	c := newController(t, slow,
		WithClock(clock),
		WithTimeBudget(5*time.Second, 3*time.Second),
		WithSink(sink))

	// A1 fails after one second, A2 resolves and is patched, then the budget is spent
	summary, err := c.Run(ctx, "run", study, records)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Requeued)
	require.Equal(t, 1, summary.Continued)

	checkpoint, err := sink.Next(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoint.Records, 1)
	require.Equal(t, "A1", checkpoint.Records[0].SampleID)
	require.Equal(t, 1, checkpoint.Records[0].Attempts)
	require.Len(t, checkpoint.Biospecimens, 1)
}

func TestResumeMergesRestoredContributions(t *testing.T) {
	store := memory.New()
	store.AddBiospecimen("SD_1", dataservice.Biospecimen{ID: "BS_2", ExternalSampleID: "A2", Visible: true})
	store.AddGenomicFile(dataservice.GenomicFile{ID: "GF_1", Visible: true}, "BS_1", "BS_2")

	checkpoint := &continuation.Checkpoint{
		RunID: "run",
		Study: study,
		Stage: continuation.StageBiospecimens,
		Biospecimens: []types.BiospecimenItem{
			{Study: study, SampleID: "A2", BiospecimenID: "BS_2", ConsentCode: ptr("S1.c2")},
		},
		GenomicFiles: []*types.Accumulator{{
			FileID:          "GF_1",
			Visible:         true,
			StudyID:         "SD_1",
			ExternalStudyID: "S1",
			Contributions:   map[string]*string{"BS_1": ptr("S1.c1")},
		}},
		Invocation: 2,
	}

	c := newController(t, store)
	summary, err := c.Resume(context.Background(), checkpoint)
	require.NoError(t, err)
	require.Equal(t, 1, summary.AclWrites)

	// BS_1 contributed before the hand-off, BS_2 after it: the codes conflict
	gf, _ := store.GenomicFile("GF_1")
	require.Equal(t, []string{"S1", "SD_1"}, gf.ACL)
}

func TestSinkErrorFailsRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := memory.New()
	records := seedChain(store, 2)

	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Continue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, checkpoint *continuation.Checkpoint) error {
			require.Equal(t, continuation.StageRecords, checkpoint.Stage)
			require.Len(t, checkpoint.Records, 1)
			require.Len(t, checkpoint.Biospecimens, 1)
			return errors.New("sink unavailable")
		})

	c := newController(t, mocks.NewMockSlowRecordStore(store, clock, time.Minute),
		WithClock(clock),
		WithTimeBudget(time.Minute, time.Second),
		WithSink(sink))

	_, err := c.Run(context.Background(), "run", study, records)
	require.ErrorContains(t, err, "sink unavailable")
}
