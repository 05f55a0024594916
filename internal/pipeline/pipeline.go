// Package pipeline drives samples through the Records, Biospecimens and GenomicFiles
// stages of a consent sync.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/internal/acl"
	"github.com/openfga/consentsync/internal/aggregate"
	"github.com/openfga/consentsync/internal/consent"
	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/continuation"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/telemetry"
	"github.com/openfga/consentsync/pkg/types"
)

var tracer = otel.Tracer("consentsync/internal/pipeline")

const defaultMaxItemAttempts = 3

// BiospecimenResolver resolves a registry sample to its biospecimen.
type BiospecimenResolver interface {
	ResolveBiospecimen(ctx context.Context, externalSampleID, studyID string) (types.BiospecimenState, error)
}

// ControllerOption configures a Controller.
type ControllerOption func(c *Controller)

// WithLogger sets the logger of the controller. It is also handed to the propagator and
// the reconciler.
func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithClock sets the clock the time budget is measured with.
func WithClock(clock clockwork.Clock) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithTimeBudget sets how long one invocation may run and the remaining time under which
// it stops and hands the rest of the work to the continuation sink. A zero budget never
// stops.
func WithTimeBudget(budget, reserve time.Duration) ControllerOption {
	return func(c *Controller) {
		c.budget = budget
		c.reserve = reserve
	}
}

// WithMaxItemAttempts sets how many times an item may fail with a retryable error
// before it is dead-lettered.
func WithMaxItemAttempts(n int) ControllerOption {
	return func(c *Controller) {
		c.maxItemAttempts = n
	}
}

// WithSink sets where checkpoints are handed when the time budget runs out.
func WithSink(sink continuation.Sink) ControllerOption {
	return func(c *Controller) {
		c.sink = sink
	}
}

// Controller owns the three work queues of an invocation. It is the only component
// that adds or removes queue items, and the only one aware of the time budget.
type Controller struct {
	resolver   BiospecimenResolver
	files      dataservice.GenomicFileStore
	propagator *consent.Propagator
	reconciler *acl.Reconciler
	sink       continuation.Sink

	clock           clockwork.Clock
	budget          time.Duration
	reserve         time.Duration
	maxItemAttempts int
	logger          logger.Logger
}

func NewController(resolver BiospecimenResolver, store dataservice.RecordStore, opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		resolver:        resolver,
		files:           store,
		sink:            continuation.Discard(),
		clock:           clockwork.NewRealClock(),
		maxItemAttempts: defaultMaxItemAttempts,
		logger:          logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxItemAttempts < 1 {
		return nil, fmt.Errorf("max item attempts must be at least 1, got %d", c.maxItemAttempts)
	}
	if c.budget < 0 || (c.budget > 0 && c.reserve >= c.budget) {
		return nil, fmt.Errorf("budget reserve %s must be lower than the time budget %s", c.reserve, c.budget)
	}

	c.propagator = consent.NewPropagator(store, consent.WithLogger(c.logger))
	c.reconciler = acl.NewReconciler(store, acl.WithLogger(c.logger))

	return c, nil
}

// invocation is the queue state of one call to Run or Resume.
type invocation struct {
	runID  string
	study  types.StudyRef
	number int

	stage        continuation.Stage
	records      []types.SampleRecord
	biospecimens []types.BiospecimenItem
	files        *aggregate.Aggregator

	// deadLettered holds the samples dropped at the Records or Biospecimens stage. Their
	// genomic files are unknown, so any accumulator may be missing a contribution.
	deadLettered []string

	deadline time.Time
	summary  Summary
}

// Run processes every record of a study from the Records stage on.
func (c *Controller) Run(ctx context.Context, runID string, study types.StudyRef, records []types.SampleRecord) (Summary, error) {
	inv := &invocation{
		runID:   runID,
		study:   study,
		number:  1,
		stage:   continuation.StageRecords,
		records: records,
		files:   aggregate.New(),
	}
	return c.execute(ctx, inv)
}

// Resume processes the work left in a checkpoint. Items already finalized by earlier
// invocations are not in the checkpoint and are never revisited.
func (c *Controller) Resume(ctx context.Context, checkpoint *continuation.Checkpoint) (Summary, error) {
	inv := &invocation{
		runID:        checkpoint.RunID,
		study:        checkpoint.Study,
		number:       max(checkpoint.Invocation, 1),
		stage:        checkpoint.Stage,
		records:      checkpoint.Records,
		biospecimens: checkpoint.Biospecimens,
		files:        aggregate.New(),
		deadLettered: checkpoint.DeadLetteredSamples,
	}
	inv.files.Restore(checkpoint.GenomicFiles)
	return c.execute(ctx, inv)
}

func (c *Controller) execute(ctx context.Context, inv *invocation) (Summary, error) {
	ctx = logger.ContextWithFields(ctx,
		zap.String("run_id", inv.runID),
		zap.String("study_id", inv.study.ID),
		zap.String("study_external_id", inv.study.ExternalID),
		zap.Int("invocation", inv.number))

	ctx, span := tracer.Start(ctx, "pipeline.Run")
	span.SetAttributes(
		attribute.String("run_id", inv.runID),
		attribute.String("study_id", inv.study.ID),
		attribute.Int("invocation", inv.number),
	)
	defer span.End()

	if c.budget > 0 {
		inv.deadline = c.clock.Now().Add(c.budget)
	}

	c.logger.InfoWithContext(ctx, "pipeline invocation started",
		zap.String("stage", string(inv.stage)),
		zap.Int("records", len(inv.records)),
		zap.Int("biospecimens", len(inv.biospecimens)),
		zap.Int("genomic_files", inv.files.Len()))

	continued, err := c.drain(ctx, inv)
	if err != nil {
		telemetry.TraceError(span, err)
		return inv.summary, err
	}

	if continued {
		span.SetAttributes(attribute.Bool("continued", true))
		return inv.summary, nil
	}

	c.logger.InfoWithContext(ctx, "pipeline invocation finished",
		zap.Int("processed", inv.summary.Processed),
		zap.Int("skipped", inv.summary.Skipped),
		zap.Int("requeued", inv.summary.Requeued),
		zap.Int("dead_lettered", inv.summary.DeadLettered),
		zap.Int("biospecimen_writes", inv.summary.BiospecimenWrites),
		zap.Int("acl_writes", inv.summary.AclWrites))

	return inv.summary, nil
}

// drain runs the stages in order until every queue is empty or the budget runs out, in
// which case it returns true once the checkpoint has been handed off.
func (c *Controller) drain(ctx context.Context, inv *invocation) (bool, error) {
	inv.stage = continuation.StageRecords
	for len(inv.records) > 0 {
		if stop, err := c.checkBudget(ctx, inv); stop || err != nil {
			return stop, err
		}
		record := inv.records[0]
		inv.records = inv.records[1:]
		if err := c.processRecord(ctx, inv, record); err != nil {
			return false, err
		}
	}

	inv.stage = continuation.StageBiospecimens
	for len(inv.biospecimens) > 0 {
		if stop, err := c.checkBudget(ctx, inv); stop || err != nil {
			return stop, err
		}
		item := inv.biospecimens[0]
		inv.biospecimens = inv.biospecimens[1:]
		if err := c.processBiospecimen(ctx, inv, item); err != nil {
			return false, err
		}
	}

	// every biospecimen has contributed, accumulators can be finalized
	inv.stage = continuation.StageGenomicFiles
	if len(inv.deadLettered) > 0 && inv.files.Len() > 0 {
		c.logger.WarnWithContext(ctx, "withholding consent codes from genomic file acls after dead-lettered samples",
			zap.Strings("dead_lettered_samples", inv.deadLettered),
			zap.Int("genomic_files", inv.files.Len()))
	}
	for inv.files.Len() > 0 {
		if stop, err := c.checkBudget(ctx, inv); stop || err != nil {
			return stop, err
		}
		acc, ok := inv.files.Pop()
		if !ok {
			break
		}
		if err := c.processGenomicFile(ctx, inv, acc); err != nil {
			return false, err
		}
	}

	return false, nil
}

// checkBudget hands the remaining work to the sink when less than the reserve is left.
func (c *Controller) checkBudget(ctx context.Context, inv *invocation) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if inv.deadline.IsZero() || inv.deadline.Sub(c.clock.Now()) >= c.reserve {
		return false, nil
	}

	checkpoint := &continuation.Checkpoint{
		RunID:        inv.runID,
		Study:        inv.study,
		Stage:        inv.stage,
		Records:      inv.records,
		Biospecimens: inv.biospecimens,
		GenomicFiles: inv.files.Snapshot(),

		DeadLetteredSamples: inv.deadLettered,
		Invocation:          inv.number + 1,
		CreatedAt:           c.clock.Now(),
	}

	if err := c.sink.Continue(ctx, checkpoint); err != nil {
		return false, fmt.Errorf("hand off checkpoint of run %s: %w", inv.runID, err)
	}

	inv.summary.Continued++
	continuationsCounter.Inc()

	c.logger.InfoWithContext(ctx, "time budget exhausted, continuing in a new invocation",
		zap.String("checkpoint_id", checkpoint.ID),
		zap.String("stage", string(checkpoint.Stage)),
		zap.Int("records", len(checkpoint.Records)),
		zap.Int("biospecimens", len(checkpoint.Biospecimens)),
		zap.Int("genomic_files", len(checkpoint.GenomicFiles)))

	return true, nil
}

func (c *Controller) processRecord(ctx context.Context, inv *invocation, record types.SampleRecord) error {
	ctx = logger.ContextWithFields(ctx, zap.String("sample_id", record.SampleID))
	ctx, span := tracer.Start(ctx, "pipeline.Records")
	span.SetAttributes(attribute.String("sample_id", record.SampleID))
	defer span.End()
	defer c.observe(continuation.StageRecords)()

	bs, err := c.resolver.ResolveBiospecimen(ctx, record.SampleID, record.Study.ID)
	if err == nil {
		ctx = logger.ContextWithFields(ctx, zap.String("biospecimen_id", bs.ID))
		update, write := consent.Plan(record, bs)
		if write {
			err = c.propagator.Apply(ctx, update)
			if err == nil {
				inv.summary.BiospecimenWrites++
				writesCounter.WithLabelValues("biospecimen").Inc()
			}
		}
		if err == nil {
			inv.biospecimens = append(inv.biospecimens, types.BiospecimenItem{
				Study:         record.Study,
				SampleID:      record.SampleID,
				BiospecimenID: bs.ID,
				ConsentCode:   update.ConsentCode,
			})
		}
	}

	if err != nil {
		telemetry.TraceError(span, err)
		return c.fail(ctx, inv, continuation.StageRecords, record.Attempts, err, func() {
			record.Attempts++
			inv.records = append(inv.records, record)
		}, func() {
			inv.deadLettered = append(inv.deadLettered, record.SampleID)
		})
	}

	c.succeed(inv, continuation.StageRecords)
	return nil
}

func (c *Controller) processBiospecimen(ctx context.Context, inv *invocation, item types.BiospecimenItem) error {
	ctx = logger.ContextWithFields(ctx,
		zap.String("sample_id", item.SampleID),
		zap.String("biospecimen_id", item.BiospecimenID))
	ctx, span := tracer.Start(ctx, "pipeline.Biospecimens")
	span.SetAttributes(attribute.String("biospecimen_id", item.BiospecimenID))
	defer span.End()
	defer c.observe(continuation.StageBiospecimens)()

	files, err := c.files.ListGenomicFiles(ctx, item.BiospecimenID)
	if err != nil {
		telemetry.TraceError(span, err)
		return c.fail(ctx, inv, continuation.StageBiospecimens, item.Attempts, err, func() {
			item.Attempts++
			inv.biospecimens = append(inv.biospecimens, item)
		}, func() {
			inv.deadLettered = append(inv.deadLettered, item.SampleID)
		})
	}

	span.SetAttributes(attribute.Int("genomic_files", len(files)))
	inv.files.Accumulate(item.BiospecimenID, files, item.ConsentCode, item.Study)

	c.succeed(inv, continuation.StageBiospecimens)
	return nil
}

func (c *Controller) processGenomicFile(ctx context.Context, inv *invocation, acc *types.Accumulator) error {
	ctx = logger.ContextWithFields(ctx, zap.String("genomic_file_id", acc.FileID))
	ctx, span := tracer.Start(ctx, "pipeline.GenomicFiles")
	span.SetAttributes(attribute.String("genomic_file_id", acc.FileID))
	defer span.End()
	defer c.observe(continuation.StageGenomicFiles)()

	wrote, err := c.reconciler.Reconcile(ctx, acc, len(inv.deadLettered) > 0)
	if err != nil {
		telemetry.TraceError(span, err)
		return c.fail(ctx, inv, continuation.StageGenomicFiles, acc.Attempts, err, func() {
			acc.Attempts++
			inv.files.Requeue(acc)
		}, nil)
	}

	if wrote {
		inv.summary.AclWrites++
		writesCounter.WithLabelValues("genomic_file").Inc()
	}

	c.succeed(inv, continuation.StageGenomicFiles)
	return nil
}

func (c *Controller) succeed(inv *invocation, stage continuation.Stage) {
	inv.summary.Processed++
	itemsCounter.WithLabelValues(string(stage), outcomeProcessed).Inc()
}

// fail applies the reaction of the error class to a failed item. Skipped and
// dead-lettered items are dropped; requeue puts a retried item back at the same stage
// and deadLetter, when set, records a dropped item. Only a fatal error is returned.
func (c *Controller) fail(ctx context.Context, inv *invocation, stage continuation.Stage, attempts int, err error, requeue, deadLetter func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fields := []zap.Field{zap.String("stage", string(stage)), zap.Error(err)}

	switch class := errs.Classify(err); class {
	case errs.ClassFatal:
		return err
	case errs.ClassSkip:
		inv.summary.Skipped++
		itemsCounter.WithLabelValues(string(stage), outcomeSkipped).Inc()
		c.logger.WarnWithContext(ctx, "skipped item", fields...)
		return nil
	default:
		if attempts+1 >= c.maxItemAttempts {
			if deadLetter != nil {
				deadLetter()
			}
			inv.summary.DeadLettered++
			itemsCounter.WithLabelValues(string(stage), outcomeDeadLettered).Inc()
			c.logger.ErrorWithContext(ctx, "dead-lettered item",
				append(fields, zap.Int("attempts", attempts+1), zap.Stringer("class", class))...)
			return nil
		}

		requeue()
		inv.summary.Requeued++
		itemsCounter.WithLabelValues(string(stage), outcomeRequeued).Inc()
		c.logger.WarnWithContext(ctx, "requeued item",
			append(fields, zap.Int("attempts", attempts+1), zap.Stringer("class", class))...)
		return nil
	}
}

func (c *Controller) observe(stage continuation.Stage) func() {
	start := c.clock.Now()
	return func() {
		itemDurationHistogram.WithLabelValues(string(stage)).Observe(float64(c.clock.Since(start).Milliseconds()))
	}
}
