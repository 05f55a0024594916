// Package syncer runs consent syncs: one per study, or one for every study of the
// record store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/internal/build"
	"github.com/openfga/consentsync/internal/concurrency"
	"github.com/openfga/consentsync/internal/pipeline"
	"github.com/openfga/consentsync/internal/resolver"
	"github.com/openfga/consentsync/pkg/continuation"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/id"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/notify"
	"github.com/openfga/consentsync/pkg/registry"
	"github.com/openfga/consentsync/pkg/telemetry"
	"github.com/openfga/consentsync/pkg/types"
)

var tracer = otel.Tracer("consentsync/pkg/syncer")

// ErrNoStudies is returned by SyncAll when the record store holds no study.
var ErrNoStudies = errors.New("dataservice has no studies")

var runsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "sync_runs_total",
	Help:      "The total number of study sync invocations, by kind and outcome.",
}, []string{"kind", "outcome"})

// Result is the outcome of one invocation.
type Result struct {
	RunID   string           `json:"run_id"`
	Study   types.StudyRef   `json:"study"`
	Summary pipeline.Summary `json:"summary"`
	Err     error            `json:"-"`
}

// SyncerOption configures a Syncer.
type SyncerOption func(s *Syncer)

// WithLogger sets the logger of the syncer and of the controllers it creates.
func WithLogger(l logger.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithNotifier sets where batch level failures are reported.
func WithNotifier(n notify.Notifier) SyncerOption {
	return func(s *Syncer) {
		s.notifier = n
	}
}

// WithControllerOptions sets the options of the controller created for every run.
func WithControllerOptions(opts ...pipeline.ControllerOption) SyncerOption {
	return func(s *Syncer) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// WithStudyCacheSize bounds the study cache of each run.
func WithStudyCacheSize(n int64) SyncerOption {
	return func(s *Syncer) {
		s.studyCacheSize = n
	}
}

// WithMaxConcurrentStudies bounds how many studies SyncAll syncs at the same time.
func WithMaxConcurrentStudies(n int) SyncerOption {
	return func(s *Syncer) {
		if n > 0 {
			s.maxConcurrentStudies = n
		}
	}
}

// Syncer starts runs. Every run gets its own id, study cache and controller, so runs
// may execute in parallel.
type Syncer struct {
	store    dataservice.RecordStore
	registry registry.Fetcher
	notifier notify.Notifier
	logger   logger.Logger

	controllerOpts       []pipeline.ControllerOption
	studyCacheSize       int64
	maxConcurrentStudies int
}

func New(store dataservice.RecordStore, fetcher registry.Fetcher, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:                store,
		registry:             fetcher,
		logger:               logger.NewNoopLogger(),
		maxConcurrentStudies: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger)
	}

	return s
}

// run is the scope of one invocation.
type run struct {
	id         string
	resolver   *resolver.Resolver
	controller *pipeline.Controller
}

func (s *Syncer) newRun(runID string) (*run, error) {
	if runID == "" {
		var err error
		if runID, err = id.NewRunID(); err != nil {
			return nil, err
		}
	}

	r, err := resolver.New(s.store, resolver.WithLogger(s.logger), resolver.WithCacheSize(s.studyCacheSize))
	if err != nil {
		return nil, err
	}

	opts := append([]pipeline.ControllerOption{pipeline.WithLogger(s.logger)}, s.controllerOpts...)
	controller, err := pipeline.NewController(r, s.store, opts...)
	if err != nil {
		r.Close()
		return nil, err
	}

	return &run{id: runID, resolver: r, controller: controller}, nil
}

func (r *run) close() {
	r.resolver.Close()
}

// SyncStudy syncs every sample the registry publishes for the study with the given
// external id. Failures to resolve the study or read the registry abort the run and are
// reported to the notifier.
func (s *Syncer) SyncStudy(ctx context.Context, externalID string) (Result, error) {
	r, err := s.newRun("")
	if err != nil {
		return Result{}, err
	}
	defer r.close()

	ctx = logger.ContextWithFields(ctx, zap.String("run_id", r.id), zap.String("study_external_id", externalID))
	ctx, span := tracer.Start(ctx, "syncer.SyncStudy")
	span.SetAttributes(attribute.String("run_id", r.id), attribute.String("study_external_id", externalID))
	defer span.End()

	result := Result{RunID: r.id, Study: types.StudyRef{ExternalID: externalID}}

	study, err := r.resolver.ResolveStudy(ctx, externalID)
	if err != nil {
		return s.abort(ctx, "sync", result, fmt.Errorf("resolve study %s: %w", externalID, err))
	}
	result.Study = study

	records, err := s.fetchRecords(ctx, study)
	if err != nil {
		return s.abort(ctx, "sync", result, err)
	}

	s.logger.InfoWithContext(ctx, "starting consent sync",
		zap.String("accession", study.Accession()),
		zap.Int("samples", len(records)))

	result.Summary, err = r.controller.Run(ctx, r.id, study, records)
	if err != nil {
		return s.abort(ctx, "sync", result, fmt.Errorf("sync %s: %w", study.Accession(), err))
	}

	runsCounter.WithLabelValues("sync", "ok").Inc()
	return result, nil
}

// fetchRecords reads the registry document of the study into Records stage items.
func (s *Syncer) fetchRecords(ctx context.Context, study types.StudyRef) ([]types.SampleRecord, error) {
	iter, err := s.registry.FetchConsentTuples(ctx, study.Accession())
	if err != nil {
		return nil, fmt.Errorf("fetch %s from registry: %w", study.Accession(), err)
	}
	defer iter.Stop()

	var records []types.SampleRecord
	for {
		tuple, err := iter.Next(ctx)
		if errors.Is(err, registry.ErrIteratorDone) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s from registry: %w", study.Accession(), err)
		}

		if tuple.SampleID == "" {
			s.logger.WarnWithContext(ctx, "registry sample without submitted sample id",
				zap.String("consent_code", tuple.ConsentCode))
			continue
		}

		records = append(records, types.SampleRecord{
			Study:            study,
			SampleID:         tuple.SampleID,
			ConsentCode:      tuple.ConsentCode,
			ConsentShortName: tuple.ConsentShortName,
		})
	}
}

// SyncAll syncs every study of the record store, at most maxConcurrentStudies at a
// time. A failed study does not stop the others; its error is in its Result.
func (s *Syncer) SyncAll(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "syncer.SyncAll")
	defer span.End()

	studies, err := s.store.ListStudies(ctx)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, fmt.Errorf("list studies: %w", err)
	}

	var externalIDs []string
	seen := make(map[string]struct{}, len(studies))
	for _, study := range studies {
		if _, ok := seen[study.ExternalID]; ok || study.ExternalID == "" {
			continue
		}
		seen[study.ExternalID] = struct{}{}
		externalIDs = append(externalIDs, study.ExternalID)
	}

	if len(externalIDs) == 0 {
		telemetry.TraceError(span, ErrNoStudies)
		return nil, ErrNoStudies
	}

	span.SetAttributes(attribute.Int("studies", len(externalIDs)))

	var mu sync.Mutex
	results := make([]Result, len(externalIDs))

	pool := concurrency.NewPool(ctx, s.maxConcurrentStudies)
	for i, externalID := range externalIDs {
		pool.Go(func(ctx context.Context) error {
			result, err := s.SyncStudy(ctx, externalID)
			result.Err = err

			mu.Lock()
			results[i] = result
			mu.Unlock()

			// a study failure must not cancel the other studies
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		return results, err
	}

	return results, ctx.Err()
}

// Resume runs the controller from a checkpoint, under the checkpoint's run id.
func (s *Syncer) Resume(ctx context.Context, checkpoint *continuation.Checkpoint) (Result, error) {
	r, err := s.newRun(checkpoint.RunID)
	if err != nil {
		return Result{}, err
	}
	defer r.close()

	ctx = logger.ContextWithFields(ctx,
		zap.String("run_id", r.id),
		zap.String("checkpoint_id", checkpoint.ID),
		zap.String("study_external_id", checkpoint.Study.ExternalID))
	ctx, span := tracer.Start(ctx, "syncer.Resume")
	span.SetAttributes(attribute.String("run_id", r.id), attribute.String("checkpoint_id", checkpoint.ID))
	defer span.End()

	result := Result{RunID: r.id, Study: checkpoint.Study}

	result.Summary, err = r.controller.Resume(ctx, checkpoint)
	if err != nil {
		return s.abort(ctx, "resume", result, fmt.Errorf("resume %s: %w", checkpoint.Study.Accession(), err))
	}

	runsCounter.WithLabelValues("resume", "ok").Inc()
	return result, nil
}

// Drain resumes checkpoints from source, oldest first, until none is left. Checkpoints
// handed off while draining are drained too.
func (s *Syncer) Drain(ctx context.Context, source continuation.Source) ([]Result, error) {
	var results []Result
	for {
		checkpoint, err := source.Next(ctx)
		if errors.Is(err, continuation.ErrNoCheckpoint) {
			return results, nil
		}
		if err != nil {
			return results, fmt.Errorf("read checkpoint: %w", err)
		}

		result, err := s.Resume(ctx, checkpoint)
		result.Err = err
		results = append(results, result)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
}

// abort records a failed run and reports it to the notifier.
func (s *Syncer) abort(ctx context.Context, kind string, result Result, err error) (Result, error) {
	runsCounter.WithLabelValues(kind, "error").Inc()

	telemetry.TraceError(trace.SpanFromContext(ctx), err)

	s.logger.ErrorWithContext(ctx, "consent sync failed", zap.Error(err))
	notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("consent sync of %s failed: %v", result.Study.ExternalID, err))

	return result, err
}
