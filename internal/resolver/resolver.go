// Package resolver maps registry identifiers onto record store identifiers.
package resolver

import (
	"context"
	"fmt"

	"github.com/Yiling-J/theine-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/types"
)

var tracer = otel.Tracer("consentsync/internal/resolver")

const defaultCacheSize = 1000

// Store is the part of the record store a Resolver reads from.
type Store interface {
	dataservice.StudyReader
	FindBiospecimens(ctx context.Context, studyID, externalSampleID string) ([]dataservice.Biospecimen, error)
}

// ResolverOption configures a Resolver.
type ResolverOption func(r *Resolver)

// WithLogger sets the logger of the resolver.
func WithLogger(l logger.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithCacheSize bounds the number of studies remembered by the resolver.
func WithCacheSize(n int64) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// Resolver resolves studies and biospecimens. Study resolutions are cached for the life
// of the resolver, which is meant to be one run; create a new Resolver per run and Close
// it when the run ends.
type Resolver struct {
	store     Store
	logger    logger.Logger
	cacheSize int64
	studies   *theine.Cache[string, types.StudyRef]
}

func New(store Store, opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		store:     store,
		logger:    logger.NewNoopLogger(),
		cacheSize: defaultCacheSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	cache, err := theine.NewBuilder[string, types.StudyRef](r.cacheSize).Build()
	if err != nil {
		return nil, fmt.Errorf("build study cache: %w", err)
	}
	r.studies = cache

	return r, nil
}

// ResolveStudy returns the single study whose external id is externalID.
func (r *Resolver) ResolveStudy(ctx context.Context, externalID string) (types.StudyRef, error) {
	if study, ok := r.studies.Get(externalID); ok {
		return study, nil
	}

	ctx, span := tracer.Start(ctx, "resolver.ResolveStudy")
	span.SetAttributes(attribute.String("external_id", externalID))
	defer span.End()

	studies, err := r.store.FindStudies(ctx, externalID)
	if err != nil {
		return types.StudyRef{}, err
	}

	switch len(studies) {
	case 0:
		return types.StudyRef{}, errs.NotFound("study", externalID)
	case 1:
	default:
		return types.StudyRef{}, errs.Ambiguous("study", externalID, len(studies))
	}

	study := studies[0]
	if study.Version == "" {
		return types.StudyRef{}, fmt.Errorf("%s has no version in dataservice: %w", externalID, errs.ErrNotFound)
	}

	ref := types.StudyRef{ExternalID: study.ExternalID, ID: study.ID, Version: study.Version}
	r.studies.Set(externalID, ref, 1)

	r.logger.DebugWithContext(ctx, "resolved study",
		zap.String("external_id", externalID),
		zap.String("study_id", ref.ID),
		zap.String("version", ref.Version))

	return ref, nil
}

// ResolveBiospecimen returns the single biospecimen of studyID whose external sample id
// is externalSampleID. Results are not cached.
func (r *Resolver) ResolveBiospecimen(ctx context.Context, externalSampleID, studyID string) (types.BiospecimenState, error) {
	ctx, span := tracer.Start(ctx, "resolver.ResolveBiospecimen")
	span.SetAttributes(
		attribute.String("external_sample_id", externalSampleID),
		attribute.String("study_id", studyID),
	)
	defer span.End()

	biospecimens, err := r.store.FindBiospecimens(ctx, studyID, externalSampleID)
	if err != nil {
		return types.BiospecimenState{}, err
	}

	query := fmt.Sprintf("%s in %s", externalSampleID, studyID)
	switch len(biospecimens) {
	case 0:
		return types.BiospecimenState{}, errs.NotFound("biospecimen", query)
	case 1:
	default:
		return types.BiospecimenState{}, errs.Ambiguous("biospecimen", query, len(biospecimens))
	}

	bs := biospecimens[0]
	return types.BiospecimenState{
		ID:          bs.ID,
		ConsentCode: types.CloneString(bs.ConsentCode),
		ConsentType: types.CloneString(bs.ConsentType),
		Visible:     bs.Visible,
	}, nil
}

// Close releases the study cache.
func (r *Resolver) Close() {
	r.studies.Close()
}
