// Package consent decides and applies the consent code carried by a biospecimen.
package consent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/types"
)

var tracer = otel.Tracer("consentsync/internal/consent")

// codeSeparator joins a study external id and a registry consent code.
const codeSeparator = ".c"

// Code returns the namespaced consent code a biospecimen should carry, or nil when the
// biospecimen is not visible.
func Code(study types.StudyRef, registryCode string, visible bool) *string {
	if !visible {
		return nil
	}
	code := study.ExternalID + codeSeparator + registryCode
	return &code
}

// Plan returns the update that brings bs in line with sample, and false when bs already
// carries the target consent code and type.
func Plan(sample types.SampleRecord, bs types.BiospecimenState) (types.ConsentUpdate, bool) {
	update := types.ConsentUpdate{
		BiospecimenID:    bs.ID,
		ConsentCode:      Code(sample.Study, sample.ConsentCode, bs.Visible),
		ConsentShortName: sample.ConsentShortName,
	}

	currentType := ""
	if bs.ConsentType != nil {
		currentType = *bs.ConsentType
	}

	if types.EqualString(update.ConsentCode, bs.ConsentCode) && update.ConsentShortName == currentType {
		return update, false
	}

	return update, true
}

// PropagatorOption configures a Propagator.
type PropagatorOption func(p *Propagator)

// WithLogger sets the logger biospecimen consent writes are reported to.
func WithLogger(l logger.Logger) PropagatorOption {
	return func(p *Propagator) {
		p.logger = l
	}
}

// Propagator writes consent updates to the record store.
type Propagator struct {
	store  dataservice.BiospecimenStore
	logger logger.Logger
}

func NewPropagator(store dataservice.BiospecimenStore, opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		store:  store,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Apply issues the single partial update described by update.
func (p *Propagator) Apply(ctx context.Context, update types.ConsentUpdate) error {
	ctx, span := tracer.Start(ctx, "consent.Apply")
	span.SetAttributes(
		attribute.String("biospecimen_id", update.BiospecimenID),
		attribute.String("consent_code", types.StringValue(update.ConsentCode)),
	)
	defer span.End()

	err := p.store.PatchBiospecimen(ctx, update.BiospecimenID, dataservice.BiospecimenPatch{
		ConsentCode: types.CloneString(update.ConsentCode),
		ConsentType: update.ConsentShortName,
	})
	if err != nil {
		return err
	}

	p.logger.InfoWithContext(ctx, "updated biospecimen consent",
		zap.String("biospecimen_id", update.BiospecimenID),
		zap.String("consent_code", types.StringValue(update.ConsentCode)),
		zap.String("consent_type", update.ConsentShortName))

	return nil
}
