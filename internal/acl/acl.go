// Package acl computes and writes the access control list of genomic files.
package acl

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/types"
)

var tracer = otel.Tracer("consentsync/internal/acl")

// Update is the ACL write planned for a genomic file.
type Update struct {
	FileID string
	ACL    []string
}

// Target returns the ACL acc should carry, sorted. A visible file whose biospecimens all
// carry the same consent code is granted that code; any other file only keeps the study
// grants.
func Target(acc *types.Accumulator) []string {
	target := []string{acc.ExternalStudyID, acc.StudyID}

	codes, hasNull := acc.DistinctCodes()
	if acc.Visible && !hasNull && len(codes) == 1 {
		target = append(target, codes[0])
	}

	return set(target)
}

// StudyGrants returns the restrictive ACL of acc: the study grants without any consent
// code.
func StudyGrants(acc *types.Accumulator) []string {
	return set([]string{acc.ExternalStudyID, acc.StudyID})
}

// Equal reports whether a and b hold the same set of grants.
func Equal(a, b []string) bool {
	return slices.Equal(set(a), set(b))
}

func set(acl []string) []string {
	out := slices.Clone(acl)
	slices.Sort(out)
	return slices.Compact(out)
}

// Plan returns the update that brings acc in line with its target ACL, and false when
// the current ACL already holds the same grants. With restrictOnly the target is the
// restrictive ACL, for files whose set of contributing biospecimens may be incomplete.
func Plan(acc *types.Accumulator, restrictOnly bool) (Update, bool) {
	target := Target(acc)
	if restrictOnly {
		target = StudyGrants(acc)
	}
	return Update{FileID: acc.FileID, ACL: target}, !Equal(acc.CurrentACL, target)
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(r *Reconciler)

// WithLogger sets the logger ACL writes are reported to.
func WithLogger(l logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// Reconciler writes genomic file ACLs to the record store.
type Reconciler struct {
	store  dataservice.GenomicFileStore
	logger logger.Logger
}

func NewReconciler(store dataservice.GenomicFileStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:  store,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile writes the target ACL of acc when it differs from the current one. It
// returns whether a write was issued. With restrictOnly no consent code is granted.
func (r *Reconciler) Reconcile(ctx context.Context, acc *types.Accumulator, restrictOnly bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "acl.Reconcile")
	span.SetAttributes(
		attribute.String("genomic_file_id", acc.FileID),
		attribute.Bool("restrict_only", restrictOnly),
	)
	defer span.End()

	update, write := Plan(acc, restrictOnly)
	span.SetAttributes(attribute.Bool("write", write))
	if !write {
		return false, nil
	}

	if err := r.store.PatchGenomicFile(ctx, update.FileID, dataservice.GenomicFilePatch{ACL: update.ACL}); err != nil {
		return false, err
	}

	r.logger.InfoWithContext(ctx, "updated genomic file acl",
		zap.String("genomic_file_id", update.FileID),
		zap.Strings("previous_acl", acc.CurrentACL),
		zap.Strings("acl", update.ACL),
		zap.Strings("biospecimen_ids", acc.BiospecimenIDs()),
		zap.Bool("restrict_only", restrictOnly))

	return true, nil
}
