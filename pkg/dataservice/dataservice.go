//go:generate mockgen -source dataservice.go -destination ../../internal/mocks/mock_dataservice.go -package mocks RecordStore

// Package dataservice provides access to the record store that holds studies,
// biospecimens and genomic files.
package dataservice

import (
	"context"
	"slices"
)

// Study is a study record. ExternalID is the registry accession (e.g. 'phs001168').
type Study struct {
	ID         string `json:"kf_id"`
	ExternalID string `json:"external_id"`
	Version    string `json:"version"`
}

// Biospecimen is the subset of a biospecimen record the consent sync reads.
type Biospecimen struct {
	ID               string  `json:"kf_id"`
	ExternalSampleID string  `json:"external_sample_id,omitempty"`
	ConsentCode      *string `json:"dbgap_consent_code"`
	ConsentType      *string `json:"consent_type"`
	Visible          bool    `json:"visible"`
}

// GenomicFile is the subset of a genomic file record the consent sync reads.
type GenomicFile struct {
	ID      string   `json:"kf_id"`
	ACL     []string `json:"acl"`
	Visible bool     `json:"visible"`
}

// BiospecimenPatch is the partial update applied to a biospecimen. A nil ConsentCode
// clears the consent code.
type BiospecimenPatch struct {
	ConsentCode *string `json:"dbgap_consent_code"`
	ConsentType string  `json:"consent_type"`
}

// GenomicFilePatch is the partial update applied to a genomic file.
type GenomicFilePatch struct {
	ACL []string `json:"acl"`
}

// StudyReader looks up studies.
type StudyReader interface {
	// FindStudies returns every study whose external id equals externalID.
	FindStudies(ctx context.Context, externalID string) ([]Study, error)

	// ListStudies returns every study in the record store.
	ListStudies(ctx context.Context) ([]Study, error)
}

// BiospecimenStore reads and updates biospecimens.
type BiospecimenStore interface {
	// FindBiospecimens returns every biospecimen of the study with the given external sample id.
	FindBiospecimens(ctx context.Context, studyID, externalSampleID string) ([]Biospecimen, error)

	PatchBiospecimen(ctx context.Context, id string, patch BiospecimenPatch) error
}

// GenomicFileStore reads and updates genomic files.
type GenomicFileStore interface {
	// ListGenomicFiles returns every genomic file derived from the biospecimen.
	ListGenomicFiles(ctx context.Context, biospecimenID string) ([]GenomicFile, error)

	PatchGenomicFile(ctx context.Context, id string, patch GenomicFilePatch) error
}

// RecordStore is the full surface of the record store used by a consent sync.
type RecordStore interface {
	StudyReader
	BiospecimenStore
	GenomicFileStore
}

// Clone returns a deep copy of the genomic file.
func (g GenomicFile) Clone() GenomicFile {
	g.ACL = slices.Clone(g.ACL)
	return g
}
