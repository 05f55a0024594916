package types

import (
	"fmt"
	"slices"
)

// StudyRef identifies a study in both the registry and the record store.
type StudyRef struct {
	// ExternalID is the registry accession without version, e.g. 'phs001168'.
	ExternalID string `json:"external_id"`
	// ID is the record store identifier, e.g. 'SD_9PYZAHHE'.
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Accession is the versioned registry accession, e.g. 'phs001168.v2.p2'.
func (s StudyRef) Accession() string {
	return s.ExternalID + "." + s.Version
}

func (s StudyRef) String() string {
	return fmt.Sprintf("%s (%s)", s.ExternalID, s.ID)
}

// SampleRecord is one registry sample, queued at the Records stage.
type SampleRecord struct {
	Study            StudyRef `json:"study"`
	SampleID         string   `json:"sample_id"`
	ConsentCode      string   `json:"consent_code"`
	ConsentShortName string   `json:"consent_short_name"`
	Attempts         int      `json:"attempts,omitempty"`
}

// BiospecimenState is the consent relevant state of a biospecimen record.
type BiospecimenState struct {
	ID          string  `json:"id"`
	ConsentCode *string `json:"consent_code"`
	ConsentType *string `json:"consent_type"`
	Visible     bool    `json:"visible"`
}

// BiospecimenItem is queued at the Biospecimens stage once a sample resolved and its
// consent is up to date. ConsentCode is the code the biospecimen now carries.
type BiospecimenItem struct {
	Study         StudyRef `json:"study"`
	SampleID      string   `json:"sample_id"`
	BiospecimenID string   `json:"biospecimen_id"`
	ConsentCode   *string  `json:"consent_code"`
	Attempts      int      `json:"attempts,omitempty"`
}

// ConsentUpdate is the write planned for a biospecimen.
type ConsentUpdate struct {
	BiospecimenID    string  `json:"biospecimen_id"`
	ConsentCode      *string `json:"consent_code"`
	ConsentShortName string  `json:"consent_short_name"`
}

// Accumulator collects, for one genomic file, the consent code of every biospecimen
// the file is derived from.
type Accumulator struct {
	FileID          string   `json:"file_id"`
	CurrentACL      []string `json:"current_acl"`
	Visible         bool     `json:"visible"`
	StudyID         string   `json:"study_id"`
	ExternalStudyID string   `json:"external_study_id"`

	// map: biospecimen id => consent code it contributed (nil for no code)
	Contributions map[string]*string `json:"contributions"`

	Attempts int `json:"attempts,omitempty"`
}

// BiospecimenIDs returns the contributing biospecimens in sorted order.
func (a *Accumulator) BiospecimenIDs() []string {
	ids := make([]string, 0, len(a.Contributions))
	for id := range a.Contributions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DistinctCodes returns the distinct contributed codes in sorted order and whether any
// contribution carried no code.
func (a *Accumulator) DistinctCodes() (codes []string, hasNull bool) {
	seen := make(map[string]struct{}, len(a.Contributions))
	for _, code := range a.Contributions {
		if code == nil {
			hasNull = true
			continue
		}
		if _, ok := seen[*code]; ok {
			continue
		}
		seen[*code] = struct{}{}
		codes = append(codes, *code)
	}
	slices.Sort(codes)
	return codes, hasNull
}

// Clone returns a deep copy.
func (a *Accumulator) Clone() *Accumulator {
	out := *a
	out.CurrentACL = slices.Clone(a.CurrentACL)
	out.Contributions = make(map[string]*string, len(a.Contributions))
	for id, code := range a.Contributions {
		out.Contributions[id] = CloneString(code)
	}
	return &out
}

// CloneString copies an optional string.
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// EqualString reports whether two optional strings hold the same value.
func EqualString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringValue returns the value of s, or "<nil>".
func StringValue(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
