package memory

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/dataservice"
)

// NewHandler serves the store over the subset of the dataservice REST API used by
// dataservice.Client. Listings are returned as a single page.
func NewHandler(s *Store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /studies", func(w http.ResponseWriter, r *http.Request) {
		externalID := r.URL.Query().Get("external_id")
		if externalID == "" {
			studies, err := s.ListStudies(r.Context())
			writeResults(w, studies, err)
			return
		}
		studies, err := s.FindStudies(r.Context(), externalID)
		writeResults(w, studies, err)
	})

	mux.HandleFunc("GET /biospecimens", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		biospecimens, err := s.FindBiospecimens(r.Context(), query.Get("study_id"), query.Get("external_sample_id"))
		writeResults(w, biospecimens, err)
	})

	mux.HandleFunc("GET /genomic-files", func(w http.ResponseWriter, r *http.Request) {
		files, err := s.ListGenomicFiles(r.Context(), r.URL.Query().Get("biospecimen_id"))
		writeResults(w, files, err)
	})

	mux.HandleFunc("PATCH /biospecimens/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch dataservice.BiospecimenPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writePatch(w, s.PatchBiospecimen(r.Context(), r.PathValue("id"), patch))
	})

	mux.HandleFunc("PATCH /genomic-files/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch dataservice.GenomicFilePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writePatch(w, s.PatchGenomicFile(r.Context(), r.PathValue("id"), patch))
	})

	return mux
}

func writeResults[T any](w http.ResponseWriter, results []T, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []T{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"results": results,
		"_links":  map[string]any{},
	})
}

func writePatch(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
