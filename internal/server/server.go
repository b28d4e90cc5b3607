package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quackquavk/gridminer/internal/engine/storage"
	"github.com/quackquavk/gridminer/internal/jobs"
	"github.com/quackquavk/gridminer/internal/model"
)

// Server exposes the job-management HTTP surface.
type Server struct {
	store   *storage.Store
	manager *jobs.Manager
}

func New(store *storage.Store, manager *jobs.Manager) *Server {
	return &Server{store: store, manager: manager}
}

// Routes mounts the job API on a chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Post("/", s.createJob)
		r.Get("/{id}", s.getJob)
		r.Delete("/{id}", s.deleteJob)
		r.Post("/{id}/stop", s.stopJob)
		r.Get("/{id}/export", s.exportJob)
	})

	return r
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListJobs(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []model.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var cfg model.HarvestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding config: %w", err))
		return
	}

	job, err := s.manager.Submit(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.ID,
		"message": "job started",
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if job.Logs == nil {
		job.Logs = []string{}
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "job deleted"})
}

func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.manager.Stop(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "stop requested"})
	case errors.Is(err, jobs.ErrNotRunning):
		writeError(w, http.StatusConflict, err)
	default:
		writeStoreError(w, err)
	}
}

func (s *Server) exportJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetJob(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	records, err := s.store.Records(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, errors.New("no results to export"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job_%s.csv", id))
	WriteCSV(w, records)
}

// WriteCSV writes records as tabular data. Shared with the export
// subcommand.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"name", "category", "address", "website", "email", "phone", "location_link", "raw_snippet"})
	for _, rec := range records {
		cw.Write([]string{
			rec.Name, rec.Category, rec.Address, rec.Website,
			rec.Email, rec.Phone, rec.LocationLink, rec.RawSnippet,
		})
	}
	return cw.Error()
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
