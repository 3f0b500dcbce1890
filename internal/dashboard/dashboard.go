// Package dashboard is a small read-only HTTP front end over a
// store.Store: it never mutates state beyond the one deliberate
// exception (dlq retry), and every handler goes through the Store
// contract rather than touching SQL directly.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/store"
)

// Server wraps a store.Store and store.Cleaner behind a chi router.
type Server struct {
	store   store.Store
	cleaner store.Cleaner
	log     *slog.Logger
	router  chi.Router
}

// New builds the dashboard's route tree. cleaner may be nil if the
// caller does not want to expose retention info.
func New(st store.Store, cleaner store.Cleaner, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{store: st, cleaner: cleaner, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestUUID)
	r.Use(middleware.Recoverer)
	r.Use(jsonResponse)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/jobs", s.handleListJobs)
	r.Get("/api/dlq", s.handleDlq)
	r.Route("/api/dlq/{id}", func(r chi.Router) {
		r.Post("/retry", s.handleDlqRetry)
	})
	r.Get("/api/config", s.handleConfig)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestUUID attaches a google/uuid-generated correlation id to every
// request's logs; job ids themselves stay caller-supplied strings,
// this is the one place in the repository that needs a generated id.
func requestUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func jsonResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make(map[string]int64, len(summary)+1)
	for status, n := range summary {
		resp[status.String()] = n
	}
	resp["total"] = summary.Total()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	status, err := job.ParseStatus(state)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown state: "+state)
		return
	}
	jobs, err := s.store.GetByState(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleDlq(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.GetByState(r.Context(), job.Dead)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleDlqRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.RetryDlq(r.Context(), id); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "job not in dead-letter queue")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "pending"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.GetAllConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
