package trace

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ember/kernel"
)

// Server exposes the activation trace and the live scheduler state over
// HTTP. It reads; it never steers the machine.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	store     Store
	bootID    string
	snapshot  func() []kernel.TaskInfo
	startTime time.Time
}

// NewServer creates a server with all routes registered. snapshot
// supplies the live task table; it must be safe to call from any
// goroutine.
func NewServer(st Store, bootID string, snapshot func() []kernel.TaskInfo, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "traceserver"),
		store:     st,
		bootID:    bootID,
		snapshot:  snapshot,
		startTime: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tasks", s.handleTasks)
		r.Get("/activations", s.handleActivations)
		r.Get("/summary", s.handleSummary)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"boot_id": s.bootID,
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		s.respondJSON(w, http.StatusOK, []kernel.TaskInfo{})
		return
	}
	s.respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleActivations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.store.RecentActivations(r.Context(), limit)
	if err != nil {
		s.logger.Error("list activations", "error", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*Record{}
	}
	s.respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sums, err := s.store.TaskSummaries(r.Context(), s.bootID)
	if err != nil {
		s.logger.Error("summarize activations", "error", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if sums == nil {
		sums = []*TaskSummary{}
	}
	s.respondJSON(w, http.StatusOK, sums)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
