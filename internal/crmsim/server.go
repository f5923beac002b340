package crmsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// TasksPath is the task list endpoint of the CRM
const TasksPath = "/api/v3.1/tasks"

// MaxTasks bounds the size of a generated task set
const MaxTasks = 100000

// Stats reports what the simulator has served
type Stats struct {
	Tasks       int       `json:"tasks"`
	Requests    int       `json:"requests"`
	Rejected    int       `json:"rejected"`
	FaultStatus int       `json:"faultStatus,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Server serves a fixed set of synthetic tasks the way the CRM does
type Server struct {
	token  string
	logger zerolog.Logger

	mu          sync.RWMutex
	tasks       []Task
	generatedAt time.Time
	faultStatus int
	requests    int
	rejected    int
}

// NewServer creates a server holding tasks. An empty token disables the
// bearer check.
func NewServer(tasks []Task, token string, logger zerolog.Logger) *Server {
	return &Server{
		token:       token,
		logger:      logger,
		tasks:       tasks,
		generatedAt: time.Now(),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc(TasksPath, s.tasksHandler).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	router.HandleFunc("/regenerate", s.regenerateHandler).Methods("POST")
	router.HandleFunc("/fault", s.faultHandler).Methods("PUT", "DELETE")
}

// Handler returns the routed simulator
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.SetupRoutes(router)
	return router
}

// healthHandler returns service health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// tasksHandler serves one page of tasks in the CRM envelope
func (s *Server) tasksHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	fault := s.faultStatus
	s.mu.Unlock()

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		s.logger.Warn().Msg("rejected request with missing or wrong token")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "unauthorized"})
		return
	}

	if fault != 0 {
		http.Error(w, http.StatusText(fault), fault)
		return
	}

	page, perPage := pageParams(r)

	s.mu.RLock()
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(s.tasks) {
		start = len(s.tasks)
	}
	if end > len(s.tasks) {
		end = len(s.tasks)
	}
	pageTasks := s.tasks[start:end]
	total := len(s.tasks)
	s.mu.RUnlock()

	s.logger.Debug().
		Str("filter", r.URL.Query().Get("filter")).
		Int("page", page).
		Int("per_page", perPage).
		Int("returned", len(pageTasks)).
		Msg("served tasks")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "success",
		"response": pageTasks,
		"meta": map[string]int{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 25
	}
	return page, perPage
}

// statsHandler returns request statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// regenerateHandler replaces the task set
func (s *Server) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int   `json:"count"`
		Seed  int64 `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Count < 0 || req.Count > MaxTasks {
		http.Error(w, fmt.Sprintf("count must be between 0 and %d", MaxTasks), http.StatusBadRequest)
		return
	}

	tasks := NewGenerator(req.Seed).GenerateTasks(req.Count, time.Now())

	s.mu.Lock()
	s.tasks = tasks
	s.generatedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().Int("count", req.Count).Int64("seed", req.Seed).Msg("tasks regenerated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// faultHandler makes the task endpoint fail with a fixed status (PUT) or
// clears the fault (DELETE)
func (s *Server) faultHandler(w http.ResponseWriter, r *http.Request) {
	status := 0
	if r.Method == http.MethodPut {
		var req struct {
			Status int `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Status < 400 || req.Status > 599 {
			http.Error(w, "status must be 4xx or 5xx", http.StatusBadRequest)
			return
		}
		status = req.Status
	}

	s.mu.Lock()
	s.faultStatus = status
	s.mu.Unlock()

	s.logger.Info().Int("status", status).Str("method", strings.ToLower(r.Method)).Msg("fault updated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// Stats returns a snapshot of the simulator counters
func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Tasks:       len(s.tasks),
		Requests:    s.requests,
		Rejected:    s.rejected,
		FaultStatus: s.faultStatus,
		GeneratedAt: s.generatedAt,
	}
}

// Start runs the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down CRM simulator")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("CRM simulator started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
