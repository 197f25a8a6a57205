// Package devserver is an in-memory simulator of the threadrun service,
// used by the examples, the CLI's serve command, and the end-to-end tests.
// It implements the subset of the API the SDK talks to: environments,
// threads, streamed messages, schedules, and the environment watch feed.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
)

// Event mirrors the wire shape of one stream event.
type Event struct {
	Type    string                 `json:"type"`
	Item    map[string]interface{} `json:"item,omitempty"`
	Content string                 `json:"content,omitempty"`
	RunID   string                 `json:"runId,omitempty"`
	Status  string                 `json:"status,omitempty"`
	Usage   map[string]int         `json:"usage,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Script produces the event sequence streamed back for one message.
type Script func(threadID, content string) []Event

// EchoScript is the default script: a text item echoing the task, a final
// response, and a completion record with fabricated token counts.
func EchoScript(threadID, content string) []Event {
	reply := "done: " + content
	return []Event{
		{Type: "response.started"},
		{Type: "response.item.completed", Item: map[string]interface{}{"type": "text", "text": reply}},
		{Type: "response.completed", Content: reply},
		{
			Type:   "stream.completed",
			RunID:  uuid.NewString(),
			Status: "completed",
			Usage:  map[string]int{"input": len(content), "output": len(reply)},
		},
	}
}

type environment struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	IsDefault      bool      `json:"isDefault"`
	InternetAccess bool      `json:"internetAccess"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type thread struct {
	ID            string    `json:"id"`
	EnvironmentID string    `json:"environmentId"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type schedule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Cron      string     `json:"cron"`
	Task      string     `json:"task"`
	Enabled   bool       `json:"enabled"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
}

// Server holds the simulator state behind a mux router.
type Server struct {
	mu           sync.Mutex
	environments map[string]*environment
	threads      map[string]*thread
	schedules    map[string]*schedule

	script   Script
	apiKey   string
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// Option customizes a Server.
type Option func(*Server)

// WithScript replaces the default echo script.
func WithScript(script Script) Option {
	return func(s *Server) { s.script = script }
}

// WithAPIKey makes the server reject requests without the given bearer key.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a simulator with empty state.
func New(opts ...Option) *Server {
	s := &Server{
		environments: make(map[string]*environment),
		threads:      make(map[string]*thread),
		schedules:    make(map[string]*schedule),
		script:       EchoScript,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving the simulated API.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.authMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/environments", s.handleListEnvironments).Methods("GET")
	api.HandleFunc("/environments", s.handleCreateEnvironment).Methods("POST")
	api.HandleFunc("/environments/{id}", s.handleGetEnvironment).Methods("GET")
	api.HandleFunc("/environments/{id}", s.handleDeleteEnvironment).Methods("DELETE")
	api.HandleFunc("/environments/{id}/watch", s.handleWatchEnvironment).Methods("GET")
	api.HandleFunc("/threads", s.handleCreateThread).Methods("POST")
	api.HandleFunc("/threads", s.handleListThreads).Methods("GET")
	api.HandleFunc("/threads/{id}", s.handleGetThread).Methods("GET")
	api.HandleFunc("/threads/{id}/messages", s.handleSendMessage).Methods("POST")
	api.HandleFunc("/schedules", s.handleListSchedules).Methods("GET")
	api.HandleFunc("/schedules", s.handleCreateSchedule).Methods("POST")
	api.HandleFunc("/schedules/{id}", s.handleDeleteSchedule).Methods("DELETE")

	return router
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEnvironments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	envs := make([]*environment, 0, len(s.environments))
	for _, env := range s.environments {
		envs = append(envs, env)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handleCreateEnvironment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		IsDefault      bool   `json:"isDefault"`
		InternetAccess bool   `json:"internetAccess"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid environment payload")
		return
	}

	env := &environment{
		ID:             uuid.NewString(),
		Name:           req.Name,
		IsDefault:      req.IsDefault,
		InternetAccess: req.InternetAccess,
		Status:         "ready",
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.environments[env.ID] = env
	s.mu.Unlock()

	s.logger.Info("environment created", "id", env.ID, "name", env.Name)
	writeJSON(w, http.StatusCreated, env)
}

func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	env, ok := s.environments[mux.Vars(r)["id"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "environment not found")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleDeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.environments, mux.Vars(r)["id"])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleWatchEnvironment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.environments[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "environment not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// A short canned lifecycle, then a clean close.
	for _, status := range []string{"provisioning", "ready"} {
		update := map[string]interface{}{"id": id, "status": status, "at": time.Now().UTC()}
		if err := conn.WriteJSON(update); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EnvironmentID string `json:"environmentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid thread payload")
		return
	}

	s.mu.Lock()
	_, ok := s.environments[req.EnvironmentID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "environment not found")
		return
	}

	th := &thread{
		ID:            uuid.NewString(),
		EnvironmentID: req.EnvironmentID,
		Status:        "idle",
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.threads[th.ID] = th
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, th)
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	threads := make([]*thread, 0, len(s.threads))
	for _, th := range s.threads {
		threads = append(threads, th)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, threads)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	th, ok := s.threads[mux.Vars(r)["id"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.threads[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "thread not found")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid message payload")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, event := range s.script(id, req.Content) {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	schedules := make([]*schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		schedules = append(schedules, sched)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Cron    string `json:"cron"`
		Task    string `json:"task"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid schedule payload")
		return
	}

	parsed, err := cron.ParseStandard(req.Cron)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_CRON", fmt.Sprintf("invalid cron expression: %v", err))
		return
	}

	next := parsed.Next(time.Now().UTC())
	sched := &schedule{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Cron:      req.Cron,
		Task:      req.Task,
		Enabled:   req.Enabled,
		NextRunAt: &next,
	}

	s.mu.Lock()
	s.schedules[sched.ID] = sched
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.schedules, mux.Vars(r)["id"])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   message,
		"message": message,
		"code":    code,
	})
}
