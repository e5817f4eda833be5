// Package server exposes the task API and the backend functions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"taskly/internal/repository"
	"taskly/internal/service"
)

// Services are the dependencies the handlers call into.
type Services struct {
	Tasks           *service.TaskService
	Settings        *service.SettingsService
	Users           *repository.UserRepository
	Recommendations *repository.RecommendationRepository
	Generator       service.Regenerator
	Keys            service.KeyChecker
}

type Server struct {
	svc    Services
	secret []byte
	server *http.Server
}

func New(addr, jwtSecret string, svc Services) *Server {
	s := &Server{svc: svc, secret: []byte(jwtSecret)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /functions/v1/generate-recommendations", s.authed(s.handleGenerateRecommendations))
	mux.HandleFunc("POST /functions/v1/ai-assistant", s.authed(s.handleAIAssistant))
	mux.HandleFunc("POST /functions/v1/validate-openai-key", s.authed(s.handleValidateKey))
	mux.HandleFunc("GET /api/recommendations", s.authed(s.handleListRecommendations))
	mux.HandleFunc("GET /api/tasks", s.authed(s.handleListTasks))
	mux.HandleFunc("POST /api/tasks", s.authed(s.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/archived", s.authed(s.handleListArchived))
	mux.HandleFunc("GET /api/tasks/{id}", s.authed(s.handleGetTask))
	mux.HandleFunc("PATCH /api/tasks/{id}", s.authed(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.authed(s.handleDeleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.authed(s.handleCompleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/archive", s.authed(s.handleArchiveTask))
	mux.HandleFunc("POST /api/tasks/{id}/restore", s.authed(s.handleRestoreTask))
	mux.HandleFunc("GET /api/settings", s.authed(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.authed(s.handleUpdateSettings))
	mux.HandleFunc("GET /api/device-tokens", s.authed(s.handleListDevices))
	mux.HandleFunc("POST /api/device-tokens", s.authed(s.handleRegisterDevice))

	s.server = &http.Server{
		Addr:              addr,
		Handler:           logRequests(corsMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("[info] http api listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[info] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(started).Round(time.Millisecond))
	})
}

func writeAPIJSON(w http.ResponseWriter, data interface{}) {
	writeStatusJSON(w, http.StatusOK, data)
}

func writeStatusJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeStatusJSON(w, status, map[string]string{"error": msg})
}
