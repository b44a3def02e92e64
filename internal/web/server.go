package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blockedby/hopii/internal/models"
)

// Config holds server configuration
type Config struct {
	Port           int
	StaticDir      string
	AllowedOrigins []string
}

// OverlayData feeds the overlay page.
type OverlayData struct {
	Title   string
	BotName string
	Limit   int
	Records []models.ChatLogRecord
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	hub        *Hub // WebSocket Hub

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new HTTP server. hub may be nil.
func NewServer(cfg *Config, hub *Hub) *Server {
	router := chi.NewRouter()

	srv := &Server{
		router: router,
		config: cfg,
		hub:    hub,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	if s.config.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	// WebSocket
	if s.hub != nil {
		s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.hub, w, r)
		})
	}

	s.router.Handle("/metrics", promhttp.Handler())

	// Health endpoint
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","version":"dev"}`)); err != nil {
			_ = err // Client disconnected
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Create listener
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	return httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer != nil {
		return httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterStatusHandler registers the pipeline status handler
func (s *Server) RegisterStatusHandler(handler interface{}) {
	type statusHandler interface {
		Status(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(statusHandler); ok {
		s.router.Get("/api/v1/status", h.Status)
	}
}

// RegisterChatLogHandler registers chat log API handlers
func (s *Server) RegisterChatLogHandler(handler interface{}) {
	type chatLogHandler interface {
		List(w http.ResponseWriter, r *http.Request)
		Stats(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(chatLogHandler); ok {
		s.router.Route("/api/v1/chatlog", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/stats", h.Stats)
		})
	}
}

// RegisterOverlayHandler registers the stream overlay page
func (s *Server) RegisterOverlayHandler(handler interface{}) {
	type overlayHandler interface {
		Overlay(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(overlayHandler); ok {
		s.router.Get("/overlay", h.Overlay)
	}
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
