package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/chat"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Asker answers handbook questions. *chat.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*chat.Answer, error)
	AskEnhanced(ctx context.Context, sessionID, question string) (*chat.Answer, error)
	ClearContext(sessionID string)
}

// Server exposes the question-answering service over HTTP.
type Server struct {
	cfg        Config
	svc        Asker
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server around the chat service. A nil logger disables logging.
func New(cfg Config, svc Asker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{cfg: cfg, svc: svc, logger: logger}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	corsOpts := cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(corsOpts.AllowedOrigins) == 0 {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Post("/ask", s.handleAsk(false))
	r.Post("/ask-enhanced", s.handleAsk(true))
	r.Post("/clear-context", s.handleClearContext)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAsk(enhanced bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sessionID := s.sessionID(r, req.SessionID)

		var (
			answer *chat.Answer
			err    error
		)
		if enhanced {
			answer, err = s.svc.AskEnhanced(r.Context(), sessionID, req.Question)
		} else {
			answer, err = s.svc.Ask(r.Context(), sessionID, req.Question)
		}
		if err != nil {
			s.writeAskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

func (s *Server) handleClearContext(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	// An empty body clears the header-identified session.
	_ = json.NewDecoder(r.Body).Decode(&req)
	sessionID := s.sessionID(r, req.SessionID)
	s.svc.ClearContext(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Conversation context cleared",
		"session_id": sessionID,
	})
}

// sessionID resolves the caller's session: body field, then X-Session-ID
// header, then a fresh uuid.
func (s *Server) sessionID(r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get("X-Session-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "question must not be empty")
	case errors.Is(err, chat.ErrUnavailable):
		s.logger.Warn("answering unavailable",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "answering is temporarily unavailable, please retry")
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
