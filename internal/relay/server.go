// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the relay HTTP server.
type Server struct {
	provider provider.Provider
	persona  atomic.Pointer[persona.Persona]
	cfg      config.ServerConfig
	log      *log.Logger
	mux      *http.ServeMux

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a relay over p. A nil persona uses the embedded default.
func New(p provider.Provider, ps *persona.Persona, cfg config.ServerConfig) *Server {
	if ps == nil {
		ps = persona.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	s := &Server{
		provider: p,
		cfg:      cfg,
		log:      logging.For("relay"),
		mux:      http.NewServeMux(),
	}
	s.persona.Store(ps)
	s.setupRoutes()
	return s
}

// WithLogger replaces the server logger.
func (s *Server) WithLogger(l *log.Logger) *Server {
	s.log = l
	return s
}

// Persona returns the persona new requests will use.
func (s *Server) Persona() *persona.Persona {
	return s.persona.Load()
}

// SetPersona swaps the persona. In-flight requests keep the one they
// started with.
func (s *Server) SetPersona(p *persona.Persona) {
	if p == nil {
		return
	}
	s.persona.Store(p)
	s.log.Info("persona updated", "name", p.Name)
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.log),
		RequestIDMiddleware(),
		LoggingMiddleware(s.log),
		CORSMiddleware(s.cfg.CORSOrigins),
	)(s.mux)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	logger := s.log.With("request_id", RequestID(r.Context()))

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgBodyTooLarge})
			return
		}
		logger.Debug("undecodable body", "err", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidRequest})
		return
	}

	if err := req.Validate(); err != nil {
		logger.Debug("rejected request", "err", err)
		msg := msgInvalidConversation
		if errors.Is(err, ErrMessageRequired) {
			msg = msgMessageRequired
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	preq := provider.Request{System: s.Persona().Prompt, Turns: req.Turns()}

	if wantsStream(r, &req) {
		s.stream(w, r, preq, wantsEvents(r), logger)
		return
	}

	c, err := s.provider.Complete(r.Context(), preq)
	if err != nil {
		logger.Error("completion failed", "provider", s.provider.Name(), "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgGenerateFailed})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: c.Text, Usage: c.Usage})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, preq provider.Request, events bool, logger *log.Logger) {
	sw, err := newStreamWriter(w, events)
	if err != nil {
		logger.Error("streaming unavailable", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgGenerateFailed})
		return
	}

	ctx := r.Context()
	stop := sw.keepAlive(s.cfg.KeepAlive(), logger)
	defer stop()

	usage, err := s.provider.Stream(ctx, preq, sw.WriteFragment)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("client went away", "err", ctx.Err())
			return
		}
		logger.Error("stream failed", "provider", s.provider.Name(), "err", err)
		if !sw.Reject(http.StatusInternalServerError, msgGenerateFailed) {
			_ = sw.Fail()
		}
		return
	}
	if err := sw.Done(usage); err != nil {
		logger.Debug("closing stream", "err", err)
	}
}

// HealthResponse is the GET /healthz body.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Persona  string `json:"persona"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Provider: s.provider.Name(),
		Persona:  s.Persona().Name,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// shutdownGrace bounds the drain when Start's context ends.
const shutdownGrace = 10 * time.Second

// Start listens on the configured address and serves until ctx ends or
// Shutdown is called. It then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = config.DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for up to shutdownGrace.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout(),
		IdleTimeout: s.cfg.IdleTimeout(),
		// Streams stay open as long as the upstream keeps talking.
		WriteTimeout: 0,
	}

	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		case <-stopped:
		}
	}()

	s.log.Info("relay listening", "addr", ln.Addr().String(), "provider", s.provider.Name())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once Start is listening, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("relay shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
