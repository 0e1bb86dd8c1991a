// Package api exposes the HTTP surface of LeadLine: the inbound SMS webhook,
// the outreach trigger, the follow-up sweep, and a health check.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CornerstoneRE/LeadLine/internal/followup"
	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/outreach"
	"github.com/CornerstoneRE/LeadLine/internal/processor"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Server wires the HTTP handlers to the domain components.
type Server struct {
	processor *processor.Processor
	outreach  *outreach.Handler
	followups *followup.Runner
	msg       messaging.Service

	// ignoredSenders holds phone numbers whose inbound events are
	// acknowledged without processing: the sending number (echoes) and the
	// agent's number.
	ignoredSenders []string

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(addr string, proc *processor.Processor, out *outreach.Handler, runner *followup.Runner, msg messaging.Service, ignoredSenders []string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		processor:      proc,
		outreach:       out,
		followups:      runner,
		msg:            msg,
		ignoredSenders: ignoredSenders,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/outreach", s.outreachHandler)
	mux.HandleFunc("/followups/run", s.followupsRunHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/", s.notFoundHandler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	slog.Info("Server.Start: API listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Server.Shutdown: stopping API")
	return s.httpServer.Shutdown(ctx)
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		slog.Debug("Server: request received",
			"request_id", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
