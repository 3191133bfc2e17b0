// Package ops exposes the read-only operator surface: health, metrics, the
// latest decision, and a live event stream. It replaces the write-side-free
// part of a dashboard; nothing here can place or cancel orders.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/openrange/orbbot/internal/events"
	"github.com/openrange/orbbot/internal/observ"
	"github.com/openrange/orbbot/internal/strategy"
)

type Server struct {
	addr string
	ctrl *strategy.Controller
	hub  *events.SSEHub
	http *http.Server
}

func NewServer(addr string, ctrl *strategy.Controller, hub *events.SSEHub) *Server {
	s := &Server{addr: addr, ctrl: ctrl, hub: hub}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observ.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	if hub != nil {
		r.Handle("/events", hub).Methods(http.MethodGet)
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	observ.Log("ops_server_started", map[string]any{"addr": s.addr})
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	res := s.ctrl.LastResult()
	w.Header().Set("Content-Type", "application/json")
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}
