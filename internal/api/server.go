package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/sitemap"
)

// Subscriber is the hub slice the WebSocket bridge needs.
type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

// ServerConfig wires the HTTP surface.
type ServerConfig struct {
	Addr     string
	Runs     *Runs
	Hub      Subscriber
	Sitemap  *sitemap.Fetcher
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Server is the chi HTTP server fronting the audit engine.
type Server struct {
	cfg    ServerConfig
	http   *http.Server
	logger *zap.Logger
}

// NewServer builds the router and server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs/{runID}/summary", s.handleRunSummary)
		r.Get("/events", s.handleEvents)
	})

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRunRequest struct {
	URLs    []string `json:"urls"`
	Sitemap string   `json:"sitemap"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	urls := req.URLs
	if len(urls) == 0 && req.Sitemap != "" {
		if s.cfg.Sitemap == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sitemap discovery not configured"})
			return
		}
		discovered, err := s.cfg.Sitemap.Discover(req.Sitemap)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		urls = discovered
	}
	runID, err := s.cfg.Runs.Launch(context.Background(), urls)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	status, ok := s.cfg.Runs.Get(runID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleEvents upgrades to WebSocket and streams hub events as JSON text
// frames. A slow or closed client simply loses its subscription; the hub
// never blocks on it.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event stream not configured"})
		return
	}
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ch, cancel := s.cfg.Hub.Subscribe()
	done := make(chan struct{})

	// Reader goroutine: its only job is to notice the peer going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			_ = conn.Close()
		}()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				if err := wsutil.WriteServerMessage(conn, ws.OpText, payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
