package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/subagg/resin/internal/netutil"
)

// Config bundles everything NewServer needs to wire the facade's routes.
type Config struct {
	ListenAddress   string
	Port            int
	APIMaxBodyBytes int64

	OutputDir string
	DataDir   string

	Environment string
	AdminToken  string
	StartedAt   time.Time
	StaleAfter  time.Duration

	GHProxyDownloader netutil.Downloader
	ShortcutRepoSlug  string // e.g. "someuser/somerepo"; empty disables shortcut routes
}

// Server wraps the HTTP server and mux for the facade.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer wires every route of the HTTP surface.
func NewServer(cfg Config) *Server {
	mux := http.NewServeMux()

	mux.Handle("GET /groups/{name}", HandleGroup(cfg.OutputDir))
	mux.Handle("GET /mihomo", HandleClientConfig(cfg.OutputDir, "mihomo.yaml"))
	mux.Handle("GET /clash", HandleClientConfig(cfg.OutputDir, "clash.yaml"))
	mux.Handle("GET /surge", HandleClientConfig(cfg.OutputDir, "surge.conf"))
	mux.Handle("GET /singbox", HandleClientConfig(cfg.OutputDir, "singbox.json"))
	mux.Handle("GET /v2ray", HandleClientConfig(cfg.OutputDir, "v2ray.json"))

	mux.Handle("GET /api/status", HandleStatus(cfg.Environment, cfg.AdminToken, cfg.StartedAt))
	mux.Handle("GET /api/health", HandleHealth(cfg.OutputDir, cfg.DataDir, cfg.StaleAfter))

	if cfg.GHProxyDownloader != nil {
		mux.Handle("GET /gh-proxy/", HandleGHProxy(cfg.GHProxyDownloader))
	}

	if cfg.ShortcutRepoSlug != "" {
		for _, name := range ShortcutGroups {
			mux.Handle("GET /"+name, HandleShortcut(cfg.ShortcutRepoSlug, name))
		}
	}

	limited := RequestBodyLimitMiddleware(cfg.APIMaxBodyBytes, mux)
	handler := CORSMiddleware(limited)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port),
		Handler: handler,
	}

	return &Server{httpServer: srv, mux: mux}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
