// Package web provides an HTTP status server for the boiler-vision daemon.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sweeney/boiler-vision/internal/logging"
	"github.com/sweeney/boiler-vision/internal/metrics"
	"github.com/sweeney/boiler-vision/internal/status"
)

// Options are the optional collaborators of a Server.
type Options struct {
	Log     *slog.Logger
	Metrics *metrics.Metrics
	// Refresh is called before each metrics scrape.
	Refresh func()
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	s := &Server{tracker: tracker}

	r := chi.NewRouter()
	if opts.Log != nil {
		r.Use(logging.RequestLogger(opts.Log))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.RequestMiddleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler(opts.Refresh))
	}
	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Get("/frame.jpg", s.handleFrame)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	_, frameAt := s.tracker.Frame()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, frameAt)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	data, at := s.tracker.Frame()
	if data == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	w.Write(data)
}
