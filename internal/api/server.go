// Package api serves designs and the geometry tools over HTTP.
//
// The router is built on chi. Designs live in a [design.Registry]; when a
// [design.Store] is configured every change is persisted and designs that
// are not open are restored from the store on first access, so several
// server instances can share a Redis or MongoDB store.
//
// Errors are returned as JSON:
//
//	{"error": {"code": "DESIGN_NOT_FOUND", "message": "design chip not found"}}
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/qlayout/pkg/airbridge"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/pipeline"
)

// Options configures a [Server]. Zero values fall back to defaults.
type Options struct {
	Registry *design.Registry
	// Store persists designs. Nil keeps them in memory only.
	Store   design.Store
	Runner  *pipeline.Runner
	Catalog *component.Catalog

	Bridges        airbridge.Config
	TopoSpacing    float64
	MaxUploadBytes int64

	Logger *log.Logger
}

// Server holds the shared state of the HTTP handlers.
type Server struct {
	registry    *design.Registry
	store       design.Store
	runner      *pipeline.Runner
	catalog     *component.Catalog
	bridges     airbridge.Config
	topoSpacing float64
	maxUpload   int64
	logger      *log.Logger
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		registry:    opts.Registry,
		store:       opts.Store,
		runner:      opts.Runner,
		catalog:     opts.Catalog,
		bridges:     opts.Bridges,
		topoSpacing: opts.TopoSpacing,
		maxUpload:   opts.MaxUploadBytes,
		logger:      opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.registry == nil {
		s.registry = design.NewRegistry()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.catalog == nil {
		s.catalog = component.DefaultCatalog()
	}
	if s.bridges.Spacing == 0 {
		s.bridges = airbridge.DefaultConfig()
	}
	if s.topoSpacing == 0 {
		s.topoSpacing = 1000
	}
	if s.maxUpload == 0 {
		s.maxUpload = 64 << 20
	}
	return s
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/designs", func(r chi.Router) {
		r.Get("/", s.handleListDesigns)
		r.Post("/", s.handleCreateDesign)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetDesign)
			r.Delete("/", s.handleDeleteDesign)
			r.Post("/components/{section}", s.handleAddComponent)
			r.Delete("/components/{component}", s.handleRemoveComponent)
			r.Post("/import", s.handleImport)
			r.Post("/bridges", s.handleBridges)
			r.Get("/gds", s.handleGDS)
			r.Get("/svg", s.handleSVG)
		})
	})

	r.Post("/geometry/intersections", s.handleIntersections)
	r.Post("/geometry/bbox", s.handleBBox)
	r.Post("/topology/physical", s.handlePhysical)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
