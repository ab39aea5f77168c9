// Package server exposes graph materialization over HTTP.
//
// Routes:
//
//	GET  /healthz                 liveness and build version
//	GET  /v1/types                declared model types
//	POST /v1/materialize          JSON:API document in, graph out
//
// The materialize endpoint accepts these query parameters:
//
//   - type: model type for the primary data (default: looked up per document)
//   - skip_undeclared: skip relationships the schema does not declare
//   - format: json (default), dot or svg
//
// Errors are returned as JSON:API error documents with a status derived
// from the error code.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/apigraph/pkg/buildinfo"
	"github.com/matzehuels/apigraph/pkg/cache"
	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/model"
	"github.com/matzehuels/apigraph/pkg/observability"
	"github.com/matzehuels/apigraph/pkg/render"
	"github.com/matzehuels/apigraph/pkg/response"
)

const (
	// defaultMaxBodySize bounds an uploaded document.
	defaultMaxBodySize = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// Server materializes posted JSON:API documents.
type Server struct {
	schema         *model.Schema
	router         chi.Router
	logger         *log.Logger
	cache          cache.Cache
	keyer          cache.Keyer
	ttl            time.Duration
	schemaHash     string
	skipUndeclared bool
	maxBody        int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache caches materialized graphs in c for ttl.
// schemaHash identifies the schema the graphs were built with.
func WithCache(c cache.Cache, ttl time.Duration, schemaHash string) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
			s.ttl = ttl
			s.schemaHash = schemaHash
		}
	}
}

// WithKeyer sets the cache key builder.
func WithKeyer(k cache.Keyer) Option {
	return func(s *Server) {
		if k != nil {
			s.keyer = k
		}
	}
}

// WithSkipUndeclared skips undeclared relationships unless a request says
// otherwise.
func WithSkipUndeclared() Option {
	return func(s *Server) { s.skipUndeclared = true }
}

// WithMaxBodySize limits uploaded documents to n bytes. Larger bodies are
// rejected with 413.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a Server that resolves model types through schema.
func New(schema *model.Schema, opts ...Option) *Server {
	s := &Server{
		schema:  schema,
		logger:  log.New(io.Discard),
		cache:   cache.NewNullCache(),
		keyer:   cache.NewDefaultKeyer(),
		maxBody: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLog(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "method %s not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/types", s.handleTypes)
		r.Post("/materialize", s.handleMaterialize)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", map[string]any{
		"types": s.schema.Types(),
		"open":  s.schema.Open(),
	})
}

// Result is the JSON body returned by the materialize endpoint.
type Result struct {
	Kind  string      `json:"kind"`
	Stats graph.Stats `json:"stats"`
	Graph graph.Graph `json:"graph"`
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != render.FormatDOT && format != render.FormatSVG {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json, dot or svg)", format))
		return
	}
	skip := s.skipUndeclared
	if v := q.Get("skip_undeclared"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "skip_undeclared: %q is not a boolean", v))
			return
		}
		skip = b
	}

	var typ *model.Type
	if name := q.Get("type"); name != "" {
		t, ok := s.schema.Lookup(name)
		if !ok {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown model type %q", name))
			return
		}
		typ = t
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		code := errors.ErrCodeInvalidInput
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			code = errors.ErrCodeTooLarge
		}
		writeError(w, errors.Wrap(code, err, "read request body"))
		return
	}

	res, err := s.materialize(r.Context(), raw, q.Get("type"), typ, skip)
	if err != nil {
		s.logger.Debug("materialize failed", "request_id", RequestIDFrom(r.Context()), "err", err)
		writeError(w, err)
		return
	}

	switch format {
	case "json":
		writeJSON(w, http.StatusOK, "application/json", res)
	default:
		out, err := render.Render(r.Context(), render.ToDOT(res.Graph, render.Options{}), format)
		if err != nil {
			writeError(w, err)
			return
		}
		ct := "text/vnd.graphviz"
		if format == render.FormatSVG {
			ct = "image/svg+xml"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	}
}

// materialize builds the graph for raw, consulting the cache first.
func (s *Server) materialize(ctx context.Context, raw []byte, typeName string, typ *model.Type, skip bool) (*Result, error) {
	key := s.keyer.GraphKey(cache.Hash(raw), cache.GraphKeyOpts{
		Type:           typeName,
		SkipUndeclared: skip,
		SchemaHash:     s.schemaHash,
	})

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache read failed", "err", err)
	} else if ok {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			observability.Cache().OnCacheHit(ctx, "graph")
			return &res, nil
		}
		s.logger.Warn("discarding corrupt cache entry", "key", key)
	}
	observability.Cache().OnCacheMiss(ctx, "graph")

	opts := []response.Option{response.WithLogger(s.logger), response.WithRegistry(s.schema)}
	if skip {
		opts = append(opts, response.WithSkipUndeclared())
	}
	resp, err := response.Decode(raw, typ, opts...)
	if err != nil {
		return nil, err
	}
	res := &Result{Kind: resp.Kind(), Stats: resp.Stats(), Graph: resp.Graph()}

	if data, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}
	return res, nil
}
