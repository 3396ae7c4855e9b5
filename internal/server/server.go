// Package server exposes the search pipeline over HTTP.
//
// Routes:
//
//	POST   /v1/search       run a search over inline CSV data
//	GET    /v1/runs         list stored runs, newest first
//	GET    /v1/runs/{id}    fetch one run
//	DELETE /v1/runs/{id}    delete one run
//	GET    /healthz         liveness
//	GET    /metrics         Prometheus metrics, when configured
//
// Requests may only carry inline data and knowledge; server-side paths
// are rejected so clients cannot read the server's filesystem.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/causeway/pkg/buildinfo"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/pipeline"
	"github.com/matzehuels/causeway/pkg/search/boss"
	"github.com/matzehuels/causeway/pkg/store"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// Defaults seeds every search request before the body is decoded.
	Defaults pipeline.Options
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server is the HTTP front end of a pipeline.Runner.
type Server struct {
	runner *pipeline.Runner
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New builds the router. The runner's Store backs the /v1/runs routes;
// without one they answer 501.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = runner.Logger
	}
	s := &Server{runner: runner, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

// SearchResponse is the body of a successful POST /v1/search.
type SearchResponse struct {
	RunID       string         `json:"run_id,omitempty"`
	DataHash    string         `json:"data_hash"`
	Variables   []string       `json:"variables"`
	Order       []string       `json:"order"`
	Score       float64        `json:"score"`
	Interrupted bool           `json:"interrupted"`
	CacheHit    bool           `json:"cache_hit"`
	Edges       int            `json:"edges"`
	CPDAG       graph.Document `json:"cpdag"`
	DAG         graph.Document `json:"dag"`
	Stats       boss.Stats     `json:"stats"`
}

func newSearchResponse(res *pipeline.Result) SearchResponse {
	return SearchResponse{
		RunID:       res.RunID,
		DataHash:    res.DataHash,
		Variables:   res.Variables,
		Order:       res.Order,
		Score:       res.Score,
		Interrupted: res.Interrupted,
		CacheHit:    res.CacheInfo.SearchHit,
		Edges:       res.Stats.Edges,
		CPDAG:       res.CPDAG.Document(),
		DAG:         res.DAG.Document(),
		Stats:       res.Search,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	opts := s.opts.Defaults
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if opts.DataPath != "" || opts.KnowledgePath != "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "data_path and knowledge_path are not accepted over HTTP"))
		return
	}
	opts.Logger = s.logger.With("request_id", middleware.GetReqID(r.Context()))

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(res))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	lo := store.ListOptions{DataHash: q.Get("data_hash")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		lo.Limit = n
	}
	runs, err := st.List(r.Context(), lo)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	run, err := st.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	if err := st.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) store(w http.ResponseWriter) (store.Store, bool) {
	if s.runner.Store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "run history is disabled"))
		return nil, false
	}
	return s.runner.Store, true
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeRunNotFound), errors.Is(err, errors.ErrCodeNotFound),
		errors.Is(err, errors.ErrCodeFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, errors.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errors.ErrCodeNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
