// Package server exposes the analysis engine over HTTP: summary
// statistics, null-model simulation, envelope tests and the run
// history.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/internal/pointio"
	"github.com/mlange-42/ppa/internal/store"
	"github.com/mlange-42/ppa/pkg/edge"
	"github.com/mlange-42/ppa/pkg/envelope"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
	"github.com/mlange-42/ppa/pkg/sim"
)

// Server handles analysis requests. The store is optional; without it
// the runs endpoint reports 404 and nothing is recorded.
type Server struct {
	store *store.SQLiteStore
	log   *zap.Logger
}

// New creates a server. store may be nil.
func New(st *store.SQLiteStore) *Server {
	return &Server{
		store: st,
		log:   zap.L().With(zap.String("component", "server")),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/stats", s.handleStats)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/envelope", s.handleEnvelope)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsRequest computes one summary statistic for a supplied pattern.
type statsRequest struct {
	Window     pointio.WindowSpec `json:"window"`
	Points     [][]float64        `json:"points"`
	Statistic  string             `json:"statistic"`
	Correction string             `json:"correction"`
	Radii      []float64          `json:"radii,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pat, err := buildPattern(req.Window, req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stat, err := envelope.ParseStatistic(req.Statistic)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	corr, err := parseCorrection(req.Correction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	curve, err := stat.Compute(pat, req.Radii, corr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.record(r, store.Run{
		Command:   "stats",
		Statistic: stat.String(),
		Params:    map[string]any{"correction": corr.String(), "n": pat.Len()},
	})
	writeJSON(w, http.StatusOK, curve)
}

// simulateRequest draws one realization of a null model.
type simulateRequest struct {
	Window  pointio.WindowSpec  `json:"window"`
	Process pointio.ProcessSpec `json:"process"`
	Seed    uint64              `json:"seed"`
}

type simulateResponse struct {
	N      int         `json:"n"`
	Points [][]float64 `json:"points"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, err := req.Window.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proc, err := req.Process.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pat, err := sim.Simulate(window, proc, req.Seed)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := simulateResponse{N: pat.Len(), Points: make([][]float64, pat.Len())}
	for i := 0; i < pat.Len(); i++ {
		p := pat.At(i)
		resp.Points[i] = []float64{p.X, p.Y}
	}

	s.record(r, store.Run{
		Command: "simulate",
		Process: proc.String(),
		Summary: map[string]any{"n": pat.Len(), "seed": req.Seed},
	})
	writeJSON(w, http.StatusOK, resp)
}

// envelopeRequest runs a Monte Carlo envelope test for a supplied
// pattern against a null model.
type envelopeRequest struct {
	Window     pointio.WindowSpec  `json:"window"`
	Points     [][]float64         `json:"points"`
	Process    pointio.ProcessSpec `json:"process"`
	Statistic  string              `json:"statistic"`
	Correction string              `json:"correction"`
	NSim       int                 `json:"n_sim"`
	Alpha      float64             `json:"alpha"`
	Global     bool                `json:"global"`
	Seed       uint64              `json:"seed"`
	Radii      []float64           `json:"radii,omitempty"`
}

func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	var req envelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pat, err := buildPattern(req.Window, req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proc, err := req.Process.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stat, err := envelope.ParseStatistic(req.Statistic)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	corr, err := parseCorrection(req.Correction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := envelope.Options{
		NSim:       req.NSim,
		Alpha:      req.Alpha,
		Global:     req.Global,
		Seed:       req.Seed,
		Correction: corr,
		Radii:      req.Radii,
	}
	env, err := envelope.Test(r.Context(), pat, stat, proc, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.record(r, store.Run{
		Command:   "envelope",
		Statistic: stat.String(),
		Process:   proc.String(),
		Params:    map[string]any{"n_sim": env.NSim, "alpha": env.Alpha, "global": req.Global},
		Summary:   map[string]any{"p_value": env.PValue},
	})
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history not configured")
		return
	}
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		Command:   r.URL.Query().Get("command"),
		Statistic: r.URL.Query().Get("statistic"),
	})
	if err != nil {
		s.log.Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history not configured")
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// record persists a run when a store is configured. Failures are
// logged, not surfaced; recording must not fail the analysis.
func (s *Server) record(r *http.Request, run store.Run) {
	if s.store == nil {
		return
	}
	if _, err := s.store.RecordRun(r.Context(), run); err != nil {
		s.log.Error("record run", zap.String("command", run.Command), zap.Error(err))
	}
}

func buildPattern(spec pointio.WindowSpec, coords [][]float64) (*pattern.Pattern, error) {
	window, err := spec.Build()
	if err != nil {
		return nil, err
	}
	points := make([]geom.Point, len(coords))
	for i, c := range coords {
		if len(c) != 2 {
			return nil, pattern.ErrPointOutsideWindow
		}
		points[i] = geom.Point{X: c[0], Y: c[1]}
	}
	return pattern.New(points, window)
}

func parseCorrection(name string) (edge.Correction, error) {
	if name == "" {
		return edge.Isotropic, nil
	}
	return edge.Parse(name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
