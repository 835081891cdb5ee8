// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/racetime/internal/app"
	"github.com/okian/racetime/internal/domain/correction"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
	"github.com/okian/racetime/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	ReadDependencies
	ResultDependencies
	CorrectionDependencies
}

// ReadDependencies covers ingestion of reads and rosters.
type ReadDependencies interface {
	// SubmitRead queues a read. Returns service.ErrBackpressure when the queue is full.
	SubmitRead(ctx context.Context, race string, in service.ReadInput) (service.ReadStatus, error)
	ImportRoster(ctx context.Context, race string, participants []model.Participant) (int, error)
}

// ResultDependencies exposes race listings and computed results.
type ResultDependencies interface {
	Races(ctx context.Context) ([]model.RaceSummary, error)
	RaceResults(ctx context.Context, race string) (results.Report, error)
	CategoryResults(ctx context.Context, race string) ([]results.CategoryReport, error)
	ParticipantResult(ctx context.Context, race, tag string) (results.Ranked, error)
}

// CorrectionDependencies applies and lists manual corrections.
type CorrectionDependencies interface {
	CorrectTimings(ctx context.Context, race string, in correction.TimingInput) error
	Retag(ctx context.Context, race, oldTag string, in correction.RetagInput) error
	Corrections(ctx context.Context, race string) ([]model.Correction, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	readsHandler      *ReadsHandler
	resultsHandler    *ResultsHandler
	correctionHandler *CorrectionsHandler
	logger            logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		readsHandler:      NewReadsHandler(deps),
		resultsHandler:    NewResultsHandler(deps),
		correctionHandler: NewCorrectionsHandler(deps),
		logger:            logger.Get().Named("http"),
	}
}

// Router returns a chi router with the common middleware stack applied.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	s.Register(ctx, r)
	return r
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/races", s.resultsHandler.HandleListRaces)

	r.Route("/races/{race}", func(r chi.Router) {
		r.Post("/reads", s.readsHandler.HandlePostRead)
		r.Put("/roster", s.readsHandler.HandlePutRoster)

		r.Get("/results", s.resultsHandler.HandleRaceResults)
		r.Get("/results/categories", s.resultsHandler.HandleCategoryResults)
		r.Get("/results/{tag}", s.resultsHandler.HandleParticipantResult)

		r.Get("/corrections", s.correctionHandler.HandleListCorrections)
		r.Post("/corrections/timings", s.correctionHandler.HandlePostTimings)
		r.Post("/participants/{tag}/retag", s.correctionHandler.HandleRetag)
	})
}

// raceParam returns the {race} path parameter.
func raceParam(r *http.Request) string {
	return chi.URLParam(r, "race")
}
