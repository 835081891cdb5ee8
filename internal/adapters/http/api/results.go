package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/racetime/internal/domain/results"
)

// ResultsHandler serves race listings and leaderboards.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleListRaces handles GET /races.
func (h *ResultsHandler) HandleListRaces(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_races"
	races, err := h.deps.Races(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out := make([]raceResponse, len(races))
	for i, rc := range races {
		out[i] = raceResponse{
			ID:           rc.ID,
			Participants: rc.Participants,
			StartReads:   rc.StartReads,
			FinishReads:  rc.FinishReads,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRaceResults handles GET /races/{race}/results.
func (h *ResultsHandler) HandleRaceResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.race_results"
	race := raceParam(r)
	report, err := h.deps.RaceResults(r.Context(), race)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRaceResults(race, report))
}

// HandleCategoryResults handles GET /races/{race}/results/categories.
func (h *ResultsHandler) HandleCategoryResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.category_results"
	race := raceParam(r)
	cats, err := h.deps.CategoryResults(r.Context(), race)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toCategories(race, cats))
}

// HandleParticipantResult handles GET /races/{race}/results/{tag}.
func (h *ResultsHandler) HandleParticipantResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.participant_result"
	res, err := h.deps.ParticipantResult(r.Context(), raceParam(r), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toResults([]results.Ranked{res})[0])
}
