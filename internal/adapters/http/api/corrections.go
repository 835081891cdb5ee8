package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/racetime/internal/domain/correction"
)

// CorrectionsHandler applies timing fixes and re-tags.
type CorrectionsHandler struct {
	deps CorrectionDependencies
}

// NewCorrectionsHandler creates a new corrections handler.
func NewCorrectionsHandler(deps CorrectionDependencies) *CorrectionsHandler {
	return &CorrectionsHandler{deps: deps}
}

// HandlePostTimings handles POST /races/{race}/corrections/timings.
func (h *CorrectionsHandler) HandlePostTimings(w http.ResponseWriter, r *http.Request) {
	const op = "api.correct_timings"
	var req correction.TimingInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.CorrectTimings(r.Context(), raceParam(r), req); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "corrected"})
}

// HandleRetag handles POST /races/{race}/participants/{tag}/retag.
func (h *CorrectionsHandler) HandleRetag(w http.ResponseWriter, r *http.Request) {
	const op = "api.retag"
	var req correction.RetagInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Retag(r.Context(), raceParam(r), chi.URLParam(r, "tag"), req); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "retagged"})
}

// HandleListCorrections handles GET /races/{race}/corrections.
func (h *CorrectionsHandler) HandleListCorrections(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_corrections"
	audit, err := h.deps.Corrections(r.Context(), raceParam(r))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out := make([]correctionResponse, len(audit))
	for i, c := range audit {
		out[i] = correctionResponse{
			ID:        c.ID,
			Kind:      string(c.Kind),
			TagID:     c.TagID.String(),
			Detail:    c.Detail,
			AppliedAt: c.AppliedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
