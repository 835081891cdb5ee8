package api

import (
	"errors"
	"net/http"

	service "github.com/okian/racetime/internal/app"
	"github.com/okian/racetime/internal/domain/model"
)

// ReadsHandler handles checkpoint reads and roster imports.
type ReadsHandler struct {
	deps ReadDependencies
}

// NewReadsHandler creates a new reads handler.
func NewReadsHandler(deps ReadDependencies) *ReadsHandler {
	return &ReadsHandler{deps: deps}
}

// HandlePostRead handles POST /races/{race}/reads.
func (h *ReadsHandler) HandlePostRead(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_read"
	var req readRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.deps.SubmitRead(r.Context(), raceParam(r), service.ReadInput{
		Reader: req.Reader,
		TagID:  req.TagID,
		Date:   req.Date,
		Time:   req.Time,
	})
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, WrapKind(op, ErrBackpressure, err))
	case err != nil:
		writeError(w, Wrap(op, err))
	case status == service.ReadDuplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: string(status), Duplicate: true})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: string(status)})
	}
}

// HandlePutRoster handles PUT /races/{race}/roster.
func (h *ReadsHandler) HandlePutRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_roster"
	var req rosterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Participants) == 0 {
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("participants must not be empty")))
		return
	}

	participants := make([]model.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = p.model()
	}
	n, err := h.deps.ImportRoster(r.Context(), raceParam(r), participants)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{Imported: n})
}
