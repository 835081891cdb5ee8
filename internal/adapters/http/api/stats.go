package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports service state for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the provider's stats plus the API uptime.
type StatsHandler struct {
	statsProvider StatsProvider
	since         time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, since: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{"uptime_seconds": int64(time.Since(h.since).Seconds())}
	maps.Copy(out, h.statsProvider.GetStats())
	writeJSON(w, http.StatusOK, out)
}
