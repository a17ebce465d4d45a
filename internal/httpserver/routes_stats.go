// internal/httpserver/routes_stats.go
//
// GET /api/stats: aggregate progress from the ledger (runs, completions,
// solves per stage, fastest completions). Reports {"enabled":false} when the
// server runs without a ledger.

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/treasurehunt/internal/ledger"
)

const maxStatsLimit = 50

// statsRes is returned by /api/stats.
type statsRes struct {
	Enabled     bool `json:"enabled"`
	TotalStages int  `json:"totalStages"`
	*ledger.Stats
}

// handleStats returns ledger aggregates; ?limit= bounds the fastest list.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total := s.hunt.TotalStages()
	if s.stats == nil {
		writeJSON(w, http.StatusOK, statsRes{Enabled: false, TotalStages: total})
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, msgBadRequest)
			return
		}
		limit = min(n, maxStatsLimit)
	}
	st, err := s.stats.Stats(r.Context(), total, limit)
	if err != nil {
		log.Error().Err(err).Msg("ledger stats")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, statsRes{Enabled: true, TotalStages: total, Stats: &st})
}
