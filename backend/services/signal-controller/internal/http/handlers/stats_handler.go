package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/service"
)

// NewStatsHandler handles GET /stats?since=<RFC3339>, counting audited decisions per reason.
func NewStatsHandler(controller *service.ControllerService, logger *zap.Logger) http.HandlerFunc {
	type response struct {
		IntersectionID string           `json:"intersection_id"`
		Since          *time.Time       `json:"since,omitempty"`
		Reasons        map[string]int64 `json:"reasons"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
				return
			}
			since = parsed
		}

		reasons, err := controller.DecisionStats(r.Context(), since)
		if err != nil {
			if errors.Is(err, service.ErrHistoryDisabled) {
				writeError(w, http.StatusNotFound, "decision history is not configured")
				return
			}
			logger.Error("failed to load decision stats", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load decision stats")
			return
		}

		resp := response{IntersectionID: controller.IntersectionID(), Reasons: reasons}
		if !since.IsZero() {
			resp.Since = &since
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
