package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/service"
)

// NewStatusHandler handles GET /data: one decision round per request.
func NewStatusHandler(controller *service.ControllerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := controller.Status(r.Context())
		if err != nil {
			logger.Error("failed to decide signals", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to decide signals")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
