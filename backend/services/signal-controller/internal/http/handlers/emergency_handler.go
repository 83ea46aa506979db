package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/http/middleware"
	"trafficsignal/backend/services/signal-controller/internal/service"
	"trafficsignal/backend/services/signal-controller/internal/signals"
)

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewEmergencyHandler handles POST /emergency with body {"lane": n}.
func NewEmergencyHandler(controller *service.ControllerService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Lane *int `json:"lane"`
	}
	type response struct {
		Status        string `json:"status"`
		EmergencyLane int    `json:"emergency_lane"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, statusMessage{Status: "error", Message: "invalid JSON body"})
			return
		}
		if req.Lane == nil {
			writeJSON(w, http.StatusBadRequest, statusMessage{Status: "error", Message: "lane is required"})
			return
		}

		if err := controller.SetEmergency(r.Context(), *req.Lane); err != nil {
			if errors.Is(err, signals.ErrInvalidLane) {
				writeJSON(w, http.StatusBadRequest, statusMessage{Status: "error", Message: "lane must be 0..3"})
				return
			}
			logger.Error("failed to set emergency", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to set emergency")
			return
		}

		if operator, ok := middleware.SubjectFromContext(r.Context()); ok {
			logger.Info("emergency set by operator", zap.String("operator", operator), zap.Int("lane", *req.Lane))
		}
		writeJSON(w, http.StatusOK, response{Status: "ok", EmergencyLane: *req.Lane})
	}
}

// NewClearEmergencyHandler handles POST /clear_emergency.
func NewClearEmergencyHandler(controller *service.ControllerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		controller.ClearEmergency(r.Context())
		writeJSON(w, http.StatusOK, statusMessage{Status: "cleared"})
	}
}
