package handlers

import (
	"net/http"

	"trafficsignal/backend/services/signal-controller/internal/service"
)

// NewPedestrianHandler handles POST /pedestrian. A rejected request is still a 200.
func NewPedestrianHandler(controller *service.ControllerService) http.HandlerFunc {
	type response struct {
		Accepted bool `json:"accepted"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{Accepted: controller.RequestPedestrian(r.Context())})
	}
}
