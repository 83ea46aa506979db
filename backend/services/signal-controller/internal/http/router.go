package httpserver

import (
	"net/http"

	"github.com/rs/cors"

	"trafficsignal/backend/services/signal-controller/internal/http/middleware"
)

// Routes aggregates handlers for HTTP server. Nil handlers are not mounted.
type Routes struct {
	Data           http.HandlerFunc
	Emergency      http.HandlerFunc
	ClearEmergency http.HandlerFunc
	Pedestrian     http.HandlerFunc
	Stats          http.HandlerFunc
	Login          http.HandlerFunc
	Health         http.HandlerFunc
	Stream         http.HandlerFunc
	Static         http.Handler
}

// NewRouter wires all HTTP routes. operator guards the emergency endpoints and may be nil when
// operator auth is disabled. Every route answers cross-origin requests.
func NewRouter(routes Routes, operator func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	guarded := func(handler http.HandlerFunc) http.Handler {
		if operator == nil {
			return handler
		}
		return middleware.Chain(handler, operator)
	}

	if routes.Data != nil {
		mux.Handle("/data", method(http.MethodGet, routes.Data))
	}
	if routes.Emergency != nil {
		mux.Handle("/emergency", method(http.MethodPost, guarded(routes.Emergency)))
	}
	if routes.ClearEmergency != nil {
		mux.Handle("/clear_emergency", method(http.MethodPost, guarded(routes.ClearEmergency)))
	}
	if routes.Pedestrian != nil {
		mux.Handle("/pedestrian", method(http.MethodPost, routes.Pedestrian))
	}
	if routes.Stats != nil {
		mux.Handle("/stats", method(http.MethodGet, routes.Stats))
	}
	if routes.Login != nil {
		mux.Handle("/auth/login", method(http.MethodPost, routes.Login))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Stream != nil {
		mux.Handle("/ws", method(http.MethodGet, routes.Stream))
	}
	if routes.Static != nil {
		mux.Handle("/", method(http.MethodGet, routes.Static))
	}

	return middleware.Chain(cors.AllowAll().Handler(mux), middlewares...)
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
