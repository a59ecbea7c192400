package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"mailscheduler/internal/delivery/http/controllers"
	"mailscheduler/internal/delivery/http/middleware"
	"mailscheduler/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// verifier may be nil, which disables bearer-token auth on the event routes.
func NewRouter(
	eventController *controllers.EventController,
	dispatchController *controllers.DispatchController,
	verifier domain.TokenVerifier,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// API Routes
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events", auth(eventController.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(eventController.GetEvent))
	mux.HandleFunc("PUT /events/{eventID}", auth(eventController.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.DeleteEvent))

	// Dispatch trigger for external cron setups
	mux.HandleFunc("POST /dispatch/run", dispatchController.RunDispatch)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
