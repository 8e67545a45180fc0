package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// NewRouter creates the HTTP router for the booking service.
func NewRouter(handler *Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.AllowAll().Handler)

	router.Route("/api/v1/device", func(r chi.Router) {
		r.Post("/book", handler.HandleBook)
		r.Post("/return", handler.HandleReturn)
		r.Get("/{deviceID}", handler.HandleAvailability)
	})

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}
