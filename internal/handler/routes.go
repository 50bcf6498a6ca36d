package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/auth"
)

// NewRouter builds the HTTP API.
func NewRouter(h *BookingHandler, issuer *auth.Issuer, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(issuer, log))
		hostOnly := RequireRole(auth.RoleHost)
		customerOnly := RequireRole(auth.RoleCustomer)

		r.Route("/experiences", func(r chi.Router) {
			r.With(hostOnly).Post("/", h.CreateExperience)
			r.Get("/{id}", h.GetExperience)
			r.With(hostOnly).Post("/{id}/slots", h.CreateSlots)
			r.Get("/{id}/availability", h.Availability)
			r.With(customerOnly).Post("/{id}/bookings", h.CreateBooking)
			r.With(hostOnly).Get("/{id}/bookings", h.ListExperienceBookings)
		})

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Get("/", h.GetBooking)
			r.Get("/ticket", h.Ticket)
			r.Post("/cancel", h.CancelBooking)
			r.With(hostOnly).Post("/confirm", h.ConfirmBooking)
			r.Post("/reschedule", h.RescheduleBooking)
		})

		r.With(customerOnly).Get("/me/bookings", h.ListMyBookings)
		r.With(hostOnly).Get("/host/bookings", h.ListHostBookings)
	})

	return r
}
