package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shodesh/auth"
)

// NewRouter wires the HTTP surface: public browsing, account endpoints, and
// the role-gated admin and staff review interfaces.
func NewRouter(h *Handlers, verifier TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/login", h.LoginHandler)

	r.Get("/events", h.ListEventsHandler)
	r.Get("/events/{eventID}", h.GetEventHandler)
	r.Get("/events/{eventID}/donations", h.ListDonationsHandler)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.Get("/me", h.MeHandler)
		r.Post("/events", h.SubmitEventHandler)
		r.Post("/events/{eventID}/donations", h.DonateHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin))

			r.Get("/events", h.ListEventsHandler)
			r.Get("/events/{eventID}", h.GetEventHandler)
			r.Post("/events/{eventID}/approve", h.AdminApproveHandler)
			r.Post("/events/{eventID}/reject", h.AdminRejectHandler)
			r.Post("/events/{eventID}/request-staff", h.AdminRequestStaffHandler)
			r.Post("/events/{eventID}/assign", h.AssignStaffHandler)
			r.Get("/events/{eventID}/eligible-staff", h.ListEligibleStaffHandler)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(RequireRole(auth.RoleStaff))

			r.Get("/events", h.ListAssignedEventsHandler)
			r.Get("/events/{eventID}", h.GetEventHandler)
			r.Post("/events/{eventID}/approve", h.StaffApproveHandler)
			r.Post("/events/{eventID}/reject", h.StaffRejectHandler)
		})
	})

	return r
}
