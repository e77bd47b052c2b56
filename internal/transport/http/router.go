package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifedrop/internal/platform/middleware"
)

// NewRouter mounts the full HTTP surface behind the middleware stack.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/requests", h.handleCreateRequest)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.Get("/requests/{requestID}/matches", h.handleMatches)
		r.Post("/requests/{requestID}/complete", h.handleCompleteRequest)
		r.Get("/requests/{requestID}/ledger", h.handleRequestLedger)

		r.Post("/notifications", h.handleCreateNotification)
		r.Post("/notifications/{notificationID}/respond", h.handleRespond)
		r.Post("/notifications/{notificationID}/donate", h.handleDonate)

		r.Get("/donors/{donorID}/stats", h.handleDonorStats)
		r.Post("/donors/{donorID}/availability", h.handleAvailability)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/cooldowns/sweep", h.handleSweepCooldowns)
			r.Get("/ledger/verify", h.handleVerifyLedger)
			r.Get("/donors", h.handleListDonors)
			r.Get("/requests", h.handleListRequests)
		})
	})

	return r
}
