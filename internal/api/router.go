package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crm-segment-engine/internal/observability"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/shops", h.CreateShop)
		r.Get("/shops", h.ListShops)
		r.Delete("/shops/{id}", h.DeleteShop)

		r.Post("/customers", h.CreateCustomer)
		r.Get("/customers", h.ListCustomers)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)

		r.Post("/segment/toggles", h.ApplyToggles)
		r.Post("/segment/rules", h.ApplyRules)
		r.Post("/segment/clear", h.ClearSegment)
		r.Get("/segment/view", h.SegmentView)
		r.Post("/segment/generate", h.GenerateSegment)

		r.Get("/campaign/log", h.CampaignLog)
		r.Post("/campaign/send", h.SendCampaign)
		r.Post("/campaign/suggest", h.SuggestMessages)
		r.Get("/campaign/insights", h.CampaignInsights)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
