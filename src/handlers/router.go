package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/username/painthouse/src/utils"
)

// RouterConfig carries the HTTP-facing settings.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

// NewRouter mounts the inventory API with its middleware stack.
func NewRouter(h *InventoryHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.HandleGetTransactions)
			r.Post("/add", h.HandleAddItem)
			r.Post("/sell", h.HandleSellItem)
			r.Put("/{id}", h.HandleEditTransaction)
			r.Delete("/{id}", h.HandleDeleteTransaction)
		})
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/summary", h.HandleGetInventorySummary)
			r.Post("/rebuild", h.HandleRebuildSummary)
			r.Get("/reconcile", h.HandleReconcile)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/summary", h.HandleGetSalesSummary)
			r.Post("/summary/publish", h.HandlePublishSalesSummary)
		})
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}
