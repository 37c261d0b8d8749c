package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewRouter(carts *CartHandler, recs *RecommendationHandler, sess SessionConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(withSession(sess))
		r.Get("/", carts.GetCart)
		r.Delete("/", carts.ClearCart)
		r.Post("/items", carts.AddItem)
		r.Delete("/items/{productId}", carts.RemoveItem)
		r.Post("/coupon", carts.ApplyCoupon)
		r.Post("/checkout", carts.Checkout)
	})

	r.Get("/api/products/{productId}/recommendations", recs.ProductRecommendations)
	r.Get("/api/recommendations", recs.Recommendations)

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
