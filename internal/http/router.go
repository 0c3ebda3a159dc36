// Package http exposes the cart and checkout to the storefront pages.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig, cartHandler *CartHandler, checkoutHandler *CheckoutHandler, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(VisitorMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(AuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.StartCheckout)
			r.Get("/", checkoutHandler.GetCheckout)
			r.Delete("/", checkoutHandler.Discard)
			r.Post("/pay", checkoutHandler.Pay)
			r.Post("/restart", checkoutHandler.Restart)
			r.Get("/history", checkoutHandler.History)
			r.Get("/history/{checkout_id}", checkoutHandler.GetPastCheckout)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
