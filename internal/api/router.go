package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(handlers *Handlers, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withLogging(log))

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handlers.GetProducts)
		r.Post("/", handlers.CreateProduct)
		r.Get("/{id}", handlers.GetProduct)
		r.Put("/{id}", handlers.UpdateProduct)
		r.Delete("/{id}", handlers.DeleteProduct)
		r.Put("/{id}/inventory", handlers.SetInventoryPolicy)
		r.Post("/{id}/stock", handlers.AddStock)
	})
	r.Get("/inventory/{id}", handlers.GetInventory)

	r.Post("/selections/validate", handlers.ValidateSelection)
	r.Post("/selections/price", handlers.PriceSelection)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/items", handlers.AddToCart)
		r.Get("/{id}", handlers.GetCart)
		r.Post("/{id}/items", handlers.AddToCart)
		r.Post("/{id}/manual-items", handlers.AddManualItem)
		r.Delete("/{id}/items/{lineID}", handlers.RemoveFromCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", handlers.GetOrders)
		r.Post("/", handlers.PlaceOrder)
		r.Get("/{id}", handlers.GetOrder)
		r.Post("/{id}/diff", handlers.DiffOrder)
		r.Put("/{id}/items", handlers.EditOrder)
		r.Get("/{id}/status-plan", handlers.PlanStatusChange)
		r.Post("/{id}/status", handlers.ChangeStatus)
		r.Post("/{id}/side-effects/{action}/retry", handlers.RetrySideEffect)
	})

	return r
}

func withLogging(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
