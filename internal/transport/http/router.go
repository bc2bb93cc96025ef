package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RouterOptions настраивают HTTP-маршрутизатор сервиса.
type RouterOptions struct {
	Cart           CartService
	Catalog        CatalogService
	Logger         *log.Entry
	RequestTimeout time.Duration
}

// NewRouter собирает маршрутизатор со всеми эндпоинтами сервиса.
func NewRouter(opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	cartHandler := NewCartHandler(opts.Cart, opts.RequestTimeout)
	productHandler := NewProductHandler(opts.Catalog, opts.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"service": "cart-service", "status": "ok"})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Post("/", productHandler.Create)
		r.Route("/{product_id}", func(r chi.Router) {
			r.Get("/", productHandler.Get)
			r.Put("/", productHandler.Update)
			r.Delete("/", productHandler.Delete)
			r.Get("/movements", productHandler.ListMovements)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cartHandler.GetCart)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{item_id}", cartHandler.UpdateItem)
		r.Delete("/items/{item_id}", cartHandler.RemoveItem)
	})

	return r
}
