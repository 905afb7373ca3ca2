package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markofilipovic2762/eshop-cms/internal/catalog"
	"github.com/markofilipovic2762/eshop-cms/internal/checkout"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	"github.com/markofilipovic2762/eshop-cms/pkg/health"
	"github.com/markofilipovic2762/eshop-cms/pkg/middleware"
)

const serviceName = "storefront"

// Deps are everything the router serves.
type Deps struct {
	Registry *store.Registry
	Catalog  *catalog.Service
	Checkout *checkout.Service
	Health   *health.Handler
	Logger   *slog.Logger

	// AuthLimiter throttles login and register per client IP; nil disables it.
	AuthLimiter *middleware.Limiter
	// Guard protects /dashboard.
	Guard middleware.GuardConfig

	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	SecureCookies  bool
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.Guard.Prefix == "" {
		d.Guard.Prefix = "/dashboard"
	}
	if d.Guard.LoginPath == "" {
		d.Guard.LoginPath = "/login"
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(d.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(d.RequestTimeout))
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.RequireUser(d.Guard, d.Logger))

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if d.PprofCIDRs != nil {
		middleware.RegisterPprof(r, d.PprofCIDRs, d.Logger)
	}

	profiles := Profiles(d.Registry, d.SecureCookies, d.Logger)

	cartHandler := NewCartHandler(d.Logger)
	wishlistHandler := NewWishlistHandler(d.Logger)
	sessionHandler := NewSessionHandler(d.SecureCookies, d.Logger)
	checkoutHandler := NewCheckoutHandler(d.Checkout, d.Logger)
	catalogHandler := NewCatalogHandler(d.Catalog, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Catalog responses are the same for every profile.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
			r.Get("/categories", catalogHandler.ListCategories)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(profiles)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{id}", cartHandler.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.GetWishlist)
				r.Delete("/", wishlistHandler.ClearWishlist)
				r.Post("/items", wishlistHandler.AddItem)
				r.Post("/items/toggle", wishlistHandler.Toggle)
				r.Get("/items/{id}", wishlistHandler.Contains)
				r.Delete("/items/{id}", wishlistHandler.RemoveItem)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Post("/logout", sessionHandler.Logout)

				r.Group(func(r chi.Router) {
					if d.AuthLimiter != nil {
						r.Use(middleware.RateLimit(d.AuthLimiter, d.Logger))
					}
					r.Post("/login", sessionHandler.Login)
					r.Post("/register", sessionHandler.Register)
				})
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/quote", checkoutHandler.GetQuote)
				r.Post("/", checkoutHandler.PlaceOrder)
			})
		})
	})

	r.With(middleware.NoStore, profiles).Get(d.Guard.Prefix, DashboardStatus)

	return r
}
