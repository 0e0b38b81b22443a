package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/landing"
	"github.com/angelmondragon/storefront/internal/media"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// Dependencies are the services and infrastructure the HTTP surface needs.
type Dependencies struct {
	KV       pkgredis.Store
	Pingers  map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Carts    controllers.CartRegistry
	Sessions controllers.SessionHandoff
	UI       controllers.UIRegistry
	Checkout checkout.Service
	Auth     auth.Service
	Orders   orders.Service
	Catalog  catalog.Service
	Landing  landing.Service
	Media    media.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Metrics(deps.HTTP),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.LoginLimit.Window,
		cfg.LoginLimit.IPLimit,
		cfg.LoginLimit.UsernameLimit,
	)
	maxUpload := cfg.Media.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Patch("/items/{variantId}", controllers.CartUpdateItem(deps.Carts, logg))
			r.Delete("/items/{variantId}", controllers.CartRemoveItem(deps.Carts, logg))
			r.Post("/rehydrate", controllers.CartRehydrate(deps.Carts, logg))
		})

		r.Route("/ui", func(r chi.Router) {
			r.Get("/", controllers.UIGet(deps.UI, logg))
			r.Post("/cart/open", controllers.UIOpenCart(deps.UI, logg))
			r.Post("/cart/close", controllers.UICloseCart(deps.UI, logg))
			r.Post("/modal", controllers.UIOpenModal(deps.UI, logg))
			r.Delete("/modal", controllers.UICloseModal(deps.UI, logg))
		})

		r.Post("/checkout", controllers.CheckoutSubmit(deps.Checkout, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.KV, logg)).Post("/login", controllers.AuthLogin(deps.Auth, deps.Sessions, cfg.Session, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, deps.Media, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/tracked", controllers.OrderTracked(deps.Orders, logg))
			r.Get("/{reference}", controllers.OrderLookup(deps.Orders, logg))
		})

		r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
		r.Get("/products/{slug}", controllers.CatalogProduct(deps.Catalog, logg))
		r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
		r.Get("/landing", controllers.LandingBlocks(deps.Landing, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSession(deps.Auth, logg))
			r.Use(middleware.Idempotency(deps.KV, logg))

			r.Route("/banners", func(r chi.Router) {
				r.Get("/", controllers.AdminBanners(deps.Landing, logg))
				r.Post("/", controllers.AdminCreateBanner(deps.Landing, logg))
				r.Delete("/{id}", controllers.AdminDeleteBanner(deps.Landing, logg))
				r.Post("/{id}/image", controllers.MediaUploadBannerImage(deps.Media, maxUpload, logg))
				r.Delete("/{id}/image", controllers.MediaDeleteBannerImage(deps.Media, logg))
			})

			r.Route("/landing-blocks", func(r chi.Router) {
				r.Get("/", controllers.AdminLandingBlocks(deps.Landing, logg))
				r.Post("/", controllers.AdminUpsertLandingBlock(deps.Landing, logg))
				r.Put("/{id}", controllers.AdminUpsertLandingBlock(deps.Landing, logg))
				r.Delete("/{id}", controllers.AdminDeleteLandingBlock(deps.Landing, logg))
			})

			r.Route("/products/{id}/images", func(r chi.Router) {
				r.Post("/", controllers.MediaUploadProductImage(deps.Media, maxUpload, logg))
				r.Delete("/{imageId}", controllers.MediaDeleteProductImage(deps.Media, logg))
			})

			r.Route("/previews", func(r chi.Router) {
				r.Get("/file/{ref}", controllers.MediaPreviewFile(deps.Media, logg))
				r.Post("/{target}", controllers.MediaPreviewSelect(deps.Media, maxUpload, logg))
				r.Delete("/{target}", controllers.MediaPreviewClose(deps.Media, logg))
			})
		})
	})

	return r
}
