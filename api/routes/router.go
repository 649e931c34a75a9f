package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deepstorefront/storefront/api/controllers"
	"github.com/deepstorefront/storefront/api/middleware"
	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/internal/carts"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/internal/customers"
	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/pkg/config"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/metrics"
	pkgredis "github.com/deepstorefront/storefront/pkg/redis"
)

// StorePrefix is where the resource table is mounted.
const StorePrefix = "/store"

// Services are the domain services behind the storefront resources.
type Services struct {
	Catalog   catalog.Service
	Carts     carts.Service
	Customers customers.Service
	Orders    orders.Service
}

// StorefrontTable declares every storefront collection and compiles the
// routing table. A returned error is a configuration bug and must stop
// startup.
func StorefrontTable(svcs Services, logg *logger.Logger) (*resources.Table, error) {
	return resources.NewBuilder().
		Register("products", controllers.NewProductViewSet(svcs.Catalog, logg), "").
		Nest("products", "product", "reviews", controllers.NewReviewViewSet(svcs.Catalog, "product", logg), "").
		Register("collections", controllers.NewCollectionViewSet(svcs.Catalog, logg), "").
		Register("cart", controllers.NewCartViewSet(svcs.Carts, logg), "cart").
		Nest("cart", "cart", "items", controllers.NewCartItemViewSet(svcs.Carts, "cart", logg), "").
		Register("customers", controllers.NewCustomerViewSet(svcs.Customers, svcs.Orders, logg), "").
		Register("orders", controllers.NewOrderViewSet(svcs.Orders, logg), "").
		Build()
}

// Params wires the HTTP router.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	Table          *resources.Table
	Pingers        map[string]controllers.Pinger
	Idempotency    pkgredis.IdempotencyStore
	Metrics        *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.CORS),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "no route matches "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeMethod, "method "+r.Method+" not allowed"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	if p.Table != nil {
		r.Route(StorePrefix, func(r chi.Router) {
			r.Use(
				middleware.Identity(cfg.JWT, logg),
				middleware.Idempotency(p.Idempotency, logg),
			)
			p.Table.Mount(r)
		})
	}

	return r
}
