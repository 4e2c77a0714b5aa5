package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// Params carries the router's collaborators. Idempotency and Gatherer may be
// nil; Readiness entries may hold nil pingers for disabled dependencies.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Workspaces  controllers.Workspaces
	Idempotency redis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Workspaces

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	// applied inline so the matcher sees the complete route pattern
	idempotent := middleware.Idempotency(p.Idempotency, logg)

	r.Route("/api/v1/workspaces", func(r chi.Router) {
		r.Post("/", controllers.WorkspaceOpen(svc, logg))

		r.Route("/{workspaceId}", func(r chi.Router) {
			r.Use(middleware.WorkspaceScope(logg))

			r.Get("/", controllers.WorkspaceGet(svc, logg))
			r.Delete("/", controllers.WorkspaceClose(svc, logg))
			r.Get("/toasts", controllers.WorkspaceToasts(svc, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductsList(svc, logg))
				r.Post("/reload", controllers.ProductsReload(svc, logg))
				r.Post("/next", controllers.ProductsNextPage(svc, logg))
				r.Post("/prev", controllers.ProductsPrevPage(svc, logg))
				r.With(idempotent).Post("/{productKey}/add", controllers.ProductAdd(svc, logg))
			})

			r.Route("/lines", func(r chi.Router) {
				r.Get("/", controllers.LinesList(svc, logg))
				r.Post("/reload", controllers.LinesReload(svc, logg))
				r.With(idempotent).Delete("/{orderItemId}", controllers.LineRemove(svc, logg))
			})

			r.Post("/activation/check", controllers.ActivationCheck(svc, logg))
			r.With(idempotent).Post("/activate", controllers.OrderActivate(svc, logg))
		})
	})

	return r
}
