package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veritrace/veritrace-backend/api/controllers"
	"github.com/veritrace/veritrace-backend/api/middleware"
	"github.com/veritrace/veritrace-backend/internal/registry"
	"github.com/veritrace/veritrace-backend/internal/tracker"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/qr"
	pkgredis "github.com/veritrace/veritrace-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. RedisClient is
// optional; without it readiness skips the redis check and writes are not
// idempotency-protected.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Clock       clock.Clock
	RedisClient *pkgredis.Client
	Registry    registry.Service
	Tracker     tracker.Service
	QR          *qr.Generator
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisPinger(params.RedisClient)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public reads: anyone holding a product id (or its QR label) can
	// inspect provenance without credentials.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/{productID}", controllers.GetProduct(params.Tracker, logg))
		r.Get("/products/{productID}/journey", controllers.GetProductJourney(params.Tracker, logg))
		r.Get("/products/{productID}/qr", controllers.ProductQR(params.Tracker, params.QR, params.Clock, logg))
		r.Get("/registry/authorizations/{principal}", controllers.PrincipalGrants(params.Registry, logg))

		if !cfg.App.IsProd() {
			r.Post("/auth/token", controllers.MintDevToken(cfg, params.Clock, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if params.RedisClient != nil {
				r.Use(middleware.Idempotency(params.RedisClient, logg))
			}

			r.Post("/products", controllers.RegisterProduct(params.Tracker, logg))
			r.Post("/products/generate-id", controllers.GenerateProductID())
			r.Post("/products/{productID}/stages", controllers.UpdateProductStage(params.Tracker, logg))
			r.Post("/products/{productID}/sale", controllers.MarkProductSold(params.Tracker, logg))
			r.Post("/registry/authorizations", controllers.GrantRole(params.Registry, logg))
		})
	})

	return r
}

// redisPinger avoids handing HealthReady a non-nil interface wrapping a
// nil *Client.
func redisPinger(client *pkgredis.Client) pkgredis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
