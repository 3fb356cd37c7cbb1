package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/denizkaplan/lunera-backend/api/controllers"
	"github.com/denizkaplan/lunera-backend/api/middleware"
	"github.com/denizkaplan/lunera-backend/internal/orders"
	"github.com/denizkaplan/lunera-backend/internal/payments"
	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
	"github.com/denizkaplan/lunera-backend/pkg/metrics"
)

// Deps carries everything the HTTP surface needs. Gateway callbacks, guest
// checkout and the authenticated customer area all hang off the same router.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      controllers.Pinger
	RedisPinger   controllers.Pinger
	OrdersService orders.Service
	PaymentEngine *payments.Engine
	HTTPMetrics   *metrics.HTTPMetrics
	Registry      *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Guest-capable surface. The gateway's browser return also lands
		// here, authenticated by its token rather than a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Post("/orders", controllers.CreateOrder(deps.OrdersService, logg))
			r.Post("/orders/{orderId}/payment", controllers.InitializePayment(deps.PaymentEngine, logg))
		})
		r.Get("/payments/callback", controllers.PaymentCallback(deps.PaymentEngine, logg))
		r.Post("/payments/callback", controllers.PaymentCallback(deps.PaymentEngine, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/orders", controllers.ListOrders(deps.OrdersService, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/orders/{orderId}/cancel", controllers.CancelOrder(deps.OrdersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrdersService, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.OrdersService, logg))
		})
	})

	return r
}
