package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"imagejobs/internal/http/handlers"
	"imagejobs/internal/infra"
	"imagejobs/internal/metrics"
	"imagejobs/internal/middleware"
)

// Deps bundles what the router needs beyond the handlers.
type Deps struct {
	Logger      infra.Logger
	Collector   *metrics.Collector
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	RatePerMin  int
}

func NewRouter(app *handlers.App, deps Deps) http.Handler {
	r := chi.NewRouter()

	var observer middleware.HTTPObserver
	if deps.Collector != nil {
		observer = deps.Collector
	}

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(deps.Logger, observer),
		middleware.CORS(deps.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/operations", app.ListOperations)
		r.Get("/orders", app.ListOrders)
		r.Get("/orders/{orderID}", app.GetOrder)

		// these drive the remote service
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.RatePerMin, time.Minute))
			r.Post("/operations/{name}", app.RunOperation)
			r.Post("/orders/{orderID}/wait", app.WaitOrder)
		})
	})

	return r
}
