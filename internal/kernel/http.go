// Package kernel assembles the HTTP handler: the global middleware stack,
// the Prometheus endpoint and the API routes.
package kernel

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shashiranjanraj/bidmarket/app/routes"
	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
	"github.com/shashiranjanraj/bidmarket/pkg/middleware"
	"github.com/shashiranjanraj/bidmarket/pkg/reqid"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
	"github.com/shashiranjanraj/bidmarket/pkg/router"
)

type HTTPKernel struct {
	router  *router.Router
	limiter *middleware.Limiter
}

// NewHTTPKernel builds the handler over the services bound in c.
func NewHTTPKernel(c *container.Container) (*HTTPKernel, error) {
	k := &HTTPKernel{
		router:  router.New(),
		limiter: middleware.NewLimiter(config.RateLimit(), config.RateWindow()),
	}

	// Outermost first: metrics see total latency, recovery runs before
	// anything can panic unobserved, and the request id exists before the
	// logger reads it.
	k.router.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.CORSOptionsFromConfig()),
		k.limiter.Handler,
		chimw.StripSlashes,
	)
	k.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Not found.")
	})
	k.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	k.router.Get("/metrics", "metrics", metrics.Handler())
	if err := routes.RegisterAPI(k.router, c); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Routes lists the registered endpoints.
func (k *HTTPKernel) Routes() []router.Route { return k.router.Routes() }

// Limiter is exposed so the server can run its janitor.
func (k *HTTPKernel) Limiter() *middleware.Limiter { return k.limiter }
