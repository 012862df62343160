// Package router arma el http.Handler del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/dropDatabas3/firebridge/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/firebridge/internal/http/controllers/health"
	mw "github.com/dropDatabas3/firebridge/internal/http/middlewares"
	"github.com/dropDatabas3/firebridge/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Verify *authctrl.VerifyController
	Health *healthctrl.Controller

	CORSAllowedOrigins []string
	RateLimiter        rate.Limiter // opcional; nil deshabilita el límite
}

// New registra las rutas y devuelve el handler raíz con la cadena de
// middlewares global: recover (la más externa), request id, logging, CORS.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	verify := http.Handler(http.HandlerFunc(deps.Verify.Verify))
	if deps.RateLimiter != nil {
		verify = mw.Chain(verify, mw.WithRateLimit(deps.RateLimiter))
	}
	r.Method(http.MethodPost, "/v1/auth/firebase/verify", verify)

	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithCORS(deps.CORSAllowedOrigins),
	)
}
