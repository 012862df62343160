package middlewares

import (
	"fmt"
	"net"
	"net/http"

	httperrors "github.com/dropDatabas3/firebridge/internal/http/errors"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
	"github.com/dropDatabas3/firebridge/internal/rate"
)

// WithRateLimit aplica un limiter fixed-window por IP de cliente.
// Si el limiter falla (ej: Redis caído) el request pasa: preferimos degradar
// el límite antes que el login.
func WithRateLimit(l rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
				httperrors.WriteError(w, httperrors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// primer hop
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
