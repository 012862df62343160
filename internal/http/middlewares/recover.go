package middlewares

import (
	"net/http"

	httperrors "github.com/dropDatabas3/firebridge/internal/http/errors"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
)

// WithRecover captura panics y devuelve un 500 genérico en lugar de crashear.
// Es la frontera más externa: ninguna excepción escapa sin convertir, para no
// filtrar stack traces al cliente.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					httperrors.WriteError(w, httperrors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
