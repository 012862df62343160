package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/firebridge/internal/http/errors"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
	"github.com/dropDatabas3/firebridge/internal/store"
)

// Controller expone healthz (liveness) y readyz (readiness).
type Controller struct {
	store store.Store
}

func New(s store.Store) *Controller {
	return &Controller{store: s}
}

// Healthz maneja GET /healthz
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz. Chequea que el directorio de usuarios responda.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		logger.From(r.Context()).Warn("store not ready", logger.Err(err))
		httperrors.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
