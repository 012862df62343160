package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	dto "github.com/dropDatabas3/firebridge/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/firebridge/internal/http/errors"
	svc "github.com/dropDatabas3/firebridge/internal/http/services/auth"
	"github.com/dropDatabas3/firebridge/internal/metrics"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
)

const (
	maxVerifyBodySize = 64 * 1024 // 64KB

	// minIDTokenLen descarta tokens obviamente truncados o placeholder
	// antes de gastar una verificación criptográfica.
	minIDTokenLen = 100

	successNote = "Verified Firebase token and ensured Supabase user exists."
)

// VerifyController maneja el endpoint de verificación de tokens de Firebase.
type VerifyController struct {
	service svc.VerifyService
}

// NewVerifyController crea un nuevo controller de verificación.
func NewVerifyController(service svc.VerifyService) *VerifyController {
	return &VerifyController{service: service}
}

// Verify maneja POST /v1/auth/firebase/verify
func (c *VerifyController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("VerifyController.Verify"))
	start := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, &httperrors.AppError{
			Status: http.StatusMethodNotAllowed, Message: "Method not allowed",
		})
		return
	}

	// Content-Type: solo JSON
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		metrics.VerifyRequests.WithLabelValues("bad_request").Inc()
		httperrors.WriteError(w, httperrors.ErrUnsupportedMedia)
		return
	}

	// Limitar body
	r.Body = http.MaxBytesReader(w, r.Body, maxVerifyBodySize)
	defer r.Body.Close()

	var req dto.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.VerifyRequests.WithLabelValues("bad_request").Inc()
		httperrors.WriteError(w, httperrors.ErrInvalidPayload)
		return
	}
	if len(strings.TrimSpace(req.IDToken)) < minIDTokenLen {
		metrics.VerifyRequests.WithLabelValues("bad_request").Inc()
		httperrors.WriteError(w, httperrors.ErrInvalidPayload)
		return
	}

	result, err := c.service.VerifyAndReconcile(ctx, req.IDToken)
	if err != nil {
		log.Debug("verify failed", logger.Err(err))
		writeVerifyError(w, err)
		return
	}

	metrics.VerifyRequests.WithLabelValues("ok").Inc()
	metrics.VerifyLatency.Observe(float64(time.Since(start).Milliseconds()))

	httperrors.WriteJSON(w, http.StatusOK, dto.VerifyResponse{
		OK:             true,
		UID:            dto.OptStr(result.UID),
		PhoneNumber:    dto.OptStr(result.PhoneNumber),
		Email:          dto.OptStr(result.Email),
		SupabaseUserID: dto.OptStr(result.AccountID),
		Note:           successNote,
	})
}

// ─── Helpers ───

func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidToken):
		metrics.VerifyRequests.WithLabelValues("unauthorized").Inc()
		httperrors.WriteError(w, httperrors.ErrInvalidToken)

	case errors.Is(err, svc.ErrReconcileFailed):
		metrics.VerifyRequests.WithLabelValues("error").Inc()
		httperrors.WriteError(w, httperrors.ErrInternal)

	default:
		metrics.VerifyRequests.WithLabelValues("error").Inc()
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
