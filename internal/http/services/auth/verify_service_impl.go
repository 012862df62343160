package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/firebridge/internal/firebase"
	"github.com/dropDatabas3/firebridge/internal/metrics"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
	"github.com/dropDatabas3/firebridge/internal/reconcile"
	"github.com/dropDatabas3/firebridge/internal/store"
)

// TokenVerifier es lo que necesitamos del verifier de Firebase.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*firebase.IDClaims, error)
}

// AccountReconciler es lo que necesitamos del reconciliador.
type AccountReconciler interface {
	EnsureAccount(ctx context.Context, claims *firebase.IDClaims) (*store.Account, reconcile.Outcome, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	Verifier   TokenVerifier
	Reconciler AccountReconciler
}

type verifyService struct {
	verifier   TokenVerifier
	reconciler AccountReconciler
}

func NewVerifyService(d Deps) VerifyService {
	return &verifyService{verifier: d.Verifier, reconciler: d.Reconciler}
}

// VerifyAndReconcile: secuencial estricto, sin fan-out. Verificar primero,
// reconciliar después; si la reconciliación falla no hay compensación (el
// caller reintenta el request entero con el mismo token).
func (s *verifyService) VerifyAndReconcile(ctx context.Context, idToken string) (*VerifyResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.verify"))

	claims, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, firebase.ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		log.Error("verifier failed unexpectedly", logger.Err(err))
		return nil, ErrInvalidToken
	}

	account, outcome, err := s.reconciler.EnsureAccount(ctx, claims)
	if err != nil {
		// El motivo (missing subject, create, update) ya quedó loggeado en
		// el reconciliador; hacia afuera es un único tipo de fallo.
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	metrics.ReconcileOutcomes.WithLabelValues(string(outcome)).Inc()

	return &VerifyResult{
		UID:         claims.SubjectID(),
		PhoneNumber: claims.PhoneNumber,
		Email:       claims.Email,
		AccountID:   account.ID,
	}, nil
}
