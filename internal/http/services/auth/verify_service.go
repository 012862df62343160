package auth

import (
	"context"
	"errors"
)

// VerifyResult es el resultado de verificar un token y asegurar la cuenta.
type VerifyResult struct {
	UID         string
	PhoneNumber string
	Email       string
	AccountID   string
}

// Errores del service. El controller los mapea a status codes; el detalle
// interno queda en los logs.
var (
	// ErrInvalidToken cubre cualquier fallo de verificación (firma, iss,
	// aud, expiry) sin distinguir sub-razón.
	ErrInvalidToken = errors.New("auth: invalid or expired id token")

	// ErrReconcileFailed cubre cualquier fallo posterior a la verificación
	// (subject ausente, lookup/create/update contra el directorio).
	ErrReconcileFailed = errors.New("auth: account reconciliation failed")
)

// VerifyService orquesta el ciclo verify -> reconcile de un request.
type VerifyService interface {
	VerifyAndReconcile(ctx context.Context, idToken string) (*VerifyResult, error)
}
