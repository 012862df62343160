// Package reconcile mapea una identidad de Firebase ya verificada a una
// cuenta durable en el directorio de usuarios: find-or-create-or-update.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/firebridge/internal/firebase"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
	"github.com/dropDatabas3/firebridge/internal/store"
)

var (
	// ErrMissingSubject: las claims verificaron pero no traen ni sub ni
	// user_id. Es una violación de contrato del token, no un error nuestro.
	ErrMissingSubject = errors.New("reconcile: claims carry no subject identifier")

	ErrLookupFailed = errors.New("reconcile: account lookup failed")
	ErrCreateFailed = errors.New("reconcile: account creation failed")
	ErrUpdateFailed = errors.New("reconcile: account update failed")
)

// Outcome distingue si la cuenta fue creada o actualizada (métricas/logs).
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

type Reconciler struct {
	store store.Store
}

func New(s store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// EnsureAccount busca la cuenta que corresponde a las claims y la crea o
// actualiza. Orden determinista: match exacto por teléfono primero, después
// email case-insensitive. El teléfono gana a propósito: es la señal primaria
// del flujo phone-OTP, y desempata cuando las claims matchean por email una
// cuenta distinta.
//
// Idempotente: dos llamadas seguidas con claims equivalentes resuelven la
// misma cuenta (la primera crea, la segunda encuentra y actualiza) y el set
// de roles no crece ni pierde entradas.
//
// Nota: no hay lock alrededor del find-then-create. Dos primeras-logins
// concurrentes del mismo subject pueden intentar crear dos veces; la
// restricción de unicidad de teléfono/email del directorio es el backstop.
func (r *Reconciler) EnsureAccount(ctx context.Context, claims *firebase.IDClaims) (*store.Account, Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("reconcile"))

	subject := claims.SubjectID()
	if subject == "" {
		return nil, "", ErrMissingSubject
	}

	target, err := r.find(ctx, claims)
	if err != nil {
		log.Error("account lookup failed", logger.UID(subject), logger.Err(err))
		return nil, "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	provenance := map[string]any{
		store.MetaFirebaseUID: subject,
		store.MetaProvider:    store.ProviderFirebasePhone,
	}

	if target == nil {
		created, err := r.store.CreateAccount(ctx, store.CreateParams{
			Phone:          claims.PhoneNumber,
			Email:          claims.Email,
			PhoneConfirmed: claims.PhoneNumber != "",
			EmailConfirmed: claims.Email != "",
			Metadata:       provenance,
			Roles:          []string{store.RoleAuthenticated},
		})
		if err != nil {
			log.Error("account creation failed", logger.UID(subject), logger.Err(err))
			return nil, "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		log.Info("account created", logger.UID(subject), logger.AccountID(created.ID))
		return created, OutcomeCreated, nil
	}

	// Merge: la procedencia pisa firebase_uid/provider pero conserva el
	// resto de la metadata; los roles se unen con "authenticated".
	updated, err := r.store.UpdateAccount(ctx, target.ID, store.UpdateParams{
		Metadata: mergeMetadata(target.Metadata, provenance),
		Roles:    unionRoles(target.Roles, store.RoleAuthenticated),
	})
	if err != nil {
		log.Error("account update failed",
			logger.UID(subject), logger.AccountID(target.ID), logger.Err(err))
		return nil, "", fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	log.Info("account updated", logger.UID(subject), logger.AccountID(updated.ID))
	return updated, OutcomeUpdated, nil
}

// find busca la cuenta target: teléfono exacto primero, después email
// case-insensitive. Retorna nil si no hay match.
func (r *Reconciler) find(ctx context.Context, claims *firebase.IDClaims) (*store.Account, error) {
	if claims.PhoneNumber == "" && claims.Email == "" {
		return nil, nil
	}

	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	if claims.PhoneNumber != "" {
		for i := range accounts {
			if accounts[i].Phone == claims.PhoneNumber {
				return &accounts[i], nil
			}
		}
	}
	if claims.Email != "" {
		for i := range accounts {
			if accounts[i].Email != "" && strings.EqualFold(accounts[i].Email, claims.Email) {
				return &accounts[i], nil
			}
		}
	}
	return nil, nil
}

// mergeMetadata pisa existing con incoming, conservando las keys no tocadas.
func mergeMetadata(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// unionRoles agrega extra a roles sin duplicar y sin perder los existentes.
// El orden de los roles previos se conserva.
func unionRoles(roles []string, extra ...string) []string {
	out := make([]string, 0, len(roles)+len(extra))
	seen := make(map[string]struct{}, len(roles)+len(extra))
	for _, r := range roles {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	for _, r := range extra {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
