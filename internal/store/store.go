// Package store define el modelo de cuenta y la interfaz del directorio de
// usuarios de Supabase. Hay dos drivers: supabase (GoTrue admin API) y pg
// (acceso directo a auth.users para despliegues con acceso a la base).
package store

import (
	"context"
	"errors"
)

// RoleAuthenticated es el único rol que este servicio asigna. El merge de
// roles está escrito en general igual: otros sistemas pueden haber agregado
// roles a la cuenta y no deben perderse.
const RoleAuthenticated = "authenticated"

// Claves de metadata de procedencia.
const (
	MetaFirebaseUID = "firebase_uid"
	MetaProvider    = "provider"
)

// ProviderFirebasePhone es el tag literal de procedencia.
const ProviderFirebasePhone = "firebase-phone"

var (
	ErrNotFound = errors.New("store: account not found")
)

// Account es la cuenta reconciliada en el directorio de usuarios.
type Account struct {
	ID             string
	Phone          string // E.164, vacío si no tiene
	Email          string
	PhoneConfirmed bool
	EmailConfirmed bool
	Metadata       map[string]any // user metadata (procedencia incluida)
	Roles          []string       // app roles; siempre incluye "authenticated"
}

// CreateParams son los campos para crear una cuenta nueva.
type CreateParams struct {
	Phone          string
	Email          string
	PhoneConfirmed bool
	EmailConfirmed bool
	Metadata       map[string]any
	Roles          []string
}

// UpdateParams son los campos a pisar en una cuenta existente.
// Solo los punteros no-nil se aplican.
type UpdateParams struct {
	Metadata map[string]any
	Roles    []string
}

// Store es el directorio de usuarios visto desde el reconciliador.
// La implementación se construye una vez al armar el servicio y se comparte
// entre requests; su thread-safety interna es responsabilidad del driver.
type Store interface {
	// ListAccounts retorna todas las cuentas del directorio.
	ListAccounts(ctx context.Context) ([]Account, error)

	// CreateAccount crea una cuenta nueva y retorna el registro con ID asignado.
	CreateAccount(ctx context.Context, p CreateParams) (*Account, error)

	// UpdateAccount aplica los cambios sobre la cuenta con el ID dado.
	UpdateAccount(ctx context.Context, id string, p UpdateParams) (*Account, error)

	// Ping verifica que el backend esté alcanzable (readiness).
	Ping(ctx context.Context) error
}
