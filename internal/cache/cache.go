// Package cache provee una abstracción chica de cache de bytes con soporte
// multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Se usa para el documento JWKS de Google y como backend del rate limiter.
package cache

import "time"

// Cache define las operaciones de cache que usa firebridge.
type Cache interface {
	// Get obtiene un valor. El segundo retorno indica si la key existía.
	Get(key string) ([]byte, bool)

	// Set guarda un valor con TTL. Si ttl es 0 se usa el default del backend.
	Set(key string, value []byte, ttl time.Duration)

	// Delete elimina una key.
	Delete(key string)
}
