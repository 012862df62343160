package firebase

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/firebridge/internal/cache"
	"github.com/dropDatabas3/firebridge/internal/metrics"
)

// JWKSURL es el único endpoint de claves en el que confiamos para verificar
// tokens de securetoken. Está fijo a propósito: si el caller pudiera
// sustituirlo, la verificación de firma no valdría nada.
const JWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

const jwksCacheKey = "firebase:jwks"

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// KeySet resuelve claves públicas RSA de Google por kid.
//
// Capas de frescura:
//  1. mapa parseado in-struct con expiry (petición caliente)
//  2. cache.Cache con el JSON crudo (comparte entre instancias si es Redis)
//  3. fetch HTTP, respetando Cache-Control max-age de la respuesta
type KeySet struct {
	http  *http.Client
	cache cache.Cache
	ttl   time.Duration // fallback si la respuesta no trae max-age
	url   string

	sf singleflight.Group

	mu     sync.RWMutex
	keys   map[string]*rsa.PublicKey
	expiry time.Time
}

func NewKeySet(c cache.Cache, fallbackTTL time.Duration) *KeySet {
	if fallbackTTL <= 0 {
		fallbackTTL = time.Hour
	}
	return &KeySet{
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: c,
		ttl:   fallbackTTL,
		url:   JWKSURL,
	}
}

// Key retorna la clave pública para el kid dado. Si el kid no está en el set
// cacheado, fuerza un refetch una vez (rotación de claves de Google).
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := ks.current(ctx, false)
	if err != nil {
		return nil, err
	}
	if k, ok := keys[kid]; ok {
		return k, nil
	}

	keys, err = ks.current(ctx, true)
	if err != nil {
		return nil, err
	}
	if k, ok := keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("firebase: kid %q not found in jwks", kid)
}

func (ks *KeySet) current(ctx context.Context, force bool) (map[string]*rsa.PublicKey, error) {
	if !force {
		ks.mu.RLock()
		if ks.keys != nil && time.Now().Before(ks.expiry) {
			defer ks.mu.RUnlock()
			return ks.keys, nil
		}
		ks.mu.RUnlock()
	}

	// singleflight: muchos requests concurrentes, un solo fetch
	_, err, _ := ks.sf.Do("jwks", func() (any, error) {
		return nil, ks.refresh(ctx, force)
	})
	if err != nil {
		return nil, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.keys, nil
}

func (ks *KeySet) refresh(ctx context.Context, force bool) error {
	var raw []byte
	fromCache := false

	if !force && ks.cache != nil {
		if b, ok := ks.cache.Get(jwksCacheKey); ok {
			raw = b
			fromCache = true
		}
	}

	ttl := ks.ttl
	if raw == nil {
		b, maxAge, err := ks.fetch(ctx)
		if err != nil {
			return err
		}
		raw = b
		metrics.JWKSFetches.Inc()
		if maxAge > 0 {
			ttl = maxAge
		}
		if ks.cache != nil {
			ks.cache.Set(jwksCacheKey, raw, ttl)
		}
	}

	keys, err := parseJWKS(raw)
	if err != nil {
		if fromCache {
			// entrada de cache corrupta: descartarla y reintentar por red
			ks.cache.Delete(jwksCacheKey)
			return ks.refresh(ctx, true)
		}
		return err
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.expiry = time.Now().Add(ttl)
	ks.mu.Unlock()
	return nil
}

func (ks *KeySet) fetch(ctx context.Context) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := ks.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, 0, fmt.Errorf("firebase: jwks http %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, err
	}
	return b, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

func parseJWKS(raw []byte) (map[string]*rsa.PublicKey, error) {
	var doc jwks
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("firebase: parse jwks: %w", err)
	}
	out := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") || k.Kid == "" {
			continue
		}
		pub, err := rsaKey(k)
		if err != nil {
			continue
		}
		out[k.Kid] = pub
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("firebase: jwks contains no usable RSA keys")
	}
	return out, nil
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	if len(eb) == 0 {
		e = 65537
	} else {
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

// parseMaxAge extrae max-age de un header Cache-Control. Retorna 0 si no hay.
func parseMaxAge(v string) time.Duration {
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if s, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}
