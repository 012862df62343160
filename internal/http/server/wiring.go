// Package server conecta config -> dependencias -> handler.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/firebridge/internal/cache"
	memcache "github.com/dropDatabas3/firebridge/internal/cache/memory"
	redcache "github.com/dropDatabas3/firebridge/internal/cache/redis"
	"github.com/dropDatabas3/firebridge/internal/config"
	"github.com/dropDatabas3/firebridge/internal/firebase"
	authctrl "github.com/dropDatabas3/firebridge/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/firebridge/internal/http/controllers/health"
	"github.com/dropDatabas3/firebridge/internal/http/router"
	authsvc "github.com/dropDatabas3/firebridge/internal/http/services/auth"
	"github.com/dropDatabas3/firebridge/internal/metrics"
	"github.com/dropDatabas3/firebridge/internal/rate"
	"github.com/dropDatabas3/firebridge/internal/reconcile"
	"github.com/dropDatabas3/firebridge/internal/store"
	"github.com/dropDatabas3/firebridge/internal/store/pg"
	"github.com/dropDatabas3/firebridge/internal/store/supabase"
)

// Build arma el handler completo a partir de la config. El cleanup cierra
// recursos (pool de Postgres si aplica). El cliente del directorio se
// construye una sola vez acá y se comparte entre todos los requests.
func Build(ctx context.Context, cfg *config.Config) (http.Handler, func() error, error) {
	if err := metrics.Register(nil); err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	// Cache (JWKS + rate limiter)
	var (
		c        cache.Cache
		redisCli *redcache.Cache
	)
	switch cfg.Cache.Kind {
	case "redis":
		redisCli = redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		c = redisCli
	default:
		ttl, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
		c = memcache.New(ttl)
	}

	// Directorio de usuarios
	var (
		st      store.Store
		cleanup = func() error { return nil }
	)
	switch cfg.Storage.Driver {
	case "postgres":
		var lifetime time.Duration
		if cfg.Storage.Postgres.ConnMaxLifetime != "" {
			lifetime, _ = time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		}
		pgStore, err := pg.New(ctx, cfg.Storage.Postgres.DSN, pg.Options{
			MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		st = pgStore
		cleanup = func() error { pgStore.Close(); return nil }
	default:
		st = supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
	}

	// Verify pipeline
	keys := firebase.NewKeySet(c, cfg.JWKSTTLDuration())
	verifier := firebase.NewVerifier(keys, cfg.Firebase.ProjectID)
	reconciler := reconcile.New(st)

	service := authsvc.NewVerifyService(authsvc.Deps{
		Verifier:   verifier,
		Reconciler: reconciler,
	})

	// Rate limiter opcional
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		window, _ := time.ParseDuration(cfg.Rate.Verify.Window)
		if redisCli != nil {
			limiter = rate.NewRedisLimiter(redisCli.Client(), "rl:verify:", cfg.Rate.Verify.Limit, window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Verify.Limit, window)
		}
	}

	h := router.New(router.Deps{
		Verify:             authctrl.NewVerifyController(service),
		Health:             healthctrl.New(st),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
	return h, cleanup, nil
}
