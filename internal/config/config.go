package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Firebase struct {
		// ProjectID define el trust domain: issuer esperado
		// https://securetoken.google.com/<project_id> y audience == project_id.
		ProjectID string `yaml:"project_id"`
		// JWKSTTL es el TTL de fallback para el JWKS cuando la respuesta
		// no trae Cache-Control max-age.
		JWKSTTL string `yaml:"jwks_ttl"`
	} `yaml:"firebase"`

	Supabase struct {
		URL            string `yaml:"url"`
		ServiceRoleKey string `yaml:"service_role_key"`
	} `yaml:"supabase"`

	Storage struct {
		// admin-api (GoTrue admin HTTP) | postgres (acceso directo a auth.users)
		Driver   string `yaml:"driver"`
		Postgres struct {
			DSN             string `yaml:"dsn"`
			MaxOpenConns    int    `yaml:"max_open_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Verify  struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"verify"`
	} `yaml:"rate"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Firebase.JWKSTTL == "" {
		c.Firebase.JWKSTTL = "1h"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "admin-api"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Rate.Verify.Limit == 0 {
		c.Rate.Verify.Limit = 30
	}
	if c.Rate.Verify.Window == "" {
		c.Rate.Verify.Window = "1m"
	}

	// validate string durations
	for _, d := range []string{c.Firebase.JWKSTTL, c.Cache.Memory.DefaultTTL, c.Rate.Verify.Window} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, err
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	// Overrides por env
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// FIREBASE
	if v, ok := getEnvStr("FIREBASE_PROJECT_ID"); ok {
		c.Firebase.ProjectID = v
	}
	if v, ok := getEnvStr("FIREBASE_JWKS_TTL"); ok {
		c.Firebase.JWKSTTL = v
	}

	// SUPABASE
	if v, ok := getEnvStr("SUPABASE_URL"); ok {
		c.Supabase.URL = v
	}
	if v, ok := getEnvStr("SUPABASE_SERVICE_ROLE_KEY"); ok {
		c.Supabase.ServiceRoleKey = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
}

// Validate chequea lo mínimo para arrancar. El resto de valores tienen
// defaults razonables.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Firebase.ProjectID) == "" {
		return fmt.Errorf("config: firebase.project_id is required")
	}
	switch c.Storage.Driver {
	case "admin-api":
		if strings.TrimSpace(c.Supabase.URL) == "" {
			return fmt.Errorf("config: supabase.url is required for driver admin-api")
		}
		if _, err := url.Parse(c.Supabase.URL); err != nil {
			return fmt.Errorf("config: supabase.url: %w", err)
		}
		if strings.TrimSpace(c.Supabase.ServiceRoleKey) == "" {
			return fmt.Errorf("config: supabase.service_role_key is required for driver admin-api")
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return fmt.Errorf("config: storage.postgres.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	return nil
}

// JWKSTTLDuration retorna el TTL parseado (el Load ya validó el formato).
func (c *Config) JWKSTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.Firebase.JWKSTTL)
	return d
}

// ─── env helpers ───

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
