// Package pg implementa store.Store directo contra la tabla auth.users de
// Supabase (Postgres), para despliegues con acceso a la base. Evita el hop
// por la admin API de GoTrue.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/firebridge/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

type Options struct {
	MaxConns        int
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) ListAccounts(ctx context.Context) ([]store.Account, error) {
	const q = `
		SELECT id, COALESCE(phone,''), COALESCE(email,''),
		       phone_confirmed_at IS NOT NULL, email_confirmed_at IS NOT NULL,
		       COALESCE(raw_user_meta_data,'{}'::jsonb), COALESCE(raw_app_meta_data,'{}'::jsonb)
		  FROM auth.users
		 WHERE deleted_at IS NULL`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, p store.CreateParams) (*store.Account, error) {
	const q = `
		INSERT INTO auth.users
		       (id, instance_id, aud, role, phone, email,
		        phone_confirmed_at, email_confirmed_at,
		        raw_user_meta_data, raw_app_meta_data, created_at, updated_at)
		VALUES ($1, '00000000-0000-0000-0000-000000000000', 'authenticated', 'authenticated',
		        NULLIF($2,''), NULLIF($3,''),
		        CASE WHEN $4 THEN NOW() END, CASE WHEN $5 THEN NOW() END,
		        $6, $7, NOW(), NOW())
		RETURNING id, COALESCE(phone,''), COALESCE(email,''),
		          phone_confirmed_at IS NOT NULL, email_confirmed_at IS NOT NULL,
		          COALESCE(raw_user_meta_data,'{}'::jsonb), COALESCE(raw_app_meta_data,'{}'::jsonb)`

	meta, app, err := encodeMeta(p.Metadata, p.Roles)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, q,
		uuid.New(), p.Phone, p.Email, p.PhoneConfirmed, p.EmailConfirmed, meta, app)
	return scanAccount(row.Scan)
}

func (s *Store) UpdateAccount(ctx context.Context, id string, p store.UpdateParams) (*store.Account, error) {
	const q = `
		UPDATE auth.users
		   SET raw_user_meta_data = COALESCE($2, raw_user_meta_data),
		       raw_app_meta_data  = COALESCE($3, raw_app_meta_data),
		       updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, COALESCE(phone,''), COALESCE(email,''),
		          phone_confirmed_at IS NOT NULL, email_confirmed_at IS NOT NULL,
		          COALESCE(raw_user_meta_data,'{}'::jsonb), COALESCE(raw_app_meta_data,'{}'::jsonb)`

	var meta, app []byte
	var err error
	if p.Metadata != nil || p.Roles != nil {
		meta, app, err = encodeMeta(p.Metadata, p.Roles)
		if err != nil {
			return nil, err
		}
	}
	if p.Metadata == nil {
		meta = nil
	}
	if p.Roles == nil {
		app = nil
	}
	a, err := scanAccount(s.pool.QueryRow(ctx, q, id, meta, app).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func encodeMeta(meta map[string]any, roles []string) ([]byte, []byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, err
	}
	ab, err := json.Marshal(map[string]any{"roles": roles})
	if err != nil {
		return nil, nil, err
	}
	return mb, ab, nil
}

func scanAccount(scan func(dest ...any) error) (*store.Account, error) {
	var a store.Account
	var metaRaw, appRaw []byte
	if err := scan(&a.ID, &a.Phone, &a.Email, &a.PhoneConfirmed, &a.EmailConfirmed, &metaRaw, &appRaw); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(metaRaw, &a.Metadata)
	var app struct {
		Roles []string `json:"roles"`
	}
	_ = json.Unmarshal(appRaw, &app)
	a.Roles = app.Roles
	return &a, nil
}
