package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres stores keys in a single trivial table. Last write wins — ровно та
// же семантика, что и у браузерного localStorage, который он заменяет.
type Postgres struct{ DB *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// EnsureSchema creates the backing table if missing. Safe to call on boot.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists kv_store (
  key        text primary key,
  value      text not null,
  updated_at timestamptz not null default now()
)`
	if _, err := p.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("kv schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `select value from kv_store where key = $1`
	var v string
	err := p.DB.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	const q = `
insert into kv_store (key, value) values ($1, $2)
on conflict (key) do update
set value = excluded.value, updated_at = now()`
	_, err := p.DB.ExecContext(ctx, q, key, value)
	return err
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	const q = `delete from kv_store where key = $1`
	_, err := p.DB.ExecContext(ctx, q, key)
	return err
}
