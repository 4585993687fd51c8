// Package directory resolves Telegram identities to known household members
// using a small Postgres table.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jqlim/expense-bot/internal/service"
)

// Directory is a Postgres-backed service.UserDirectory.
type Directory struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, postgresDSN string) (*Directory, error) {
	poolConfig, err := pgxpool.ParseConfig(postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging pool: %w", err)
	}

	return &Directory{pool: pool}, nil
}

// Close releases the connection pool.
func (d *Directory) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// LookupByTelegramID implements the service.UserDirectory interface. A
// missing user is not an error; callers fall back to the shared identity.
func (d *Directory) LookupByTelegramID(ctx context.Context, telegramID string) (*service.DirectoryUser, error) {
	query := `SELECT telegram_id, first_name, last_name FROM users WHERE telegram_id = $1`
	u := service.DirectoryUser{}
	err := d.pool.QueryRow(ctx, query, telegramID).Scan(&u.TelegramID, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user %s: %w", telegramID, err)
	}
	return &u, nil
}
