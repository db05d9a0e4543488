package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertFlagSQL = `
	INSERT INTO dashboard_flags (key, value, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at
`

// PostgresRepository stores flags in the dashboard_flags table. Values are
// JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	row := r.pool.QueryRow(ctx, `SELECT key, value, updated_at FROM dashboard_flags WHERE key = $1`, key)
	f, err := scanFlag(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	return f, err
}

func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM dashboard_flags`)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	flags := make(map[string]*Flag)
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags[f.Key] = f
	}
	return flags, rows.Err()
}

func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	now := time.Now()
	for _, f := range flags {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encode flag %s: %w", f.Key, err)
		}
		if _, err := tx.Exec(ctx, upsertFlagSQL, f.Key, value, now); err != nil {
			return fmt.Errorf("upsert flag %s: %w", f.Key, err)
		}
	}
	return tx.Commit(ctx)
}

func scanFlag(row pgx.Row) (*Flag, error) {
	var (
		f     Flag
		value []byte
	)
	if err := row.Scan(&f.Key, &value, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &f.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", f.Key, err)
	}
	return &f, nil
}

var _ Repository = (*PostgresRepository)(nil)
