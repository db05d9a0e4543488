package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breatheroute/aqdash/internal/page"
)

// PostgresRepository stores records in the notification_history table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return ErrInvalidRecord
	}

	query := `
		INSERT INTO notification_history (id, kind, message, raw, shown_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			message = EXCLUDED.message,
			raw = EXCLUDED.raw,
			shown_at = EXCLUDED.shown_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query, rec.ID, string(rec.Kind), rec.Message, rec.Raw, rec.ShownAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save notification %s: %w", rec.ID, err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, kind, message, raw, shown_at, expires_at
		FROM notification_history
		ORDER BY shown_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			kind string
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Message, &rec.Raw, &rec.ShownAt, &rec.ExpiresAt); err != nil {
			return nil, err
		}
		rec.Kind = page.ParseKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
