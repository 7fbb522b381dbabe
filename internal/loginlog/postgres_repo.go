package loginlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) Insert(ctx context.Context, e *Entry) error {
	const query = `
	INSERT INTO login_logs (user_id, ip_address, logged_at)
	VALUES ($1, $2, $3)
	RETURNING id
	`
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, e.UserID, e.IPAddress, e.LoggedAt).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert login log: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	const query = `
	SELECT id, user_id, ip_address, logged_at
	FROM login_logs
	WHERE user_id = $1
	ORDER BY logged_at DESC
	LIMIT $2
	`
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Entry])
}
