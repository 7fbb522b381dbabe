package session

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pg        = goqu.Dialect("postgres")
	blacklist = goqu.T("token_blacklist")
)

// PostgresRepo keeps revoked jtis in token_blacklist.
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

// AddToken is idempotent per jti.
func (r *PostgresRepo) AddToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	query, args, err := pg.Insert(blacklist).
		Prepared(true).
		Rows(goqu.Record{"jti": jti, "user_id": userID, "expires_at": expiresAt}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build blacklist insert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *PostgresRepo) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	query, args, err := pg.From(blacklist).
		Prepared(true).
		Select(goqu.L("1")).
		Where(goqu.C("jti").Eq(jti), goqu.C("expires_at").Gt(goqu.L("now()"))).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build blacklist lookup: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	var found bool
	err = r.db.QueryRow(ctx, "SELECT EXISTS ("+query+")", args...).Scan(&found)
	return found, err
}

// CleanupExpired deletes rows whose token could no longer authenticate anyway.
func (r *PostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	query, args, err := pg.Delete(blacklist).
		Prepared(true).
		Where(goqu.C("expires_at").Lte(goqu.L("now()"))).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build blacklist cleanup: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup blacklist: %w", err)
	}
	return tag.RowsAffected(), nil
}
