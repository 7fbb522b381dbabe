package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookColumns = `id, title, author, description, status, borrower_id, created_at, updated_at`

var (
	pg               = goqu.Dialect("postgres")
	returningColumns = []any{"id", "title", "author", "description", "status", "borrower_id", "created_at", "updated_at"}
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Status, &b.BorrowerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

// validID rejects ids that can never resolve, so they surface as ErrNotFound
// instead of a uuid cast error from Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]Book, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	const query = `
		SELECT ` + bookColumns + `
		FROM books
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(timeoutCtx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	if !validID(id) {
		return Book{}, ErrNotFound
	}
	const query = `SELECT ` + bookColumns + ` FROM books WHERE id = $1 LIMIT 1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanBook(r.db.QueryRow(timeoutCtx, query, id))
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
		INSERT INTO books (id, title, author, description, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 'available')
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	created, err := scanBook(r.db.QueryRow(timeoutCtx, query, b.Title, b.Author, b.Description))
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	*b = created
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, f Fields) (Book, error) {
	if !validID(id) {
		return Book{}, ErrNotFound
	}

	record := goqu.Record{"updated_at": goqu.L("now()")}
	if f.Title != nil {
		record["title"] = *f.Title
	}
	if f.Author != nil {
		record["author"] = *f.Author
	}
	if f.Description != nil {
		record["description"] = *f.Description
	} else if f.ClearDescription {
		record["description"] = nil
	}

	query, args, err := pg.Update("books").
		Prepared(true).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(returningColumns...).
		ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build update: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanBook(r.db.QueryRow(timeoutCtx, query, args...))
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition locks the row, runs apply against the locked snapshot and writes the
// result with a conditional update, all in one transaction. A concurrent writer that
// changed the status first makes the update match zero rows, which is reported as
// ErrInvalidState.
func (r *PostgresRepo) Transition(ctx context.Context, id string, apply func(Book) (Book, error)) (Book, error) {
	if !validID(id) {
		return Book{}, ErrNotFound
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Book{}, err
	}
	defer tx.Rollback(timeoutCtx)

	const selectSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`
	current, err := scanBook(tx.QueryRow(timeoutCtx, selectSQL, id))
	if err != nil {
		return Book{}, err
	}

	next, err := apply(current)
	if err != nil {
		return Book{}, err
	}
	if err := next.Valid(); err != nil {
		return Book{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	const updateSQL = `
		UPDATE books
		SET status = $2, borrower_id = $3, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + bookColumns

	updated, err := scanBook(tx.QueryRow(timeoutCtx, updateSQL, id, next.Status, next.BorrowerID, next.UpdatedAt, current.Status))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Book{}, fmt.Errorf("%w: book %s changed concurrently", ErrInvalidState, id)
		}
		return Book{}, err
	}

	if err := tx.Commit(timeoutCtx); err != nil {
		return Book{}, err
	}
	return updated, nil
}
