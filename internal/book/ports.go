package book

import (
	"context"

	"libraryapi/internal/notify"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Book, int, error)
	GetByID(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, id string, f Fields) (Book, error)
	Delete(ctx context.Context, id string) error
	// Transition applies a lending transition to one row atomically.
	Transition(ctx context.Context, id string, apply func(Book) (Book, error)) (Book, error)
}

// PageCache caches computed catalog pages.
type PageCache interface {
	GetOrCompute(ctx context.Context, page int, compute func(context.Context) (Page, error)) (Page, error)
	InvalidateAll(ctx context.Context) error
}

// Notifier accepts fire-and-forget events.
type Notifier interface {
	Emit(e notify.Event)
}
