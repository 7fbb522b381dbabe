package book

import (
	"context"
	"fmt"
	"log"
	"time"

	"libraryapi/internal/authz"
	"libraryapi/internal/notify"
)

// Service provides catalog and lending operations.
type Service struct {
	repo     Repository
	cache    PageCache
	notifier Notifier
	now      func() time.Time
}

// NewService creates a new book service.
func NewService(repo Repository, cache PageCache, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		now:      time.Now,
	}
}

// List returns one catalog page, served from the page cache when possible.
func (s *Service) List(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	return s.cache.GetOrCompute(ctx, page, func(ctx context.Context) (Page, error) {
		items, total, err := s.repo.List(ctx, PerPage, (page-1)*PerPage)
		if err != nil {
			return Page{}, err
		}
		return NewPage(items, total, page), nil
	})
}

// Get returns a book by its id.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a new available book.
func (s *Service) Create(ctx context.Context, p authz.Principal, title, author string, description *string) (Book, error) {
	if !p.Can(authz.CreateBooks) {
		return Book{}, ErrForbidden
	}

	b := &Book{
		Title:       title,
		Author:      author,
		Description: description,
		Status:      StatusAvailable,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Book{}, err
	}

	s.invalidate(ctx)
	return *b, nil
}

// Update applies a partial update to a book's descriptive fields.
func (s *Service) Update(ctx context.Context, p authz.Principal, id string, f Fields) (Book, error) {
	if !p.Can(authz.EditBooks) {
		return Book{}, ErrForbidden
	}
	if f.Empty() {
		return s.repo.GetByID(ctx, id)
	}

	b, err := s.repo.Update(ctx, id, f)
	if err != nil {
		return Book{}, err
	}

	s.invalidate(ctx)
	return b, nil
}

// Delete removes a book.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	if !p.Can(authz.DeleteBooks) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// Borrow lends an available book to the principal.
// The cached listing is left alone: only the status of an existing row changed,
// so listings may show stale availability until the cache TTL expires.
func (s *Service) Borrow(ctx context.Context, p authz.Principal, id string) (Book, error) {
	if !p.Can(authz.BorrowBooks) {
		return Book{}, ErrForbidden
	}

	at := s.now().UTC()
	b, err := s.repo.Transition(ctx, id, func(current Book) (Book, error) {
		return Borrow(current, p.UserID, at)
	})
	if err != nil {
		return Book{}, err
	}

	s.emit(notify.BookBorrowed(p.UserID, b.ID, b.Title, at))
	return b, nil
}

// Return hands a borrowed book back. Only the current borrower may return it.
func (s *Service) Return(ctx context.Context, p authz.Principal, id string) (Book, error) {
	if !p.Can(authz.ReturnBooks) {
		return Book{}, ErrForbidden
	}

	at := s.now().UTC()
	b, err := s.repo.Transition(ctx, id, func(current Book) (Book, error) {
		return Return(current, p.UserID, at)
	})
	if err != nil {
		return Book{}, err
	}

	s.emit(notify.BookReturned(p.UserID, b.ID, b.Title, at))
	return b, nil
}

// ClearCache evicts every cached catalog page.
func (s *Service) ClearCache(ctx context.Context, p authz.Principal) error {
	if !p.Can(authz.ClearCache) {
		return ErrForbidden
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("clear books cache: %w", err)
	}
	return nil
}

// invalidate must only run after the mutation committed. Failures are logged;
// the cache TTL still bounds staleness.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Printf("book cache_invalidation_failed error=%v", err)
	}
}

func (s *Service) emit(e notify.Event) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("book notify_failed kind=%s error=%v", e.Kind, r)
		}
	}()
	s.notifier.Emit(e)
}
