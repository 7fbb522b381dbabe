package book

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/authz"
	"libraryapi/internal/catalogcache"
	"libraryapi/internal/notify"
)

var (
	admin  = authz.NewPrincipal("admin-1", authz.RoleAdmin)
	reader = authz.NewPrincipal("user-1", authz.RoleUser)
	other  = authz.NewPrincipal("user-2", authz.RoleUser)
)

// memRepo is an in-memory Repository ordered by insertion.
type memRepo struct {
	mu    sync.Mutex
	seq   int
	books map[string]Book
	order []string
}

func newMemRepo() *memRepo {
	return &memRepo{books: make(map[string]Book)}
}

func (m *memRepo) List(_ context.Context, limit, offset int) ([]Book, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Book{}
	for i := offset; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.books[m.order[i]])
	}
	return out, len(m.order), nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (m *memRepo) Create(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b.ID = fmt.Sprintf("book-%03d", m.seq)
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.books[b.ID] = *b
	m.order = append(m.order, b.ID)
	return nil
}

func (m *memRepo) Update(_ context.Context, id string, f Fields) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	if f.Title != nil {
		b.Title = *f.Title
	}
	if f.Author != nil {
		b.Author = *f.Author
	}
	if f.Description != nil {
		b.Description = f.Description
	} else if f.ClearDescription {
		b.Description = nil
	}
	m.books[id] = b
	return b, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return ErrNotFound
	}
	delete(m.books, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memRepo) Transition(_ context.Context, id string, apply func(Book) (Book, error)) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	next, err := apply(b)
	if err != nil {
		return Book{}, err
	}
	m.books[id] = next
	return next, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Emit(e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

type panickingNotifier struct{}

func (panickingNotifier) Emit(notify.Event) { panic("listener exploded") }

func newCachedService(t *testing.T, repo Repository, n Notifier) *Service {
	t.Helper()
	cache, err := catalogcache.New[Page](catalogcache.DefaultConfig())
	require.NoError(t, err)
	return NewService(repo, cache, n)
}

func seedBooks(t *testing.T, s *Service, n int) []Book {
	t.Helper()
	out := make([]Book, 0, n)
	for i := 1; i <= n; i++ {
		b, err := s.Create(context.Background(), admin, fmt.Sprintf("Book %02d", i), "Author", nil)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestService_List_PaginatesAndCaches(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, nil)
	ctx := context.Background()
	seedBooks(t, s, 15)

	first, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 15, first.Total)
	assert.Equal(t, 2, first.LastPage)

	second, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)

	beyond, err := s.List(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 15, beyond.Total)
	assert.Equal(t, 9, beyond.Page)

	normalized, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, normalized.Page)
}

func TestService_Delete_InvalidatesEveryPage(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, nil)
	ctx := context.Background()
	books := seedBooks(t, s, 15)

	// warm both pages
	_, err := s.List(ctx, 1)
	require.NoError(t, err)
	_, err = s.List(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, admin, books[0].ID))

	first, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 14, first.Total)
	assert.Equal(t, books[1].ID, first.Items[0].ID)

	second, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 14, second.Total)
	assert.Len(t, second.Items, 4)
}

func TestService_Delete_EvictsTrailingPage(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, nil)
	ctx := context.Background()
	books := seedBooks(t, s, 11)

	tail, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tail.Items, 1)

	require.NoError(t, s.Delete(ctx, admin, books[10].ID))

	tail, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, tail.Items)
	assert.Equal(t, 1, tail.LastPage)
}

func TestService_Update_InvalidatesCache(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, nil)
	ctx := context.Background()
	books := seedBooks(t, s, 3)

	_, err := s.List(ctx, 1)
	require.NoError(t, err)

	title := "Renamed"
	updated, err := s.Update(ctx, admin, books[1].ID, Fields{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	page, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", page.Items[1].Title)
}

func TestService_Borrow_LeavesListingStaleUntilExpiry(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, nil)
	ctx := context.Background()
	books := seedBooks(t, s, 2)

	_, err := s.List(ctx, 1)
	require.NoError(t, err)

	borrowed, err := s.Borrow(ctx, reader, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, borrowed.Status)

	page, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, page.Items[0].Status)

	fresh, err := s.Get(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, fresh.Status)
}

func TestService_LendingFlow(t *testing.T) {
	repo := newMemRepo()
	n := &recordingNotifier{}
	s := newCachedService(t, repo, n)
	ctx := context.Background()
	b := seedBooks(t, s, 1)[0]

	borrowed, err := s.Borrow(ctx, reader, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", *borrowed.BorrowerID)

	_, err = s.Borrow(ctx, other, b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Return(ctx, other, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	returned, err := s.Return(ctx, reader, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, returned.Status)
	assert.Nil(t, returned.BorrowerID)

	_, err = s.Return(ctx, reader, b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.Len(t, n.events, 2)
	assert.Equal(t, notify.KindBookBorrowed, n.events[0].Kind)
	assert.Equal(t, "user-1", n.events[0].UserID)
	assert.Equal(t, b.ID, n.events[0].BookID)
	assert.Equal(t, "Book 01", n.events[0].BookTitle)
	assert.Equal(t, notify.KindBookReturned, n.events[1].Kind)
}

func TestService_Borrow_NotifierPanicDoesNotFailCall(t *testing.T) {
	repo := newMemRepo()
	s := newCachedService(t, repo, panickingNotifier{})
	ctx := context.Background()
	b := seedBooks(t, s, 1)[0]

	borrowed, err := s.Borrow(ctx, reader, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, borrowed.Status)
}

func TestService_Borrow_UnknownBook(t *testing.T) {
	s := newCachedService(t, newMemRepo(), nil)

	_, err := s.Borrow(context.Background(), reader, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CapabilityChecks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)
	ctx := context.Background()
	anonymous := authz.Principal{}

	_, err := s.Create(ctx, reader, "t", "a", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Update(ctx, reader, "id", Fields{})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, s.Delete(ctx, reader, "id"), ErrForbidden)
	assert.ErrorIs(t, s.ClearCache(ctx, reader), ErrForbidden)

	_, err = s.Borrow(ctx, admin, "id")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Return(ctx, admin, "id")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Borrow(ctx, anonymous, "id")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_Create_CacheFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
		b.ID = "new-id"
		return nil
	})
	cache.EXPECT().InvalidateAll(gomock.Any()).Return(errors.New("cache offline"))

	b, err := s.Create(context.Background(), admin, "Title", "Author", nil)
	require.NoError(t, err)
	assert.Equal(t, "new-id", b.ID)
	assert.Equal(t, StatusAvailable, b.Status)
}

func TestService_Create_RepositoryFailureSkipsInvalidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))

	_, err := s.Create(context.Background(), admin, "Title", "Author", nil)
	assert.Error(t, err)
}

func TestService_Update_EmptyFieldsIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)

	repo.EXPECT().GetByID(gomock.Any(), "b1").Return(Book{ID: "b1", Title: "Same"}, nil)

	b, err := s.Update(context.Background(), admin, "b1", Fields{})
	require.NoError(t, err)
	assert.Equal(t, "Same", b.Title)
}

func TestService_Delete_NotFoundSkipsInvalidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)

	repo.EXPECT().Delete(gomock.Any(), "gone").Return(ErrNotFound)

	assert.ErrorIs(t, s.Delete(context.Background(), admin, "gone"), ErrNotFound)
}

func TestService_Borrow_UsesInjectedClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	n := NewMockNotifier(ctrl)
	s := NewService(repo, cache, n)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return at }

	repo.EXPECT().Transition(gomock.Any(), "b1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, apply func(Book) (Book, error)) (Book, error) {
			return apply(Book{ID: "b1", Title: "Dune", Status: StatusAvailable})
		})
	n.EXPECT().Emit(notify.BookBorrowed("user-1", "b1", "Dune", at))

	b, err := s.Borrow(context.Background(), reader, "b1")
	require.NoError(t, err)
	assert.Equal(t, at, b.UpdatedAt)
}

func TestService_ClearCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := NewMockRepository(ctrl)
	cache := NewMockPageCache(ctrl)
	s := NewService(repo, cache, nil)

	cache.EXPECT().InvalidateAll(gomock.Any()).Return(nil)
	assert.NoError(t, s.ClearCache(context.Background(), admin))

	cache.EXPECT().InvalidateAll(gomock.Any()).Return(errors.New("boom"))
	assert.Error(t, s.ClearCache(context.Background(), admin))
}
