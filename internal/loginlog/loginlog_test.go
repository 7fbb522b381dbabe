package loginlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/notify"
	"libraryapi/internal/testutil"
)

type memRepo struct {
	entries []Entry
}

func (m *memRepo) Insert(_ context.Context, e *Entry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string, limit int) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestListener_RecordsLoginsOnly(t *testing.T) {
	repo := &memRepo{}
	l := NewListener(repo)
	at := time.Now().UTC()
	ctx := context.Background()

	require.NoError(t, l.Handle(ctx, notify.UserLoggedIn("u1", "10.1.1.1", at)))
	require.NoError(t, l.Handle(ctx, notify.BookBorrowed("u1", "b1", "Dune", at)))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "u1", repo.entries[0].UserID)
	assert.Equal(t, "10.1.1.1", repo.entries[0].IPAddress)
	assert.Equal(t, at, repo.entries[0].LoggedAt)
}

func TestListener_ThroughDispatcher(t *testing.T) {
	repo := &memRepo{}
	d := notify.NewDispatcher(4, NewListener(repo))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Emit(notify.UserLoggedIn("u1", "10.1.1.1", time.Now()))
	d.Close()

	assert.Len(t, repo.entries, 1)
}

func TestPostgresRepo_InsertAndList(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPostgresRepo(db, 5*time.Second)
	ctx := context.Background()
	userID := testutil.InsertUser(t, db, "audited@example.com", "USER")

	first := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	second := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Insert(ctx, &Entry{UserID: userID, IPAddress: "10.0.0.1", LoggedAt: first}))
	e := &Entry{UserID: userID, IPAddress: "10.0.0.2", LoggedAt: second}
	require.NoError(t, repo.Insert(ctx, e))
	assert.NotZero(t, e.ID)

	got, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.2", got[0].IPAddress)
	assert.True(t, second.Equal(got[0].LoggedAt))
}
