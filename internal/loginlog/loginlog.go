package loginlog

import (
	"context"
	"fmt"
	"time"

	"libraryapi/internal/notify"
)

// Entry is one recorded login.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	LoggedAt  time.Time `json:"logged_at"`
}

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// Listener records user_logged_in events. Other kinds are ignored.
type Listener struct {
	repo Repository
}

func NewListener(repo Repository) *Listener {
	return &Listener{repo: repo}
}

func (l *Listener) Handle(ctx context.Context, e notify.Event) error {
	if e.Kind != notify.KindUserLoggedIn {
		return nil
	}
	err := l.repo.Insert(ctx, &Entry{
		UserID:    e.UserID,
		IPAddress: e.IPAddress,
		LoggedAt:  e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record login for %s: %w", e.UserID, err)
	}
	return nil
}
