package notify

import (
	"context"
	"log"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UserLookup resolves a user id to a display name.
type UserLookup interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// LogListener writes borrow and return notifications to the application log.
type LogListener struct {
	users UserLookup
}

// NewLogListener creates a LogListener. users may be nil, in which case ids are logged.
func NewLogListener(users UserLookup) *LogListener {
	return &LogListener{users: users}
}

func (l *LogListener) Handle(ctx context.Context, e Event) error {
	var verb string
	switch e.Kind {
	case KindBookBorrowed:
		verb = "borrowed"
	case KindBookReturned:
		verb = "returned"
	default:
		return nil
	}

	name := e.UserID
	if l.users != nil {
		if n, err := l.users.DisplayName(ctx, e.UserID); err == nil && n != "" {
			name = n
		}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	log.Printf("notify user %s %s book: %s payload=%s", name, verb, e.BookTitle, payload)
	return nil
}
