package notify

import "time"

// Kind identifies the type of an event.
type Kind string

const (
	KindBookBorrowed Kind = "book_borrowed"
	KindBookReturned Kind = "book_returned"
	KindUserLoggedIn Kind = "user_logged_in"
)

// Event is an immutable notification emitted by a completed operation.
type Event struct {
	Kind       Kind      `json:"kind"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id,omitempty"`
	BookTitle  string    `json:"book_title,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookBorrowed builds the event for a successful borrow.
func BookBorrowed(userID, bookID, title string, at time.Time) Event {
	return Event{Kind: KindBookBorrowed, UserID: userID, BookID: bookID, BookTitle: title, OccurredAt: at}
}

// BookReturned builds the event for a successful return.
func BookReturned(userID, bookID, title string, at time.Time) Event {
	return Event{Kind: KindBookReturned, UserID: userID, BookID: bookID, BookTitle: title, OccurredAt: at}
}

// UserLoggedIn builds the event for a successful login.
func UserLoggedIn(userID, ipAddress string, at time.Time) Event {
	return Event{Kind: KindUserLoggedIn, UserID: userID, IPAddress: ipAddress, OccurredAt: at}
}
