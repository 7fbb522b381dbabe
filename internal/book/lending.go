package book

import (
	"fmt"
	"time"
)

// Borrow moves an available book to borrowed and records userID as the borrower.
// It returns a new snapshot; b is left untouched.
func Borrow(b Book, userID string, at time.Time) (Book, error) {
	if b.Status != StatusAvailable {
		return b, fmt.Errorf("%w: book %s is %s", ErrInvalidState, b.ID, b.Status)
	}

	next := b
	borrower := userID
	next.Status = StatusBorrowed
	next.BorrowerID = &borrower
	next.UpdatedAt = at
	return next, nil
}

// Return moves a borrowed book back to available. Only the current borrower may return it.
func Return(b Book, userID string, at time.Time) (Book, error) {
	if b.Status != StatusBorrowed {
		return b, fmt.Errorf("%w: book %s is %s", ErrInvalidState, b.ID, b.Status)
	}
	if b.BorrowerID == nil || *b.BorrowerID != userID {
		return b, fmt.Errorf("%w: user %s is not the borrower of book %s", ErrForbidden, userID, b.ID)
	}

	next := b
	next.Status = StatusAvailable
	next.BorrowerID = nil
	next.UpdatedAt = at
	return next, nil
}
