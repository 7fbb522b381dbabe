package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book id does not resolve.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidState is returned when an action is not legal in the book's current status.
	ErrInvalidState = errors.New("book is not in a valid state for this action")
	// ErrForbidden is returned when the caller lacks the relationship or capability an action needs.
	ErrForbidden = errors.New("forbidden")
)

// PerPage is the fixed size of a catalog page.
const PerPage = 10

// Status is the lending status of a book.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBorrowed  Status = "borrowed"
)

// Book represents a single lendable book record.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	BorrowerID  *string   `json:"borrower_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Valid reports whether the status and borrower reference agree.
func (b Book) Valid() error {
	switch b.Status {
	case StatusAvailable:
		if b.BorrowerID != nil {
			return errors.New("available book must not have a borrower")
		}
	case StatusBorrowed:
		if b.BorrowerID == nil || *b.BorrowerID == "" {
			return errors.New("borrowed book must have a borrower")
		}
	default:
		return errors.New("unknown book status " + string(b.Status))
	}
	return nil
}

// Page is one fixed-size slice of the catalog plus pagination metadata.
type Page struct {
	Items    []Book `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	LastPage int    `json:"last_page"`
}

// NewPage builds page metadata for a 1-based page number.
func NewPage(items []Book, total, page int) Page {
	if items == nil {
		items = []Book{}
	}
	lastPage := (total + PerPage - 1) / PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	return Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PerPage:  PerPage,
		LastPage: lastPage,
	}
}

// Fields holds a partial admin update. Nil pointers leave the column untouched.
type Fields struct {
	Title            *string
	Author           *string
	Description      *string
	ClearDescription bool
}

// Empty reports whether the update changes nothing.
func (f Fields) Empty() bool {
	return f.Title == nil && f.Author == nil && f.Description == nil && !f.ClearDescription
}
