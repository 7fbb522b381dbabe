package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBorrow(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("available book becomes borrowed", func(t *testing.T) {
		b := Book{ID: "b1", Title: "Dune", Status: StatusAvailable}

		next, err := Borrow(b, "u1", at)
		require.NoError(t, err)
		assert.Equal(t, StatusBorrowed, next.Status)
		require.NotNil(t, next.BorrowerID)
		assert.Equal(t, "u1", *next.BorrowerID)
		assert.Equal(t, at, next.UpdatedAt)
		assert.NoError(t, next.Valid())

		// the input snapshot is untouched
		assert.Equal(t, StatusAvailable, b.Status)
		assert.Nil(t, b.BorrowerID)
	})

	t.Run("borrowed book is rejected", func(t *testing.T) {
		b := Book{ID: "b1", Status: StatusBorrowed, BorrowerID: strPtr("u2")}

		_, err := Borrow(b, "u1", at)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("borrower cannot borrow the same book twice", func(t *testing.T) {
		b := Book{ID: "b1", Status: StatusBorrowed, BorrowerID: strPtr("u1")}

		_, err := Borrow(b, "u1", at)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestReturn(t *testing.T) {
	at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("borrower returns the book", func(t *testing.T) {
		b := Book{ID: "b1", Status: StatusBorrowed, BorrowerID: strPtr("u1")}

		next, err := Return(b, "u1", at)
		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, next.Status)
		assert.Nil(t, next.BorrowerID)
		assert.Equal(t, at, next.UpdatedAt)
		assert.NoError(t, next.Valid())
		assert.Equal(t, StatusBorrowed, b.Status)
	})

	t.Run("available book is rejected", func(t *testing.T) {
		b := Book{ID: "b1", Status: StatusAvailable}

		_, err := Return(b, "u1", at)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("only the borrower may return", func(t *testing.T) {
		b := Book{ID: "b1", Status: StatusBorrowed, BorrowerID: strPtr("u2")}

		_, err := Return(b, "u1", at)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NotErrorIs(t, err, ErrInvalidState)
	})
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	at := time.Now().UTC()
	b := Book{ID: "b1", Status: StatusAvailable}

	borrowed, err := Borrow(b, "u1", at)
	require.NoError(t, err)
	returned, err := Return(borrowed, "u1", at.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, StatusAvailable, returned.Status)
	assert.Nil(t, returned.BorrowerID)

	again, err := Borrow(returned, "u2", at.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "u2", *again.BorrowerID)
}

func TestBook_Valid(t *testing.T) {
	tests := []struct {
		name    string
		book    Book
		wantErr bool
	}{
		{"available without borrower", Book{Status: StatusAvailable}, false},
		{"available with borrower", Book{Status: StatusAvailable, BorrowerID: strPtr("u1")}, true},
		{"borrowed with borrower", Book{Status: StatusBorrowed, BorrowerID: strPtr("u1")}, false},
		{"borrowed without borrower", Book{Status: StatusBorrowed}, true},
		{"borrowed with empty borrower", Book{Status: StatusBorrowed, BorrowerID: strPtr("")}, true},
		{"unknown status", Book{Status: "lost"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Valid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		page     int
		lastPage int
	}{
		{"empty catalog", 0, 1, 1},
		{"exactly one page", 10, 1, 1},
		{"one over", 11, 2, 2},
		{"fifteen books", 15, 1, 2},
		{"beyond last page", 15, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(nil, tt.total, tt.page)
			assert.Equal(t, tt.lastPage, p.LastPage)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, PerPage, p.PerPage)
			assert.NotNil(t, p.Items)
			assert.Empty(t, p.Items)
		})
	}
}
