package book

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"libraryapi/internal/authz"
	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createBookReq struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Author      string  `json:"author" validate:"required,notblank,max=255"`
	Description *string `json:"description"`
}

// updateBookReq keeps the raw description so an explicit null can clear it.
type updateBookReq struct {
	Title       *string         `json:"title" validate:"omitempty,notblank,max=255"`
	Author      *string         `json:"author" validate:"omitempty,notblank,max=255"`
	Description json.RawMessage `json:"description"`
}

// List handles GET /api/books
// @Summary Retrieve paginated list of books
// @Tags books
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /api/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "page must be an integer", nil)
			return
		}
		page = n
	}

	result, err := h.service.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, result, nil)
}

// Get handles GET /api/books/{id}
// @Summary Retrieve a specific book
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /api/books
// @Summary Create a new book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body createBookReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /api/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation error", details)
		return
	}

	b, err := h.service.Create(r.Context(), principal(r), req.Title, req.Author, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PUT /api/books/{id}
// @Summary Update a book's details
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Param request body updateBookReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /api/books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation error", details)
		return
	}

	f := Fields{Title: trimmed(req.Title), Author: trimmed(req.Author)}
	if len(req.Description) > 0 {
		if string(req.Description) == "null" {
			f.ClearDescription = true
		} else {
			var d string
			if err := json.Unmarshal(req.Description, &d); err != nil {
				httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation error",
					[]httpx.ErrorDetail{{Field: "description", Message: "The description field must be a string."}})
				return
			}
			f.Description = &d
		}
	}

	b, err := h.service.Update(r.Context(), principal(r), r.PathValue("id"), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /api/books/{id}
// @Summary Delete a book
// @Tags books
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 204 "No Content"
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// Borrow handles POST /api/books/{id}/borrow
// @Summary Borrow a book
// @Tags lending
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/books/{id}/borrow [post]
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Borrow(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Return handles POST /api/books/{id}/return
// @Summary Return a borrowed book
// @Tags lending
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/books/{id}/return [post]
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Return(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// ClearCache handles POST /api/admin/cache/clear
// @Summary Clear the cache for all books pages
// @Tags admin
// @Security Bearer
// @Success 204 "No Content"
// @Failure 403 {object} httpx.ErrorResponse
// @Router /api/admin/cache/clear [post]
func (h *HTTPHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context(), principal(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrInvalidState):
		httpx.JSONError(w, r, http.StatusConflict, "INVALID_STATE", invalidStateMessage(r), nil)
	case errors.Is(err, ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, "FORBIDDEN", forbiddenMessage(r), nil)
	default:
		log.Printf("book request_failed request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

func invalidStateMessage(r *http.Request) string {
	if strings.HasSuffix(r.URL.Path, "/return") {
		return "Book is not currently borrowed"
	}
	return "Book is not available for borrowing"
}

func forbiddenMessage(r *http.Request) string {
	if strings.HasSuffix(r.URL.Path, "/return") {
		return "You are not the borrower of this book"
	}
	return "User does not have the right permissions"
}

func principal(r *http.Request) authz.Principal {
	p, _ := httpx.PrincipalFrom(r)
	return p
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
