package api

import (
	"net/http"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/service"
)

// BooksHandler handles the book catalog endpoints.
type BooksHandler struct {
	Library  *service.Library
	Accounts *service.Accounts
}

type bookRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Quantity int    `json:"quantity"`
}

// List handles GET /api/books. The catalog is readable by every
// authenticated user.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.Library.Books(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	book, err := h.Library.AddBook(r.Context(), actor, req.Title, req.Author, req.ISBN, req.Quantity)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, book)
}

// Update handles PUT /api/books/{id}.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	book := model.Book{
		ID:       r.PathValue("id"),
		Title:    req.Title,
		Author:   req.Author,
		ISBN:     req.ISBN,
		Quantity: req.Quantity,
	}
	if err := h.Library.UpdateBook(r.Context(), actor, book); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Library.DeleteBook(r.Context(), actor, r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}
