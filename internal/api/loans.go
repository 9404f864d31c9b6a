package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/service"
)

// LoansHandler handles the loan ledger endpoints.
type LoansHandler struct {
	Library  *service.Library
	Accounts *service.Accounts
}

type requestLoanRequest struct {
	BookID string `json:"bookId"`
}

type borrowRequest struct {
	BookID       string `json:"bookId"`
	BorrowerName string `json:"borrowerName"`
	Quantity     int    `json:"quantity"`
}

// List handles GET /api/loans. The full ledger is staff only.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	loans, err := h.Library.Loans(r.Context(), actor)
	if err != nil {
		serviceError(w, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Mine handles GET /api/loans/mine.
func (h *LoansHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	loans, err := h.Library.UserLoans(r.Context(), claims.Username)
	if err != nil {
		serviceError(w, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Request handles POST /api/loans/request: a self-service loan request
// that waits for staff approval.
func (h *LoansHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req requestLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" {
		jsonError(w, http.StatusBadRequest, "bookId required")
		return
	}

	loan, err := h.Library.RequestLoan(r.Context(), req.BookID, actor)
	if err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("loan requested", "user", actor.Username, "book", loan.BookTitle)
	jsonResponse(w, http.StatusCreated, loan)
}

// Approve handles POST /api/loans/{id}/approve.
func (h *LoansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "loan approved", h.Library.ApproveLoan)
}

// Reject handles POST /api/loans/{id}/reject.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "loan rejected", h.Library.RejectLoan)
}

// Return handles POST /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "loan returned", h.Library.ReturnBook)
}

func (h *LoansHandler) transition(w http.ResponseWriter, r *http.Request, event string,
	op func(ctx context.Context, actor model.User, loanID string) error) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	loanID := r.PathValue("id")
	if err := op(r.Context(), actor, loanID); err != nil {
		serviceError(w, err)
		return
	}

	slog.Info(event, "user", actor.Username, "loan", loanID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": event})
}

// Borrow handles POST /api/loans/borrow: a staff-recorded loan that
// skips the approval queue.
func (h *LoansHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" || req.BorrowerName == "" {
		jsonError(w, http.StatusBadRequest, "bookId and borrowerName required")
		return
	}

	loan, err := h.Library.BorrowBook(r.Context(), actor, req.BookID, req.BorrowerName, req.Quantity)
	if err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("loan recorded", "user", actor.Username, "book", loan.BookTitle, "borrower", req.BorrowerName)
	jsonResponse(w, http.StatusCreated, loan)
}
