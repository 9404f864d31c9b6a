package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/store"
)

// Library is the book catalog and loan ledger. Loans follow a small state
// machine: Pending moves to Active (approve) or Rejected (reject), Active
// moves to Returned. Book stock moves in lockstep: it drops when a loan
// becomes Active and comes back when the loan is returned.
type Library struct {
	store *store.Store
}

// NewLibrary creates the library service over the given store.
func NewLibrary(st *store.Store) *Library {
	return &Library{store: st}
}

// seedBooks is the catalog written on first access.
func seedBooks() []model.Book {
	return []model.Book{
		{ID: "1", Title: "Cien años de soledad", Author: "Gabriel García Márquez", ISBN: "978-0307474728", Quantity: 5},
		{ID: "2", Title: "Don Quijote de la Mancha", Author: "Miguel de Cervantes", ISBN: "978-8420412146", Quantity: 3},
		{ID: "3", Title: "La ciudad y los perros", Author: "Mario Vargas Llosa", ISBN: "978-8466333924", Quantity: 4},
		{ID: "4", Title: "El principito", Author: "Antoine de Saint-Exupéry", ISBN: "978-0156013925", Quantity: 10},
	}
}

// Books returns the full catalog, seeding it on first access.
func (l *Library) Books(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	found, err := l.store.Load(ctx, store.KeyBooks, &books)
	if err != nil {
		return nil, err
	}
	if !found {
		books = seedBooks()
		if err := l.store.Save(ctx, store.KeyBooks, books); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (l *Library) loadLoans(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	if _, err := l.store.Load(ctx, store.KeyLoans, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// Loans returns the full loan ledger. Library staff only.
func (l *Library) Loans(ctx context.Context, actor model.User) ([]model.Loan, error) {
	if !model.CanManageLibrary(actor.Role) {
		return nil, fmt.Errorf("%w: loan management requires the Biblioteca role", ErrForbidden)
	}
	return l.loadLoans(ctx)
}

// UserLoans returns the loans requested by one user. Full scan, no
// pagination.
func (l *Library) UserLoans(ctx context.Context, userID string) ([]model.Loan, error) {
	loans, err := l.loadLoans(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Loan
	for _, loan := range loans {
		if loan.UserID == userID {
			out = append(out, loan)
		}
	}
	return out, nil
}

// RequestLoan creates a Pending loan for one copy of a book. The
// self-service path never lets the requester choose a quantity. Stock is
// untouched until a librarian approves.
func (l *Library) RequestLoan(ctx context.Context, bookID string, requester model.User) (model.Loan, error) {
	books, err := l.Books(ctx)
	if err != nil {
		return model.Loan{}, err
	}

	var book *model.Book
	for i := range books {
		if books[i].ID == bookID {
			book = &books[i]
			break
		}
	}
	if book == nil {
		return model.Loan{}, fmt.Errorf("%w: book %q", ErrNotFound, bookID)
	}
	if book.Quantity <= 0 {
		return model.Loan{}, fmt.Errorf("%w: no copies available to request", ErrInsufficientStock)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return model.Loan{}, err
	}

	loan := model.Loan{
		ID:           uuid.NewString(),
		BookID:       bookID,
		UserID:       requester.Username,
		BorrowerName: requester.FullName(),
		Quantity:     1,
		LoanDate:     time.Now().UTC().Format(time.RFC3339),
		Status:       model.LoanStatusPending,
		BookTitle:    book.Title,
	}

	loans = append(loans, loan)
	if err := l.store.Save(ctx, store.KeyLoans, loans); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// ApproveLoan flips a Pending loan to Active and takes its quantity out
// of stock. The loan date is reset to the approval instant, not the
// request instant.
func (l *Library) ApproveLoan(ctx context.Context, actor model.User, loanID string) error {
	if !model.CanManageLibrary(actor.Role) {
		return fmt.Errorf("%w: loan management requires the Biblioteca role", ErrForbidden)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return err
	}

	loanIdx := -1
	for i, loan := range loans {
		if loan.ID == loanID {
			loanIdx = i
			break
		}
	}
	if loanIdx == -1 {
		return fmt.Errorf("%w: loan request %q", ErrNotFound, loanID)
	}
	if loans[loanIdx].Status != model.LoanStatusPending {
		return fmt.Errorf("%w: loan request is not pending", ErrInvalidState)
	}

	books, err := l.Books(ctx)
	if err != nil {
		return err
	}

	bookIdx := -1
	for i, book := range books {
		if book.ID == loans[loanIdx].BookID {
			bookIdx = i
			break
		}
	}
	if bookIdx == -1 {
		return fmt.Errorf("%w: book %q", ErrNotFound, loans[loanIdx].BookID)
	}
	if books[bookIdx].Quantity < loans[loanIdx].Quantity {
		return fmt.Errorf("%w: not enough copies to approve the loan", ErrInsufficientStock)
	}

	books[bookIdx].Quantity -= loans[loanIdx].Quantity
	loans[loanIdx].Status = model.LoanStatusActive
	loans[loanIdx].LoanDate = time.Now().UTC().Format(time.RFC3339)

	if err := l.store.Save(ctx, store.KeyBooks, books); err != nil {
		return err
	}
	return l.store.Save(ctx, store.KeyLoans, loans)
}

// RejectLoan marks a Pending loan as Rejected. Terminal; stock was never
// taken so nothing is restored.
func (l *Library) RejectLoan(ctx context.Context, actor model.User, loanID string) error {
	if !model.CanManageLibrary(actor.Role) {
		return fmt.Errorf("%w: loan management requires the Biblioteca role", ErrForbidden)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return err
	}

	for i, loan := range loans {
		if loan.ID != loanID {
			continue
		}
		if loan.Status != model.LoanStatusPending {
			return fmt.Errorf("%w: loan request is not pending", ErrInvalidState)
		}
		loans[i].Status = model.LoanStatusRejected
		return l.store.Save(ctx, store.KeyLoans, loans)
	}

	return fmt.Errorf("%w: loan request %q", ErrNotFound, loanID)
}

// BorrowBook is the staff-direct path: stock drops immediately and the
// loan starts Active with no Pending stage. The loan record is attributed
// to the librarian; the borrower's name is a free-text snapshot.
func (l *Library) BorrowBook(ctx context.Context, actor model.User, bookID, borrowerName string, quantity int) (model.Loan, error) {
	if !model.CanManageLibrary(actor.Role) {
		return model.Loan{}, fmt.Errorf("%w: loan management requires the Biblioteca role", ErrForbidden)
	}
	if quantity <= 0 {
		return model.Loan{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidState)
	}

	books, err := l.Books(ctx)
	if err != nil {
		return model.Loan{}, err
	}

	bookIdx := -1
	for i, book := range books {
		if book.ID == bookID {
			bookIdx = i
			break
		}
	}
	if bookIdx == -1 {
		return model.Loan{}, fmt.Errorf("%w: book %q", ErrNotFound, bookID)
	}
	if books[bookIdx].Quantity < quantity {
		return model.Loan{}, fmt.Errorf("%w: not enough copies available", ErrInsufficientStock)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return model.Loan{}, err
	}

	books[bookIdx].Quantity -= quantity
	loan := model.Loan{
		ID:           uuid.NewString(),
		BookID:       bookID,
		UserID:       actor.Username,
		BorrowerName: borrowerName,
		Quantity:     quantity,
		LoanDate:     time.Now().UTC().Format(time.RFC3339),
		Status:       model.LoanStatusActive,
		BookTitle:    books[bookIdx].Title,
	}
	loans = append(loans, loan)

	if err := l.store.Save(ctx, store.KeyBooks, books); err != nil {
		return model.Loan{}, err
	}
	if err := l.store.Save(ctx, store.KeyLoans, loans); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// ReturnBook marks a loan Returned and restores its quantity to the
// book's stock. Only a second return of the same loan is rejected, so a
// Pending loan can be "returned" and restock copies that were never
// taken. A loan whose book has since been deleted still returns; there
// is no stock to restore.
func (l *Library) ReturnBook(ctx context.Context, actor model.User, loanID string) error {
	if !model.CanManageLibrary(actor.Role) {
		return fmt.Errorf("%w: loan management requires the Biblioteca role", ErrForbidden)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return err
	}

	loanIdx := -1
	for i, loan := range loans {
		if loan.ID == loanID {
			loanIdx = i
			break
		}
	}
	if loanIdx == -1 {
		return fmt.Errorf("%w: loan %q", ErrNotFound, loanID)
	}
	if loans[loanIdx].Status == model.LoanStatusReturned {
		return fmt.Errorf("%w: loan already returned", ErrInvalidState)
	}

	loans[loanIdx].Status = model.LoanStatusReturned
	loans[loanIdx].ReturnDate = time.Now().UTC().Format(time.RFC3339)

	if err := l.store.Save(ctx, store.KeyLoans, loans); err != nil {
		return err
	}

	books, err := l.Books(ctx)
	if err != nil {
		return err
	}
	for i := range books {
		if books[i].ID == loans[loanIdx].BookID {
			books[i].Quantity += loans[loanIdx].Quantity
			return l.store.Save(ctx, store.KeyBooks, books)
		}
	}
	return nil
}

// AddBook registers a new catalog entry. Library staff only.
func (l *Library) AddBook(ctx context.Context, actor model.User, title, author, isbn string, quantity int) (model.Book, error) {
	if !model.CanManageLibrary(actor.Role) {
		return model.Book{}, fmt.Errorf("%w: catalog management requires the Biblioteca role", ErrForbidden)
	}
	if quantity < 0 {
		return model.Book{}, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidState)
	}

	books, err := l.Books(ctx)
	if err != nil {
		return model.Book{}, err
	}

	book := model.Book{
		ID:       uuid.NewString(),
		Title:    title,
		Author:   author,
		ISBN:     isbn,
		Quantity: quantity,
	}
	books = append(books, book)
	if err := l.store.Save(ctx, store.KeyBooks, books); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

// UpdateBook replaces a catalog entry's fields. Library staff only.
// Existing loan records keep their title snapshots.
func (l *Library) UpdateBook(ctx context.Context, actor model.User, book model.Book) error {
	if !model.CanManageLibrary(actor.Role) {
		return fmt.Errorf("%w: catalog management requires the Biblioteca role", ErrForbidden)
	}
	if book.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidState)
	}

	books, err := l.Books(ctx)
	if err != nil {
		return err
	}

	for i := range books {
		if books[i].ID == book.ID {
			books[i] = book
			return l.store.Save(ctx, store.KeyBooks, books)
		}
	}
	return fmt.Errorf("%w: book %q", ErrNotFound, book.ID)
}

// DeleteBook removes a catalog entry. Refused while Pending or Active
// loans still reference it.
func (l *Library) DeleteBook(ctx context.Context, actor model.User, bookID string) error {
	if !model.CanManageLibrary(actor.Role) {
		return fmt.Errorf("%w: catalog management requires the Biblioteca role", ErrForbidden)
	}

	books, err := l.Books(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, book := range books {
		if book.ID == bookID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: book %q", ErrNotFound, bookID)
	}

	loans, err := l.loadLoans(ctx)
	if err != nil {
		return err
	}
	for _, loan := range loans {
		if loan.BookID == bookID &&
			(loan.Status == model.LoanStatusPending || loan.Status == model.LoanStatusActive) {
			return fmt.Errorf("%w: book has open loans", ErrInvalidState)
		}
	}

	books = append(books[:idx], books[idx+1:]...)
	return l.store.Save(ctx, store.KeyBooks, books)
}
