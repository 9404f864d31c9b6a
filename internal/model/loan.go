package model

// Loan records a book leaving inventory into a borrower's possession.
// BookTitle and BorrowerName are historical snapshots taken when the loan
// was created; they survive later renames.
type Loan struct {
	ID           string `json:"id"`
	BookID       string `json:"bookId"`
	UserID       string `json:"userId"`
	BorrowerName string `json:"borrowerName"`
	Quantity     int    `json:"quantity"`
	LoanDate     string `json:"loanDate"`
	ReturnDate   string `json:"returnDate,omitempty"`
	Status       string `json:"status"`
	BookTitle    string `json:"bookTitle"`
}

// Loan statuses. Pending moves to Active (approve) or Rejected (reject);
// Active moves to Returned. Rejected and Returned are terminal.
const (
	LoanStatusPending  = "Pending"
	LoanStatusActive   = "Active"
	LoanStatusRejected = "Rejected"
	LoanStatusReturned = "Returned"
)
