package model

// Book is a catalog entry. Quantity is the number of copies currently on
// the shelf; it never goes below zero.
type Book struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Quantity int    `json:"quantity"`
}
