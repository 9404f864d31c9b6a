package api

import (
	"net/http"

	"github.com/acampos/colegio/internal/service"
	"github.com/acampos/colegio/internal/store"
)

// NewRouter creates the API router with all endpoints registered.
// Role checks live in the services; the router only separates public
// from authenticated routes.
func NewRouter(st *store.Store, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	accounts := service.NewAccounts(st)
	library := service.NewLibrary(st)
	inventory := service.NewInventory(st)

	authHandler := &AuthHandler{Accounts: accounts, Store: st, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{Accounts: accounts}
	booksHandler := &BooksHandler{Library: library, Accounts: accounts}
	loansHandler := &LoansHandler{Library: library, Accounts: accounts}
	assetsHandler := &AssetsHandler{Inventory: inventory, Accounts: accounts, Store: st}

	authMW := AuthMiddleware(jwtSecret, st)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Session.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// User directory (admin only, enforced in the service).
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("POST /api/users", authMW(http.HandlerFunc(usersHandler.Create)))
	mux.Handle("GET /api/users/{username}", authMW(http.HandlerFunc(usersHandler.Get)))
	mux.Handle("PUT /api/users/{username}", authMW(http.HandlerFunc(usersHandler.Update)))
	mux.Handle("DELETE /api/users/{username}", authMW(http.HandlerFunc(usersHandler.Delete)))

	// Book catalog: read (all roles), write (library staff).
	mux.Handle("GET /api/books", authMW(http.HandlerFunc(booksHandler.List)))
	mux.Handle("POST /api/books", authMW(http.HandlerFunc(booksHandler.Create)))
	mux.Handle("PUT /api/books/{id}", authMW(http.HandlerFunc(booksHandler.Update)))
	mux.Handle("DELETE /api/books/{id}", authMW(http.HandlerFunc(booksHandler.Delete)))

	// Loans: self-service request and own history (all roles), the
	// full ledger and transitions (library staff).
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.List)))
	mux.Handle("GET /api/loans/mine", authMW(http.HandlerFunc(loansHandler.Mine)))
	mux.Handle("POST /api/loans/request", authMW(http.HandlerFunc(loansHandler.Request)))
	mux.Handle("POST /api/loans/borrow", authMW(http.HandlerFunc(loansHandler.Borrow)))
	mux.Handle("POST /api/loans/{id}/approve", authMW(http.HandlerFunc(loansHandler.Approve)))
	mux.Handle("POST /api/loans/{id}/reject", authMW(http.HandlerFunc(loansHandler.Reject)))
	mux.Handle("POST /api/loans/{id}/return", authMW(http.HandlerFunc(loansHandler.Return)))

	// Assets: read (all roles), everything else (asset staff).
	mux.Handle("GET /api/assets", authMW(http.HandlerFunc(assetsHandler.List)))
	mux.Handle("POST /api/assets", authMW(http.HandlerFunc(assetsHandler.Create)))
	mux.Handle("PUT /api/assets/{id}", authMW(http.HandlerFunc(assetsHandler.Update)))
	mux.Handle("DELETE /api/assets/{id}", authMW(http.HandlerFunc(assetsHandler.Delete)))
	mux.Handle("POST /api/assets/{id}/assign", authMW(http.HandlerFunc(assetsHandler.Assign)))
	mux.Handle("POST /api/assets/{id}/return", authMW(http.HandlerFunc(assetsHandler.Return)))
	mux.Handle("POST /api/assets/{id}/maintenance", authMW(http.HandlerFunc(assetsHandler.Maintenance)))
	mux.Handle("POST /api/assets/{id}/restore", authMW(http.HandlerFunc(assetsHandler.Restore)))
	mux.Handle("PUT /api/assets/{id}/image", authMW(http.HandlerFunc(assetsHandler.UploadImage)))
	mux.Handle("GET /api/assets/{id}/image", authMW(http.HandlerFunc(assetsHandler.GetImage)))
	mux.Handle("GET /api/transactions", authMW(http.HandlerFunc(assetsHandler.Transactions)))

	return mux
}
