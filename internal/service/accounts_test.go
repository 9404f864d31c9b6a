package service

import (
	"context"
	"errors"
	"testing"

	"github.com/acampos/colegio/internal/db"
	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/store"
)

func newTestAccounts(t *testing.T) (*Accounts, *store.Store) {
	t.Helper()
	st := store.New(db.NewTestDB(t))
	return NewAccounts(st), st
}

func testUser(username, email, role string) model.User {
	return model.User{
		Username: username,
		Name:     "Ana",
		Surname:  "García",
		Email:    email,
		Phone:    "555-0100",
		Role:     role,
	}
}

var admin = model.User{Username: "root", Name: "Root", Surname: "Admin", Role: model.RoleAdmin}

func TestRegisterAndLogin(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	u, err := accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash != "" {
		t.Error("expected registered user to come back password-stripped")
	}

	session, err := accounts.Login(ctx, "agarcia", "a-valid-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Username != "agarcia" || session.PasswordHash != "" {
		t.Errorf("unexpected session snapshot: %+v", session)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	if _, err := accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Same username, different email.
	_, err := accounts.Register(ctx, testUser("agarcia", "other@colegio.edu", model.RoleGeneral), "a-valid-password")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for duplicate username, got %v", err)
	}

	// Different username, same email.
	_, err = accounts.Register(ctx, testUser("bgarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for duplicate email, got %v", err)
	}

	// Both distinct succeeds.
	if _, err := accounts.Register(ctx, testUser("bgarcia", "b@colegio.edu", model.RoleGeneral), "a-valid-password"); err != nil {
		t.Errorf("Register with distinct keys: %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")

	if _, err := accounts.Login(ctx, "agarcia", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := accounts.Login(ctx, "nobody", "a-valid-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")

	if err := accounts.ChangePassword(ctx, "agarcia", "wrong", "another-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := accounts.ChangePassword(ctx, "ghost", "a-valid-password", "another-password"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}

	if err := accounts.ChangePassword(ctx, "agarcia", "a-valid-password", "another-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := accounts.Login(ctx, "agarcia", "a-valid-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password must stop working")
	}
	if _, err := accounts.Login(ctx, "agarcia", "another-password"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	// Nobody logged in yet.
	u, err := accounts.CurrentUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("CurrentUser before login = %v, %v", u, err)
	}

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")
	accounts.Login(ctx, "agarcia", "a-valid-password")

	u, err = accounts.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u == nil || u.Username != "agarcia" {
		t.Fatalf("unexpected session user: %+v", u)
	}

	if err := accounts.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	u, _ = accounts.CurrentUser(ctx)
	if u != nil {
		t.Error("expected no session after logout")
	}
}

func TestCorruptedSessionSelfHeals(t *testing.T) {
	accounts, st := newTestAccounts(t)
	ctx := context.Background()

	// Simulate a corrupted stored snapshot.
	if err := st.Save(ctx, store.KeySession, []int{1, 2, 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	u, err := accounts.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser on corrupted session: %v", err)
	}
	if u != nil {
		t.Error("expected corrupted session to read as logged out")
	}

	// The bad value is gone; a second read takes the clean path.
	var raw any
	found, _ := st.Load(ctx, store.KeySession, &raw)
	if found {
		t.Error("expected corrupted session value to be dropped")
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")

	_, err := accounts.ListUsers(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral))
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-admin, got %v", err)
	}

	users, err := accounts.ListUsers(ctx, admin)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].PasswordHash != "" {
		t.Errorf("unexpected user list: %+v", users)
	}
}

func TestUpdateUserRefreshesSession(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")
	accounts.Login(ctx, "agarcia", "a-valid-password")

	newRole := model.RoleLibrary
	newPhone := "555-0199"
	updated, err := accounts.UpdateUser(ctx, admin, "agarcia", UserPatch{Role: &newRole, Phone: &newPhone})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != model.RoleLibrary || updated.Phone != "555-0199" {
		t.Errorf("patch not applied: %+v", updated)
	}

	// The logged-in snapshot follows the edit.
	session, _ := accounts.CurrentUser(ctx)
	if session == nil || session.Role != model.RoleLibrary {
		t.Errorf("expected refreshed session, got %+v", session)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	name := "New"
	_, err := accounts.UpdateUser(ctx, admin, "ghost", UserPatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	accounts.Register(ctx, testUser("agarcia", "ana@colegio.edu", model.RoleGeneral), "a-valid-password")

	if err := accounts.DeleteUser(ctx, admin, "agarcia"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := accounts.DeleteUser(ctx, admin, "agarcia"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := accounts.DeleteUser(ctx, testUser("x", "x@x", model.RoleLibrary), "agarcia"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-admin, got %v", err)
	}
}
