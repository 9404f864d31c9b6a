package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/store"
)

// Accounts is the account directory: registration, login, the persisted
// session snapshot, and admin-only user management.
type Accounts struct {
	store *store.Store
}

// NewAccounts creates the account directory over the given store.
func NewAccounts(st *store.Store) *Accounts {
	return &Accounts{store: st}
}

func (a *Accounts) loadUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if _, err := a.store.Load(ctx, store.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Register appends a new user. Fails with ErrDuplicateKey when the
// username or email is already taken.
func (a *Accounts) Register(ctx context.Context, u model.User, password string) (model.User, error) {
	if u.Username == "" || u.Email == "" {
		return model.User{}, fmt.Errorf("%w: username and email required", ErrInvalidState)
	}
	if !model.ValidRole(u.Role) {
		return model.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidState, u.Role)
	}
	if err := model.ValidatePassword(password); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	users, err := a.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}

	for _, existing := range users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return model.User{}, fmt.Errorf("%w: username or email already registered", ErrDuplicateKey)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = string(hash)

	users = append(users, u)
	if err := a.store.Save(ctx, store.KeyUsers, users); err != nil {
		return model.User{}, err
	}

	return u.Sanitized(), nil
}

// Login verifies credentials, persists a password-stripped snapshot as
// the current session, and returns it. Fails with ErrInvalidCredentials
// on any mismatch.
func (a *Accounts) Login(ctx context.Context, username, password string) (model.User, error) {
	users, err := a.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}

	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			break
		}

		snapshot := u.Sanitized()
		if err := a.store.Save(ctx, store.KeySession, snapshot); err != nil {
			return model.User{}, err
		}
		return snapshot, nil
	}

	return model.User{}, ErrInvalidCredentials
}

// ChangePassword verifies the current password and replaces the stored
// hash. Fails with ErrInvalidCredentials when the current password does
// not match.
func (a *Accounts) ChangePassword(ctx context.Context, username, current, newPassword string) error {
	if err := model.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	users, err := a.loadUsers(ctx)
	if err != nil {
		return err
	}

	for i, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
			return ErrInvalidCredentials
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		users[i].PasswordHash = string(hash)
		return a.store.Save(ctx, store.KeyUsers, users)
	}

	return fmt.Errorf("%w: user %q", ErrNotFound, username)
}

// Logout clears the current session snapshot.
func (a *Accounts) Logout(ctx context.Context) error {
	return a.store.Delete(ctx, store.KeySession)
}

// CurrentUser returns the persisted session snapshot, or nil when nobody
// is logged in. A corrupted snapshot is self-healed: the stored value is
// dropped and the caller sees "no session".
func (a *Accounts) CurrentUser(ctx context.Context) (*model.User, error) {
	var u model.User
	found, err := a.store.Load(ctx, store.KeySession, &u)
	if err != nil {
		if errors.Is(err, store.ErrCorrupted) {
			_ = a.store.Delete(ctx, store.KeySession)
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &u, nil
}

// GetUser returns a password-stripped user by username.
func (a *Accounts) GetUser(ctx context.Context, username string) (model.User, error) {
	users, err := a.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u.Sanitized(), nil
		}
	}
	return model.User{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
}

// ListUsers returns all users, password-stripped. Admin only.
func (a *Accounts) ListUsers(ctx context.Context, actor model.User) ([]model.User, error) {
	if !model.IsAdmin(actor.Role) {
		return nil, fmt.Errorf("%w: user management requires the Admin role", ErrForbidden)
	}

	users, err := a.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// UserPatch is a partial update for a user record. Nil fields are left
// unchanged.
type UserPatch struct {
	Name    *string `json:"name,omitempty"`
	Surname *string `json:"surname,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Role    *string `json:"role,omitempty"`
}

// UpdateUser applies a patch to a user. Admin only. When the edited user
// is the one currently logged in, the session snapshot is refreshed so
// the session never serves stale fields.
func (a *Accounts) UpdateUser(ctx context.Context, actor model.User, username string, patch UserPatch) (model.User, error) {
	if !model.IsAdmin(actor.Role) {
		return model.User{}, fmt.Errorf("%w: user management requires the Admin role", ErrForbidden)
	}
	if patch.Role != nil && !model.ValidRole(*patch.Role) {
		return model.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidState, *patch.Role)
	}

	users, err := a.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}

	idx := -1
	for i, u := range users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.User{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}

	if patch.Email != nil && *patch.Email != users[idx].Email {
		for _, u := range users {
			if u.Username != username && u.Email == *patch.Email {
				return model.User{}, fmt.Errorf("%w: email already registered", ErrDuplicateKey)
			}
		}
	}

	u := users[idx]
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Surname != nil {
		u.Surname = *patch.Surname
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	users[idx] = u

	if err := a.store.Save(ctx, store.KeyUsers, users); err != nil {
		return model.User{}, err
	}

	// Keep the session snapshot in sync with the directory.
	session, err := a.CurrentUser(ctx)
	if err == nil && session != nil && session.Username == username {
		_ = a.store.Save(ctx, store.KeySession, u.Sanitized())
	}

	return u.Sanitized(), nil
}

// DeleteUser removes a user from the directory. Admin only. There is no
// cascade check against active loans or held assets; their records keep
// the denormalized name snapshots.
func (a *Accounts) DeleteUser(ctx context.Context, actor model.User, username string) error {
	if !model.IsAdmin(actor.Role) {
		return fmt.Errorf("%w: user management requires the Admin role", ErrForbidden)
	}

	users, err := a.loadUsers(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: user %q", ErrNotFound, username)
	}

	users = append(users[:idx], users[idx+1:]...)
	return a.store.Save(ctx, store.KeyUsers, users)
}
