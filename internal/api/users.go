package api

import (
	"log/slog"
	"net/http"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/service"
)

// UsersHandler handles the user directory endpoints (admin only; the
// service enforces the gate).
type UsersHandler struct {
	Accounts *service.Accounts
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	users, err := h.Accounts.ListUsers(r.Context(), actor)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users. Unlike self-service registration,
// this path lets an admin create accounts with any role directly.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !model.IsAdmin(actor.Role) {
		jsonError(w, http.StatusForbidden, "user management requires the Admin role")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "username, password, email, and role required")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Accounts.Register(r.Context(), model.User{
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
	}, req.Password)
	if err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("user created", "user", actor.Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{username}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// Anyone may read their own record; the directory is admin only.
	username := r.PathValue("username")
	if username != actor.Username {
		if _, err := h.Accounts.ListUsers(r.Context(), actor); err != nil {
			serviceError(w, err)
			return
		}
	}

	user, err := h.Accounts.GetUser(r.Context(), username)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{username}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var patch service.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := r.PathValue("username")
	user, err := h.Accounts.UpdateUser(r.Context(), actor, username, patch)
	if err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("user updated", "user", actor.Username, "target_user", username)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{username}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	username := r.PathValue("username")

	// Prevent self-deletion.
	if username == actor.Username {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := h.Accounts.DeleteUser(r.Context(), actor, username); err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("user deleted", "user", actor.Username, "deleted_user", username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
