package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fptmart/backend/internal/domain"
)

func (a *API) userRoutes(r chi.Router) {
	r.Get("/roles", a.handleListRoles)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", a.handleListUsers)
		r.Post("/", a.handleCreateUser)
		r.Get("/{id}", a.handleGetUser)
		r.Patch("/{id}", a.handleUpdateUser)
		r.Post("/{id}/activate", a.handleActivateUser)
		r.Post("/{id}/deactivate", a.handleDeactivateUser)
		r.Post("/{id}/reset-password", a.handleResetPassword)
		r.Post("/{id}/roles/{roleID}", a.handleAssignRole)
		r.Delete("/{id}/roles/{roleID}", a.handleRemoveRole)
	})
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.service.ListRoles(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.ActivateUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.DeactivateUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.ResetPassword(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.AssignRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.RemoveRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
