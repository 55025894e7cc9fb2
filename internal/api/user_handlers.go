package api

import (
	"errors"
	"net/http"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireAdmin(r); err != nil {
		writeError(w, http.StatusUnauthorized, errAdminRequired)
		return
	}
	users, err := h.Store.ListUsers()
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, newUserResponse(user))
	}
	writeJSON(w, http.StatusOK, map[string][]userResponse{"users": responses})
}

type updateUserRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

func (h *Handler) handleUpdateUserAdmin(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.requireAdmin(r); err != nil {
		writeError(w, http.StatusUnauthorized, errAdminRequired)
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("user id is required"))
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if err := h.Store.SetUserAdmin(id, req.IsAdmin); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	admin, err := h.requireAdmin(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errAdminRequired)
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("user id is required"))
		return
	}
	if id == admin.ID {
		writeError(w, http.StatusBadRequest, errors.New("cannot delete your own account"))
		return
	}
	if err := h.Store.DeleteUser(id); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
