package api

import (
	"errors"
	"net/http"
	"time"

	"gamebay/internal/models"
	"gamebay/internal/storage"
)

type authRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success   bool         `json:"success"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// handleAuth serves both registration and login, selected by the body field
// `action` (default login).
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "login", "":
		h.login(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown auth action"))
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req authRequest) {
	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	h.issueSession(w, r, http.StatusCreated, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}
	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	h.issueSession(w, r, http.StatusOK, user)
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, status int, user models.User) {
	token, expiresAt, err := h.Sessions.Create(user.ID)
	if err != nil {
		h.Logger.Error("session creation failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}
	writeJSON(w, status, authResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		User:      newUserResponse(user),
	})
}
