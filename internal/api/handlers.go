// Package api implements the catalog's action-dispatch HTTP surface: a single
// handler resolves (method, action) pairs and maps them onto the storage
// repository, the session manager, and the Steam lookup client.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gamebay/internal/auth"
	"gamebay/internal/models"
	"gamebay/internal/observability/metrics"
	"gamebay/internal/steam"
	"gamebay/internal/storage"
)

// Handler bundles the dependencies shared by every dispatch branch.
type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Steam    *steam.Client
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// NewHandler constructs a Handler, defaulting the Steam client, logger, and
// metrics recorder when not supplied.
func NewHandler(store storage.Repository, sessions *auth.SessionManager, opts ...HandlerOption) *Handler {
	handler := &Handler{
		Store:    store,
		Sessions: sessions,
		Steam:    steam.NewClient(),
		Logger:   slog.Default(),
		Metrics:  metrics.Default(),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithSteamClient overrides the Steam lookup client.
func WithSteamClient(client *steam.Client) HandlerOption {
	return func(h *Handler) {
		if client != nil {
			h.Steam = client
		}
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.Logger = logger
		}
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(recorder *metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		if recorder != nil {
			h.Metrics = recorder
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors from
// middleware outside this package.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// storeError maps storage sentinel errors to client statuses; anything else
// is an internal fault logged server-side and reported generically.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrTitleRequired),
		errors.Is(err, storage.ErrNegativeDownloads),
		errors.Is(err, storage.ErrNegativeSize),
		errors.Is(err, storage.ErrNameRequired),
		errors.Is(err, storage.ErrSlugRequired),
		errors.Is(err, storage.ErrUsernameRequired),
		errors.Is(err, storage.ErrEmailRequired),
		errors.Is(err, storage.ErrPasswordRequired),
		errors.Is(err, storage.ErrEmailTaken),
		errors.Is(err, storage.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, storage.ErrAlreadySeeded):
		writeError(w, http.StatusConflict, err)
	default:
		h.Logger.Error("storage operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

// ExtractToken pulls a bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

var errAdminRequired = errors.New("admin access required")

// requireAdmin resolves the request's bearer token to an admin user. Both a
// missing session and a non-admin user yield the same error so callers cannot
// probe which tokens exist.
func (h *Handler) requireAdmin(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, errAdminRequired
	}
	userID, ok, err := h.Sessions.Validate(token)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, errAdminRequired
	}
	user, found, err := h.Store.GetUser(userID)
	if err != nil {
		return models.User{}, err
	}
	if !found || !user.IsAdmin {
		return models.User{}, errAdminRequired
	}
	return user, nil
}

// userResponse is the client-facing user shape; the password hash never
// crosses the wire.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	FirstName string    `json:"firstName"`
	CreatedAt time.Time `json:"createdAt"`
	IsAdmin   bool      `json:"isAdmin"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		FirstName: user.FirstName,
		CreatedAt: user.CreatedAt,
		IsAdmin:   user.IsAdmin,
	}
}
