package api

import (
	"net/http"
	"strings"
)

// Action words recognized in both the `action` query parameter and URL path
// segments. Anything else resolves to the plain torrent collection, with the
// segment itself acting as the torrent id.
var knownActions = map[string]bool{
	"stats":         true,
	"users":         true,
	"categories":    true,
	"auth":          true,
	"steam":         true,
	"migrate":       true,
	"warning":       true,
	"updateWarning": true,
}

// resolveAction determines the logical (action, id) pair for a request.
// Resolution order: the explicit `action` query parameter wins; otherwise a
// known action word anywhere in the path selects the action and the segment
// after it is the id; otherwise the last non-empty path segment is treated as
// a torrent id. The `id` query parameter overrides a path-derived id.
func resolveAction(r *http.Request) (action, id string) {
	query := r.URL.Query()

	segments := []string{}
	for _, segment := range strings.Split(r.URL.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	if explicit := query.Get("action"); explicit != "" {
		action = explicit
	} else {
		for i, segment := range segments {
			if knownActions[segment] {
				action = segment
				if i+1 < len(segments) {
					id = segments[i+1]
				}
				break
			}
		}
		if action == "" && len(segments) > 0 {
			id = segments[len(segments)-1]
		}
	}

	if queryID := query.Get("id"); queryID != "" {
		id = queryID
	}
	return action, id
}

// Dispatch is the catch-all entry point implementing the action table. CORS
// preflight is answered by middleware before this handler runs.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	action, id := resolveAction(r)

	switch action {
	case "stats":
		if r.Method == http.MethodGet {
			h.handleStats(w, r)
			return
		}
	case "users":
		switch r.Method {
		case http.MethodGet:
			h.handleListUsers(w, r)
			return
		case http.MethodPut:
			h.handleUpdateUserAdmin(w, r, id)
			return
		case http.MethodDelete:
			h.handleDeleteUser(w, r, id)
			return
		}
	case "categories":
		switch r.Method {
		case http.MethodGet:
			h.handleListCategories(w, r)
			return
		case http.MethodPost:
			h.handleCreateCategory(w, r)
			return
		case http.MethodPut:
			h.handleUpdateCategory(w, r, id)
			return
		case http.MethodDelete:
			h.handleDeleteCategory(w, r, id)
			return
		}
	case "auth":
		if r.Method == http.MethodPost {
			h.handleAuth(w, r)
			return
		}
	case "steam":
		if r.Method == http.MethodGet {
			h.handleSteamLookup(w, r)
			return
		}
	case "migrate":
		if r.Method == http.MethodPost {
			h.handleSeed(w, r)
			return
		}
	case "warning":
		if r.Method == http.MethodGet {
			h.handleGetWarning(w, r)
			return
		}
	case "updateWarning":
		if r.Method == http.MethodPost {
			h.handleUpdateWarning(w, r)
			return
		}
	default:
		// Plain torrent collection; a non-action segment is the torrent id.
		switch r.Method {
		case http.MethodPut:
			h.handleReplaceTorrent(w, r, id)
			return
		case http.MethodDelete:
			h.handleDeleteTorrent(w, r, id)
			return
		}
	}

	// Unmatched (action, method) pairs fall through to the plain torrent
	// branches in method order GET then POST, else 405.
	switch r.Method {
	case http.MethodGet:
		h.handleListTorrents(w, r)
	case http.MethodPost:
		h.handleCreateTorrent(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}
