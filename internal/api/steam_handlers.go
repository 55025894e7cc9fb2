package api

import (
	"errors"
	"net/http"

	"gamebay/internal/steam"
)

func (h *Handler) handleSteamLookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	urlOrID := query.Get("url")
	if urlOrID == "" {
		urlOrID = query.Get("appId")
	}
	if urlOrID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing url or appId parameter"))
		return
	}

	details, err := h.Steam.Lookup(r.Context(), urlOrID)
	if err != nil {
		switch {
		case errors.Is(err, steam.ErrInvalidAppID):
			h.Metrics.ObserveSteamLookup("invalid_input")
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, steam.ErrNotFound):
			// Matches the upstream contract: unavailable games surface as a
			// server error, not a 404.
			h.Metrics.ObserveSteamLookup("not_found")
			writeError(w, http.StatusInternalServerError, err)
		default:
			h.Metrics.ObserveSteamLookup("error")
			h.Logger.Error("steam lookup failed", "input", urlOrID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("steam lookup failed"))
		}
		return
	}
	h.Metrics.ObserveSteamLookup("success")
	writeJSON(w, http.StatusOK, details)
}
