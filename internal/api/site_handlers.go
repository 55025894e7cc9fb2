package api

import (
	"errors"
	"net/http"
)

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats()
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	result, err := h.Store.Seed()
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"seeded":  result,
	})
}

func (h *Handler) handleGetWarning(w http.ResponseWriter, r *http.Request) {
	warning, err := h.Store.Warning()
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"warning": warning})
}

type updateWarningRequest struct {
	Warning string `json:"warning"`
}

func (h *Handler) handleUpdateWarning(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireAdmin(r); err != nil {
		writeError(w, http.StatusUnauthorized, errAdminRequired)
		return
	}
	var req updateWarningRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if err := h.Store.SetWarning(req.Warning); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
