package api

import (
	"errors"
	"net/http"

	"gamebay/internal/models"
	"gamebay/internal/storage"
)

// torrentRequest mirrors the wire shape of a torrent create/replace body. The
// id field is accepted and ignored so clients may echo back full records.
type torrentRequest struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Poster          string   `json:"poster"`
	Downloads       int      `json:"downloads"`
	Size            float64  `json:"size"`
	Category        []string `json:"category"`
	Description     string   `json:"description"`
	SteamDeck       bool     `json:"steamDeck"`
	SteamRating     *int     `json:"steamRating"`
	MetacriticScore *int     `json:"metacriticScore"`
}

func (req torrentRequest) params() storage.TorrentParams {
	return storage.TorrentParams{
		Title:           req.Title,
		Poster:          req.Poster,
		Downloads:       req.Downloads,
		Size:            req.Size,
		Category:        req.Category,
		Description:     req.Description,
		SteamDeck:       req.SteamDeck,
		SteamRating:     req.SteamRating,
		MetacriticScore: req.MetacriticScore,
	}
}

func (h *Handler) handleListTorrents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.TorrentFilter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
	}
	torrents, err := h.Store.ListTorrents(filter)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Torrent{"torrents": torrents})
}

func (h *Handler) handleCreateTorrent(w http.ResponseWriter, r *http.Request) {
	var req torrentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	torrent, err := h.Store.CreateTorrent(req.params())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      torrent.ID,
	})
}

func (h *Handler) handleReplaceTorrent(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("torrent id is required"))
		return
	}
	var req torrentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if err := h.Store.ReplaceTorrent(id, req.params()); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDeleteTorrent(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("torrent id is required"))
		return
	}
	if err := h.Store.DeleteTorrent(id); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
