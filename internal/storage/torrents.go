package storage

import (
	"errors"
	"sort"
	"strings"

	"gamebay/internal/models"
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrNegativeDownloads = errors.New("downloads must not be negative")
	ErrNegativeSize      = errors.New("size must not be negative")
	ErrNameRequired      = errors.New("name is required")
	ErrSlugRequired      = errors.New("slug is required")
	ErrUsernameRequired  = errors.New("username is required")
	ErrEmailRequired     = errors.New("email is required")
	ErrPasswordRequired  = errors.New("password is required")
)

func validateTorrentParams(params TorrentParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if params.Downloads < 0 {
		return ErrNegativeDownloads
	}
	if params.Size < 0 {
		return ErrNegativeSize
	}
	return nil
}

func torrentFromParams(id string, params TorrentParams) models.Torrent {
	category := params.Category
	if category == nil {
		category = []string{}
	} else {
		category = append([]string(nil), category...)
	}
	torrent := models.Torrent{
		ID:          id,
		Title:       strings.TrimSpace(params.Title),
		Poster:      params.Poster,
		Downloads:   params.Downloads,
		Size:        params.Size,
		Category:    category,
		Description: params.Description,
		SteamDeck:   params.SteamDeck,
	}
	if params.SteamRating != nil {
		rating := *params.SteamRating
		torrent.SteamRating = &rating
	}
	if params.MetacriticScore != nil {
		score := *params.MetacriticScore
		torrent.MetacriticScore = &score
	}
	return torrent
}

func torrentMatches(torrent models.Torrent, filter TorrentFilter) bool {
	if filter.Category != "" {
		found := false
		for _, slug := range torrent.Category {
			if slug == filter.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" {
		if !strings.Contains(strings.ToLower(torrent.Title), strings.ToLower(filter.Search)) {
			return false
		}
	}
	return true
}

func sortTorrents(torrents []models.Torrent) {
	sort.SliceStable(torrents, func(i, j int) bool {
		if torrents[i].Downloads != torrents[j].Downloads {
			return torrents[i].Downloads > torrents[j].Downloads
		}
		return torrents[i].CreatedAt.Before(torrents[j].CreatedAt)
	})
}

func (s *Storage) ListTorrents(filter TorrentFilter) ([]models.Torrent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	torrents := make([]models.Torrent, 0, len(s.data.Torrents))
	for _, torrent := range s.data.Torrents {
		if !torrentMatches(torrent, filter) {
			continue
		}
		cloned := torrent
		cloned.Category = append([]string(nil), torrent.Category...)
		torrents = append(torrents, cloned)
	}
	sortTorrents(torrents)
	return torrents, nil
}

func (s *Storage) GetTorrent(id string) (models.Torrent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	torrent, ok := s.data.Torrents[id]
	if !ok {
		return models.Torrent{}, false, nil
	}
	torrent.Category = append([]string(nil), torrent.Category...)
	return torrent, true, nil
}

func (s *Storage) CreateTorrent(params TorrentParams) (models.Torrent, error) {
	if err := validateTorrentParams(params); err != nil {
		return models.Torrent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	torrent := torrentFromParams(newID(), params)
	torrent.CreatedAt = s.now()

	updatedData := cloneDataset(s.data)
	updatedData.Torrents[torrent.ID] = torrent
	if err := s.persistDataset(updatedData); err != nil {
		return models.Torrent{}, err
	}
	s.data = updatedData
	return torrent, nil
}

// ReplaceTorrent overwrites every stored field of the torrent with the given
// id. A missing id is not an error; the call succeeds without effect.
func (s *Storage) ReplaceTorrent(id string, params TorrentParams) error {
	if err := validateTorrentParams(params); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Torrents[id]
	if !ok {
		return nil
	}

	torrent := torrentFromParams(id, params)
	torrent.CreatedAt = existing.CreatedAt

	updatedData := cloneDataset(s.data)
	updatedData.Torrents[id] = torrent
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// DeleteTorrent removes a torrent and every comment attached to it in one
// persisted write. A missing id succeeds without effect.
func (s *Storage) DeleteTorrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Torrents[id]; !ok {
		return nil
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Torrents, id)
	for commentID, comment := range updatedData.Comments {
		if comment.TorrentID == id {
			delete(updatedData.Comments, commentID)
		}
	}
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
