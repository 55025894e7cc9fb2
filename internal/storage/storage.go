package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gamebay/internal/models"
)

type dataset struct {
	Torrents   map[string]models.Torrent  `json:"torrents"`
	Categories map[string]models.Category `json:"categories"`
	Users      map[string]models.User     `json:"users"`
	Comments   map[string]models.Comment  `json:"comments"`
	Warning    string                     `json:"warning"`
}

// Storage is a JSON-file document store. All mutations take the write lock,
// apply against a clone of the dataset, persist the clone atomically, and
// only then swap it in, so a failed write never leaves partial state behind.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset

	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error

	now func() time.Time
}

func newDataset() dataset {
	return dataset{
		Torrents:   make(map[string]models.Torrent),
		Categories: make(map[string]models.Category),
		Users:      make(map[string]models.User),
		Comments:   make(map[string]models.Comment),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Torrents == nil {
		s.data.Torrents = make(map[string]models.Torrent)
	}
	if s.data.Categories == nil {
		s.data.Categories = make(map[string]models.Category)
	}
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{
		filePath: path,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()
	for id, torrent := range src.Torrents {
		cloned := torrent
		if torrent.Category != nil {
			cloned.Category = append([]string(nil), torrent.Category...)
		}
		if torrent.SteamRating != nil {
			rating := *torrent.SteamRating
			cloned.SteamRating = &rating
		}
		if torrent.MetacriticScore != nil {
			score := *torrent.MetacriticScore
			cloned.MetacriticScore = &score
		}
		clone.Torrents[id] = cloned
	}
	for id, category := range src.Categories {
		clone.Categories[id] = category
	}
	for id, user := range src.Users {
		clone.Users[id] = user
	}
	for id, comment := range src.Comments {
		clone.Comments[id] = comment
	}
	clone.Warning = src.Warning
	return clone
}
