package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gamebay/internal/models"
)

// Snapshot is a point-in-time export of the JSON datastore, used by the
// offline migration tool to move a deployment onto Postgres.
type Snapshot struct {
	Torrents   []models.Torrent
	Categories []models.Category
	Users      []models.User
	Comments   []models.Comment
	Warning    string
}

// SnapshotCounts summarises the collection sizes of a snapshot.
type SnapshotCounts struct {
	Torrents   int
	Categories int
	Users      int
	Comments   int
}

func (s Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{
		Torrents:   len(s.Torrents),
		Categories: len(s.Categories),
		Users:      len(s.Users),
		Comments:   len(s.Comments),
	}
}

// LoadSnapshotFromJSON reads a JSON datastore file into a Snapshot.
func LoadSnapshotFromJSON(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open datastore: %w", err)
	}
	defer file.Close()

	var data dataset
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return Snapshot{}, fmt.Errorf("decode datastore: %w", err)
	}
	return snapshotFromDataset(data), nil
}

// Snapshot exports the current dataset, primarily for migrations off a live
// JSON store.
func (s *Storage) Snapshot() Snapshot {
	s.mu.RLock()
	data := cloneDataset(s.data)
	s.mu.RUnlock()
	return snapshotFromDataset(data)
}

// snapshotFromDataset flattens the keyed collections into ID-ordered slices
// so repeated exports of the same data are deterministic.
func snapshotFromDataset(data dataset) Snapshot {
	snapshot := Snapshot{Warning: data.Warning}
	for _, torrent := range data.Torrents {
		snapshot.Torrents = append(snapshot.Torrents, torrent)
	}
	for _, category := range data.Categories {
		snapshot.Categories = append(snapshot.Categories, category)
	}
	for _, user := range data.Users {
		snapshot.Users = append(snapshot.Users, user)
	}
	for _, comment := range data.Comments {
		snapshot.Comments = append(snapshot.Comments, comment)
	}
	sort.Slice(snapshot.Torrents, func(i, j int) bool { return snapshot.Torrents[i].ID < snapshot.Torrents[j].ID })
	sort.Slice(snapshot.Categories, func(i, j int) bool { return snapshot.Categories[i].ID < snapshot.Categories[j].ID })
	sort.Slice(snapshot.Users, func(i, j int) bool { return snapshot.Users[i].ID < snapshot.Users[j].ID })
	sort.Slice(snapshot.Comments, func(i, j int) bool { return snapshot.Comments[i].ID < snapshot.Comments[j].ID })
	return snapshot
}

// ImportSnapshotToPostgres loads a snapshot into a Postgres-backed
// repository. The import runs in a single transaction; rows that already
// exist are left untouched, so reruns are safe.
func ImportSnapshotToPostgres(ctx context.Context, repo Repository, snapshot Snapshot) error {
	importer, ok := repo.(interface {
		ImportSnapshot(context.Context, Snapshot) error
	})
	if !ok {
		return fmt.Errorf("repository does not support snapshot import")
	}
	return importer.ImportSnapshot(ctx, snapshot)
}
