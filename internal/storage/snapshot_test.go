package storage

import (
	"path/filepath"
	"testing"
)

func TestSnapshotExportsAllCollections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}

	if _, err := store.CreateCategory(CategoryParams{Name: "Action", Slug: "action"}); err != nil {
		t.Fatalf("CreateCategory error: %v", err)
	}
	if _, err := store.CreateTorrent(TorrentParams{Title: "Portal", Category: []string{"action"}}); err != nil {
		t.Fatalf("CreateTorrent error: %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "sam", Email: "sam@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if err := store.SetWarning("maintenance tonight"); err != nil {
		t.Fatalf("SetWarning error: %v", err)
	}

	snapshot := store.Snapshot()
	counts := snapshot.Counts()
	if counts.Torrents != 1 || counts.Categories != 1 || counts.Users != 1 || counts.Comments != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if snapshot.Warning != "maintenance tonight" {
		t.Fatalf("unexpected warning: %q", snapshot.Warning)
	}
	if snapshot.Torrents[0].Title != "Portal" {
		t.Fatalf("unexpected torrent title: %q", snapshot.Torrents[0].Title)
	}

	loaded, err := LoadSnapshotFromJSON(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFromJSON error: %v", err)
	}
	if loaded.Counts() != counts {
		t.Fatalf("expected on-disk snapshot to match live export: %+v vs %+v", loaded.Counts(), counts)
	}
	if loaded.Users[0].Email != "sam@example.com" {
		t.Fatalf("unexpected user email: %q", loaded.Users[0].Email)
	}
}

func TestLoadSnapshotFromJSONMissingFile(t *testing.T) {
	if _, err := LoadSnapshotFromJSON(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing datastore file")
	}
}
