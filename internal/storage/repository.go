package storage

import (
	"context"

	"gamebay/internal/models"
)

// Repository exposes the datastore operations required by the API dispatcher.
// Exactly one implementation is selected at startup: the JSON document store
// or the Postgres repository. Backends are never mixed within a deployment.
type Repository interface {
	Ping(ctx context.Context) error

	ListTorrents(filter TorrentFilter) ([]models.Torrent, error)
	GetTorrent(id string) (models.Torrent, bool, error)
	CreateTorrent(params TorrentParams) (models.Torrent, error)
	ReplaceTorrent(id string, params TorrentParams) error
	DeleteTorrent(id string) error

	ListCategories() ([]CategoryWithCount, error)
	CreateCategory(params CategoryParams) (models.Category, error)
	UpdateCategory(id string, update CategoryUpdate) error
	DeleteCategory(id string) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	ListUsers() ([]models.User, error)
	GetUser(id string) (models.User, bool, error)
	SetUserAdmin(id string, isAdmin bool) error
	DeleteUser(id string) error

	Stats() (models.Stats, error)

	Warning() (string, error)
	SetWarning(text string) error

	Seed() (SeedResult, error)
}

var (
	_ Repository = (*Storage)(nil)
	_ Repository = (*postgresRepository)(nil)
)
