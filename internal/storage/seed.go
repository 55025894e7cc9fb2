package storage

import (
	"errors"
	"fmt"

	"gamebay/internal/models"
)

// ErrAlreadySeeded is returned when any collection already holds data. The
// seed endpoint is one-shot; re-running it never duplicates fixtures.
var ErrAlreadySeeded = errors.New("datastore already contains data")

// SeedAdminPassword is the password assigned to the fixture admin account.
// Deployments are expected to change it immediately after seeding.
const SeedAdminPassword = "changeme"

var seedCategories = []CategoryParams{
	{Name: "RPG", Slug: "RPG", Icon: "Sword"},
	{Name: "Экшен", Slug: "Action", Icon: "Zap"},
	{Name: "Гонки", Slug: "Racing", Icon: "Car"},
}

var seedTorrents = []TorrentParams{
	{
		Title:       "Counter-Strike 2",
		Poster:      "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps/730/ss_0f8cf82d019c614760fd20801f2bb4001da7ea77.1920x1080.jpg?t=1749053861",
		Downloads:   0,
		Size:        16.0,
		Category:    []string{"action", "RPG"},
		Description: "Более двух десятилетий Counter-Strike служит примером первоклассной соревновательной игры, путь развития которой определяют миллионы игроков со всего мира. Теперь пришло время нового этапа — Counter-Strike 2.",
		SteamDeck:   true,
		SteamRating: intPtr(4755307),
	},
}

type seedUser struct {
	Username string
	Email    string
	IsAdmin  bool
}

var seedUsers = []seedUser{
	{Username: "Kot", Email: "igorkochetkow@yandex.ru", IsAdmin: true},
}

func intPtr(v int) *int { return &v }

// Seed inserts the fixture dataset. It refuses to run when any collection is
// non-empty so the endpoint can stay reachable without risking duplicates.
func (s *Storage) Seed() (SeedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Torrents) > 0 || len(s.data.Categories) > 0 || len(s.data.Users) > 0 {
		return SeedResult{}, ErrAlreadySeeded
	}

	updatedData := cloneDataset(s.data)
	for _, params := range seedCategories {
		category := models.Category{
			ID:   newID(),
			Name: params.Name,
			Slug: params.Slug,
			Icon: params.Icon,
		}
		updatedData.Categories[category.ID] = category
	}
	for _, fixture := range seedUsers {
		hash, err := hashPassword(SeedAdminPassword)
		if err != nil {
			return SeedResult{}, fmt.Errorf("hash seed password: %w", err)
		}
		user := models.User{
			ID:           newID(),
			Username:     fixture.Username,
			Email:        fixture.Email,
			PasswordHash: hash,
			Avatar:       defaultAvatarURL(fixture.Username),
			FirstName:    fixture.Username,
			CreatedAt:    s.now(),
			IsAdmin:      fixture.IsAdmin,
		}
		updatedData.Users[user.ID] = user
	}
	for _, params := range seedTorrents {
		torrent := torrentFromParams(newID(), params)
		torrent.CreatedAt = s.now()
		updatedData.Torrents[torrent.ID] = torrent
	}

	if err := s.persistDataset(updatedData); err != nil {
		return SeedResult{}, err
	}
	s.data = updatedData
	return SeedResult{
		Categories: len(seedCategories),
		Users:      len(seedUsers),
		Torrents:   len(seedTorrents),
	}, nil
}
