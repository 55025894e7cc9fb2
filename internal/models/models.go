package models

import "time"

// Torrent is a single catalog entry. Category holds zero or more category
// slugs; the scalar-category representation used by early datasets is not
// supported. CreatedAt orders torrents with equal download counts so list
// responses keep insertion order.
type Torrent struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Poster          string    `json:"poster"`
	Downloads       int       `json:"downloads"`
	Size            float64   `json:"size"`
	Category        []string  `json:"category"`
	Description     string    `json:"description"`
	SteamDeck       bool      `json:"steamDeck"`
	SteamRating     *int      `json:"steamRating"`
	MetacriticScore *int      `json:"metacriticScore"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Category groups torrents by slug membership. The torrent count is derived
// at read time from torrent category sets and never stored.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Icon string `json:"icon"`
}

// DefaultCategoryIcon is used when a category is created without an icon.
const DefaultCategoryIcon = "Gamepad2"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Avatar       string    `json:"avatar"`
	FirstName    string    `json:"firstName"`
	CreatedAt    time.Time `json:"createdAt"`
	IsAdmin      bool      `json:"isAdmin"`
}

// Comment exists only as a cascade-delete and aggregation target; there is no
// comment CRUD surface.
type Comment struct {
	ID        string    `json:"id"`
	TorrentID string    `json:"torrentId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats aggregates collection counts for the public stats endpoint.
type Stats struct {
	Games    int `json:"games"`
	Users    int `json:"users"`
	Comments int `json:"comments"`
}
