package storage

import "errors"

var (
	// ErrInvalidCredentials is returned when an email/password pair does not
	// match a stored user. Callers surface a single generic message so the
	// response does not reveal which half failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned by CreateUser when the email is already
	// registered.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrUsernameTaken is returned by CreateUser when the username is already
	// registered. Unlike emails, usernames compare case-sensitively.
	ErrUsernameTaken = errors.New("user with this username already exists")
)

// TorrentFilter narrows ListTorrents. Empty fields match everything.
type TorrentFilter struct {
	Category string
	Search   string
}

// TorrentParams carries the caller-supplied fields for a torrent create or
// replace. The identifier and creation timestamp are assigned by the store.
type TorrentParams struct {
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

// CategoryParams carries the caller-supplied fields for a category create.
type CategoryParams struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Icon string `json:"icon"`
}

// CategoryUpdate applies a partial update. Nil fields are left unchanged.
type CategoryUpdate struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
	Icon *string `json:"icon"`
}

// CreateUserParams carries a registration request.
type CreateUserParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SeedResult reports how many records a seed run inserted.
type SeedResult struct {
	Categories int `json:"categories"`
	Users      int `json:"users"`
	Torrents   int `json:"torrents"`
}
