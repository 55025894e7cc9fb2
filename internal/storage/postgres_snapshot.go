package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ImportSnapshot writes a JSON-store snapshot into Postgres inside one
// transaction. Conflicting IDs are skipped rather than overwritten.
func (r *postgresRepository) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer rollbackTx(ctx, tx)

	for _, category := range snapshot.Categories {
		if _, err := tx.Exec(ctx, `
INSERT INTO categories (id, name, slug, icon)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`, category.ID, category.Name, category.Slug, category.Icon); err != nil {
			return fmt.Errorf("import category %s: %w", category.ID, err)
		}
	}
	for _, user := range snapshot.Users {
		if _, err := tx.Exec(ctx, `
INSERT INTO users (id, username, email, password_hash, avatar, first_name, created_at, is_admin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`, user.ID, user.Username, user.Email, user.PasswordHash, user.Avatar,
			user.FirstName, user.CreatedAt, user.IsAdmin); err != nil {
			return fmt.Errorf("import user %s: %w", user.ID, err)
		}
	}
	for _, torrent := range snapshot.Torrents {
		if _, err := tx.Exec(ctx, `
INSERT INTO torrents (id, title, poster, downloads, size, category, description, steam_deck, steam_rating, metacritic_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING
`, torrent.ID, torrent.Title, torrent.Poster, torrent.Downloads, torrent.Size, torrent.Category,
			torrent.Description, torrent.SteamDeck, torrent.SteamRating, torrent.MetacriticScore, torrent.CreatedAt); err != nil {
			return fmt.Errorf("import torrent %s: %w", torrent.ID, err)
		}
	}
	for _, comment := range snapshot.Comments {
		if _, err := tx.Exec(ctx, `
INSERT INTO comments (id, torrent_id, user_id, content, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`, comment.ID, comment.TorrentID, comment.UserID, comment.Content, comment.CreatedAt); err != nil {
			return fmt.Errorf("import comment %s: %w", comment.ID, err)
		}
	}
	if snapshot.Warning != "" {
		if _, err := tx.Exec(ctx, `
INSERT INTO site_settings (key, value)
VALUES ('warning', $1)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
`, snapshot.Warning); err != nil {
			return fmt.Errorf("import warning: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}
