package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamebay/internal/models"
)

const torrentColumns = "id, title, poster, downloads, size, category, description, steam_deck, steam_rating, metacritic_score, created_at"

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema. The pool is verified with a Ping before the repository is returned.
func NewPostgresRepository(ctx context.Context, dsn string) (Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &postgresRepository{pool: pool}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Pool exposes the underlying connection pool so the session store can share
// it instead of opening a second pool against the same database.
func (r *postgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		_ = err
	}
}

func scanTorrent(row pgx.Row) (models.Torrent, error) {
	var torrent models.Torrent
	err := row.Scan(
		&torrent.ID,
		&torrent.Title,
		&torrent.Poster,
		&torrent.Downloads,
		&torrent.Size,
		&torrent.Category,
		&torrent.Description,
		&torrent.SteamDeck,
		&torrent.SteamRating,
		&torrent.MetacriticScore,
		&torrent.CreatedAt,
	)
	if err != nil {
		return models.Torrent{}, err
	}
	if torrent.Category == nil {
		torrent.Category = []string{}
	}
	return torrent, nil
}

func (r *postgresRepository) ListTorrents(filter TorrentFilter) ([]models.Torrent, error) {
	ctx := context.Background()
	query := "SELECT " + torrentColumns + " FROM torrents"
	conditions := []string{}
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY (category)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY downloads DESC, created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}
	defer rows.Close()

	torrents := []models.Torrent{}
	for rows.Next() {
		torrent, err := scanTorrent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan torrent: %w", err)
		}
		torrents = append(torrents, torrent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}
	return torrents, nil
}

func (r *postgresRepository) GetTorrent(id string) (models.Torrent, bool, error) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+torrentColumns+" FROM torrents WHERE id = $1", id)
	torrent, err := scanTorrent(row)
	if err != nil {
		if isNoRows(err) {
			return models.Torrent{}, false, nil
		}
		return models.Torrent{}, false, fmt.Errorf("get torrent: %w", err)
	}
	return torrent, true, nil
}

func (r *postgresRepository) CreateTorrent(params TorrentParams) (models.Torrent, error) {
	if err := validateTorrentParams(params); err != nil {
		return models.Torrent{}, err
	}
	torrent := torrentFromParams(newID(), params)
	torrent.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(context.Background(), `
INSERT INTO torrents (id, title, poster, downloads, size, category, description, steam_deck, steam_rating, metacritic_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, torrent.ID, torrent.Title, torrent.Poster, torrent.Downloads, torrent.Size, torrent.Category,
		torrent.Description, torrent.SteamDeck, torrent.SteamRating, torrent.MetacriticScore, torrent.CreatedAt)
	if err != nil {
		return models.Torrent{}, fmt.Errorf("insert torrent: %w", err)
	}
	return torrent, nil
}

func (r *postgresRepository) ReplaceTorrent(id string, params TorrentParams) error {
	if err := validateTorrentParams(params); err != nil {
		return err
	}
	torrent := torrentFromParams(id, params)
	_, err := r.pool.Exec(context.Background(), `
UPDATE torrents
SET title = $2, poster = $3, downloads = $4, size = $5, category = $6, description = $7,
	steam_deck = $8, steam_rating = $9, metacritic_score = $10
WHERE id = $1
`, id, torrent.Title, torrent.Poster, torrent.Downloads, torrent.Size, torrent.Category,
		torrent.Description, torrent.SteamDeck, torrent.SteamRating, torrent.MetacriticScore)
	if err != nil {
		return fmt.Errorf("update torrent: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteTorrent(id string) error {
	// Comments reference torrents with ON DELETE CASCADE, so a single
	// statement removes the torrent and its comment subtree atomically.
	if _, err := r.pool.Exec(context.Background(), `DELETE FROM torrents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete torrent: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListCategories() ([]CategoryWithCount, error) {
	rows, err := r.pool.Query(context.Background(), `
SELECT c.id, c.name, c.slug, c.icon,
	(SELECT COUNT(*) FROM torrents t WHERE c.slug = ANY (t.category)) AS torrent_count
FROM categories c
ORDER BY c.name ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []CategoryWithCount{}
	for rows.Next() {
		var category CategoryWithCount
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.Icon, &category.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) CreateCategory(params CategoryParams) (models.Category, error) {
	if err := validateCategoryParams(params); err != nil {
		return models.Category{}, err
	}
	icon := strings.TrimSpace(params.Icon)
	if icon == "" {
		icon = models.DefaultCategoryIcon
	}
	category := models.Category{
		ID:   newID(),
		Name: strings.TrimSpace(params.Name),
		Slug: strings.TrimSpace(params.Slug),
		Icon: icon,
	}
	_, err := r.pool.Exec(context.Background(), `
INSERT INTO categories (id, name, slug, icon)
VALUES ($1, $2, $3, $4)
`, category.ID, category.Name, category.Slug, category.Icon)
	if err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

func (r *postgresRepository) UpdateCategory(id string, update CategoryUpdate) error {
	set := []string{}
	args := []any{id}
	appendField := func(column, value string) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return ErrNameRequired
		}
		appendField("name", trimmed)
	}
	if update.Slug != nil {
		trimmed := strings.TrimSpace(*update.Slug)
		if trimmed == "" {
			return ErrSlugRequired
		}
		appendField("slug", trimmed)
	}
	if update.Icon != nil {
		icon := strings.TrimSpace(*update.Icon)
		if icon == "" {
			icon = models.DefaultCategoryIcon
		}
		appendField("icon", icon)
	}
	if len(set) == 0 {
		return nil
	}
	query := "UPDATE categories SET " + strings.Join(set, ", ") + " WHERE id = $1"
	if _, err := r.pool.Exec(context.Background(), query, args...); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(id string) error {
	if _, err := r.pool.Exec(context.Background(), `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.FirstName,
		&user.CreatedAt,
		&user.IsAdmin,
	)
	return user, err
}

const userColumns = "id, username, email, password_hash, avatar, first_name, created_at, is_admin"

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	if err := validateCreateUserParams(params); err != nil {
		return models.User{}, err
	}
	hash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	username := strings.TrimSpace(params.Username)
	user := models.User{
		ID:           newID(),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: hash,
		Avatar:       defaultAvatarURL(username),
		FirstName:    username,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = r.pool.Exec(context.Background(), `
INSERT INTO users (id, username, email, password_hash, avatar, first_name, created_at, is_admin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, user.ID, user.Username, user.Email, user.PasswordHash, user.Avatar, user.FirstName, user.CreatedAt, user.IsAdmin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_username_idx" {
				return models.User{}, ErrUsernameTaken
			}
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(email, password string) (models.User, error) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)",
		strings.TrimSpace(email))
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !verifyPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (r *postgresRepository) ListUsers() ([]models.User, error) {
	rows, err := r.pool.Query(context.Background(),
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool, error) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) SetUserAdmin(id string, isAdmin bool) error {
	if _, err := r.pool.Exec(context.Background(),
		`UPDATE users SET is_admin = $2 WHERE id = $1`, id, isAdmin); err != nil {
		return fmt.Errorf("update user admin flag: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteUser(id string) error {
	if _, err := r.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *postgresRepository) Stats() (models.Stats, error) {
	row := r.pool.QueryRow(context.Background(), `
SELECT
	(SELECT COUNT(*) FROM torrents),
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM comments)
`)
	var stats models.Stats
	if err := row.Scan(&stats.Games, &stats.Users, &stats.Comments); err != nil {
		return models.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

const warningSettingKey = "warning"

func (r *postgresRepository) Warning() (string, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT value FROM site_settings WHERE key = $1`, warningSettingKey)
	var value string
	if err := row.Scan(&value); err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("read warning: %w", err)
	}
	return value, nil
}

func (r *postgresRepository) SetWarning(text string) error {
	_, err := r.pool.Exec(context.Background(), `
INSERT INTO site_settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
`, warningSettingKey, text)
	if err != nil {
		return fmt.Errorf("write warning: %w", err)
	}
	return nil
}

func (r *postgresRepository) Seed() (SeedResult, error) {
	ctx := context.Background()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SeedResult{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer rollbackTx(ctx, tx)

	var torrents, categories, users int
	row := tx.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM torrents),
	(SELECT COUNT(*) FROM categories),
	(SELECT COUNT(*) FROM users)
`)
	if err := row.Scan(&torrents, &categories, &users); err != nil {
		return SeedResult{}, fmt.Errorf("count existing rows: %w", err)
	}
	if torrents > 0 || categories > 0 || users > 0 {
		return SeedResult{}, ErrAlreadySeeded
	}

	for _, params := range seedCategories {
		if _, err := tx.Exec(ctx, `
INSERT INTO categories (id, name, slug, icon)
VALUES ($1, $2, $3, $4)
`, newID(), params.Name, params.Slug, params.Icon); err != nil {
			return SeedResult{}, fmt.Errorf("seed category: %w", err)
		}
	}
	for _, fixture := range seedUsers {
		hash, err := hashPassword(SeedAdminPassword)
		if err != nil {
			return SeedResult{}, fmt.Errorf("hash seed password: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO users (id, username, email, password_hash, avatar, first_name, created_at, is_admin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, newID(), fixture.Username, fixture.Email, hash, defaultAvatarURL(fixture.Username),
			fixture.Username, time.Now().UTC(), fixture.IsAdmin); err != nil {
			return SeedResult{}, fmt.Errorf("seed user: %w", err)
		}
	}
	for _, params := range seedTorrents {
		torrent := torrentFromParams(newID(), params)
		if _, err := tx.Exec(ctx, `
INSERT INTO torrents (id, title, poster, downloads, size, category, description, steam_deck, steam_rating, metacritic_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, torrent.ID, torrent.Title, torrent.Poster, torrent.Downloads, torrent.Size, torrent.Category,
			torrent.Description, torrent.SteamDeck, torrent.SteamRating, torrent.MetacriticScore, time.Now().UTC()); err != nil {
			return SeedResult{}, fmt.Errorf("seed torrent: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	return SeedResult{
		Categories: len(seedCategories),
		Users:      len(seedUsers),
		Torrents:   len(seedTorrents),
	}, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
