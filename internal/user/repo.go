package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, password, avatar, is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u      models.User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &avatar, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Avatar = avatar.String
	return &u, nil
}

func (r *Repo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = $1
	`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, strings.TrimSpace(username))

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (r *Repo) Create(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, email, passwordHash).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update writes only the fields set in upd. Password is expected to be
// hashed by the caller. Returns nil when the user does not exist.
func (r *Repo) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	var set []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Password != nil {
		add("password", *upd.Password)
	}
	if upd.Avatar != nil {
		add("avatar", *upd.Avatar)
	}

	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		UPDATE users
		SET %s, updated_at = CURRENT_TIMESTAMP
		WHERE id = $%d
	`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

// WatchedAnime lists every anime the user has watched at least one
// episode of, most recently watched first.
func (r *Repo) WatchedAnime(ctx context.Context, userID int64) ([]models.WatchedAnime, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.title, a.original_title, a.slug, a.description, a.release_year,
		       a.status, a.type, a.episodes_count, a.poster, a.rating, a.views,
		       a.created_at, a.updated_at,
		       MAX(we.watched_at) AS last_watched
		FROM animes a
		JOIN episodes e ON e.anime_id = a.id
		JOIN watched_episodes we ON we.episode_id = e.id
		WHERE we.user_id = $1
		GROUP BY a.id, a.title, a.original_title, a.slug, a.description, a.release_year,
		         a.status, a.type, a.episodes_count, a.poster, a.rating, a.views,
		         a.created_at, a.updated_at
		ORDER BY last_watched DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("watched anime query: %w", err)
	}
	defer rows.Close()

	var out []models.WatchedAnime
	for rows.Next() {
		var (
			w             models.WatchedAnime
			originalTitle sql.NullString
			description   sql.NullString
			releaseYear   sql.NullInt64
			poster        sql.NullString
			lastWatched   any
		)
		if err := rows.Scan(
			&w.ID, &w.Title, &originalTitle, &w.Slug, &description, &releaseYear,
			&w.Status, &w.Type, &w.EpisodesCount, &poster, &w.Rating, &w.Views,
			&w.CreatedAt, &w.UpdatedAt, &lastWatched,
		); err != nil {
			return nil, fmt.Errorf("scan watched anime: %w", err)
		}
		ts, err := parseTimestamp(lastWatched)
		if err != nil {
			return nil, fmt.Errorf("parse last_watched: %w", err)
		}
		w.OriginalTitle = originalTitle.String
		w.Description = description.String
		if releaseYear.Valid {
			w.ReleaseYear = int(releaseYear.Int64)
		}
		w.Poster = poster.String
		w.LastWatched = ts
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("watched anime rows: %w", err)
	}
	return out, nil
}

// timestampLayouts covers the textual forms SQLite stores for
// TIMESTAMP values; aggregate columns lose their declared type, so the
// driver hands them back unparsed.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseTimestampString(string(t))
	case string:
		return parseTimestampString(t)
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}

func parseTimestampString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Favorites lists the user's favorited anime, newest first.
func (r *Repo) Favorites(ctx context.Context, userID int64) ([]models.FavoriteAnime, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.title, a.original_title, a.slug, a.description, a.release_year,
		       a.status, a.type, a.episodes_count, a.poster, a.rating, a.views,
		       a.created_at, a.updated_at, f.added_at
		FROM animes a
		JOIN favorites f ON f.anime_id = a.id
		WHERE f.user_id = $1
		ORDER BY f.added_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorites query: %w", err)
	}
	defer rows.Close()

	var out []models.FavoriteAnime
	for rows.Next() {
		var (
			f             models.FavoriteAnime
			originalTitle sql.NullString
			description   sql.NullString
			releaseYear   sql.NullInt64
			poster        sql.NullString
		)
		if err := rows.Scan(
			&f.ID, &f.Title, &originalTitle, &f.Slug, &description, &releaseYear,
			&f.Status, &f.Type, &f.EpisodesCount, &poster, &f.Rating, &f.Views,
			&f.CreatedAt, &f.UpdatedAt, &f.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan favorite anime: %w", err)
		}
		f.OriginalTitle = originalTitle.String
		f.Description = description.String
		if releaseYear.Valid {
			f.ReleaseYear = int(releaseYear.Int64)
		}
		f.Poster = poster.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorites rows: %w", err)
	}
	return out, nil
}
