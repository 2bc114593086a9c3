package anime

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ListQuery carries the catalog paging and filter parameters. Page is
// 1-indexed; Limit falls back to 20.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Order  string
	Genre  int64  // 0 means no genre filter
	Search string // substring match on title / original_title
}

// sortColumns is the allow-list of sortable keys. "rating" sorts on the
// aggregated mean, everything else on the anime column itself.
var sortColumns = map[string]string{
	"title":          "a.title",
	"original_title": "a.original_title",
	"release_year":   "a.release_year",
	"status":         "a.status",
	"type":           "a.type",
	"episodes_count": "a.episodes_count",
	"views":          "a.views",
	"created_at":     "a.created_at",
	"updated_at":     "a.updated_at",
	"rating":         "rating",
}

const animeSelect = `
	SELECT a.id, a.title, a.original_title, a.slug, a.description, a.release_year,
	       a.status, a.type, a.episodes_count, a.poster, a.views, a.created_at, a.updated_at,
	       CAST(COALESCE(AVG(r.score), 0) AS DOUBLE PRECISION) AS rating
	FROM animes a
	LEFT JOIN ratings r ON r.anime_id = a.id
`

const animeGroupBy = `
	GROUP BY a.id, a.title, a.original_title, a.slug, a.description, a.release_year,
	         a.status, a.type, a.episodes_count, a.poster, a.views, a.created_at, a.updated_at
`

func scanAnime(row interface{ Scan(...any) error }) (*models.Anime, error) {
	var (
		a             models.Anime
		originalTitle sql.NullString
		description   sql.NullString
		releaseYear   sql.NullInt64
		poster        sql.NullString
	)
	if err := row.Scan(
		&a.ID, &a.Title, &originalTitle, &a.Slug, &description, &releaseYear,
		&a.Status, &a.Type, &a.EpisodesCount, &poster, &a.Views, &a.CreatedAt, &a.UpdatedAt,
		&a.Rating,
	); err != nil {
		return nil, err
	}
	a.OriginalTitle = originalTitle.String
	a.Description = description.String
	if releaseYear.Valid {
		a.ReleaseYear = int(releaseYear.Int64)
	}
	a.Poster = poster.String
	return &a, nil
}

// buildWhere assembles the filter clause shared by List and Count.
func buildWhere(q ListQuery) (string, []any) {
	var where []string
	var args []any

	if q.Genre > 0 {
		args = append(args, q.Genre)
		where = append(where, fmt.Sprintf(
			"a.id IN (SELECT anime_id FROM anime_genres WHERE genre_id = $%d)", len(args)))
	}

	if s := strings.TrimSpace(q.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(LOWER(a.title) LIKE $%d OR LOWER(a.original_title) LIKE $%d)", n, n))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns one catalog page plus the unpaged total.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Anime, int, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	sortCol, ok := sortColumns[q.Sort]
	if !ok {
		sortCol = "a.title"
	}
	order := strings.ToUpper(strings.TrimSpace(q.Order))
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	whereClause, args := buildWhere(q)

	var total int
	countSQL := "SELECT COUNT(*) FROM animes a" + whereClause
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count animes: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	args = append(args, q.Limit, offset)
	listSQL := animeSelect + whereClause + animeGroupBy +
		fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortCol, order, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list animes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Anime, 0, q.Limit)
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan anime row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("anime rows: %w", err)
	}

	return out, total, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Anime, error) {
	row := r.DB.QueryRowContext(ctx, animeSelect+" WHERE a.id = $1"+animeGroupBy, id)
	a, err := scanAnime(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get anime by id: %w", err)
	}
	return a, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Anime, error) {
	row := r.DB.QueryRowContext(ctx, animeSelect+" WHERE a.slug = $1"+animeGroupBy, slug)
	a, err := scanAnime(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get anime by slug: %w", err)
	}
	return a, nil
}

// IncrementViews bumps the view counter. Callers treat it as
// fire-and-forget; a lost increment is acceptable.
func (r *Repo) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE animes SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// GetPopular orders by views, breaking ties on aggregated rating.
func (r *Repo) GetPopular(ctx context.Context, limit int) ([]models.Anime, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return r.listOrdered(ctx, "a.views DESC, rating DESC", limit)
}

// GetLatest orders by creation time, newest first.
func (r *Repo) GetLatest(ctx context.Context, limit int) ([]models.Anime, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return r.listOrdered(ctx, "a.created_at DESC", limit)
}

func (r *Repo) listOrdered(ctx context.Context, orderBy string, limit int) ([]models.Anime, error) {
	rows, err := r.DB.QueryContext(ctx,
		animeSelect+animeGroupBy+" ORDER BY "+orderBy+" LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("ordered anime query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Anime, 0, limit)
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anime row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("anime rows: %w", err)
	}
	return out, nil
}

func (r *Repo) Genres(ctx context.Context, animeID int64) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.id, g.name, g.description
		FROM genres g
		JOIN anime_genres ag ON ag.genre_id = g.id
		WHERE ag.anime_id = $1
		ORDER BY g.name
	`, animeID)
	if err != nil {
		return nil, fmt.Errorf("anime genres: %w", err)
	}
	defer rows.Close()

	var out []models.Genre
	for rows.Next() {
		var g models.Genre
		var desc sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		g.Description = desc.String
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("genre rows: %w", err)
	}
	return out, nil
}

func (r *Repo) Studios(ctx context.Context, animeID int64) ([]models.Studio, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT s.id, s.name, s.description
		FROM studios s
		JOIN anime_studios sa ON sa.studio_id = s.id
		WHERE sa.anime_id = $1
		ORDER BY s.name
	`, animeID)
	if err != nil {
		return nil, fmt.Errorf("anime studios: %w", err)
	}
	defer rows.Close()

	var out []models.Studio
	for rows.Next() {
		var s models.Studio
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		s.Description = desc.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("studio rows: %w", err)
	}
	return out, nil
}

// Create inserts the anime and its genre/studio memberships in one
// transaction.
func (r *Repo) Create(ctx context.Context, in models.AnimeCreate) (*models.Anime, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create anime: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO animes (title, original_title, slug, description, release_year,
		                    status, type, episodes_count, poster)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, in.Title, nullString(in.OriginalTitle), in.Slug, nullString(in.Description),
		nullInt(in.ReleaseYear), in.Status, in.Type, in.EpisodesCount,
		nullString(in.Poster)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert anime: %w", err)
	}

	if err := replaceMemberships(ctx, tx, "anime_genres", "genre_id", id, in.GenreIDs, false); err != nil {
		return nil, err
	}
	if err := replaceMemberships(ctx, tx, "anime_studios", "studio_id", id, in.StudioIDs, false); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create anime: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update rewrites only the columns set in upd; slug is immutable and
// has no corresponding field. Returns nil when the anime is missing.
func (r *Repo) Update(ctx context.Context, id int64, upd models.AnimeUpdate) (*models.Anime, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update anime: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM animes WHERE id = $1`, id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("check anime exists: %w", err)
	}

	var set []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.OriginalTitle != nil {
		add("original_title", *upd.OriginalTitle)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ReleaseYear != nil {
		add("release_year", *upd.ReleaseYear)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Type != nil {
		add("type", *upd.Type)
	}
	if upd.Poster != nil {
		add("poster", *upd.Poster)
	}

	if len(set) > 0 {
		args = append(args, id)
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE animes
			SET %s, updated_at = CURRENT_TIMESTAMP
			WHERE id = $%d
		`, strings.Join(set, ", "), len(args)), args...)
		if err != nil {
			return nil, fmt.Errorf("update anime: %w", err)
		}
	}

	if upd.GenreIDs != nil {
		if err := replaceMemberships(ctx, tx, "anime_genres", "genre_id", id, upd.GenreIDs, true); err != nil {
			return nil, err
		}
	}
	if upd.StudioIDs != nil {
		if err := replaceMemberships(ctx, tx, "anime_studios", "studio_id", id, upd.StudioIDs, true); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update anime: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM animes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete anime: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func replaceMemberships(ctx context.Context, tx *sql.Tx, table, col string, animeID int64, ids []int64, clear bool) error {
	if clear {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE anime_id = $1`, table), animeID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, mid := range ids {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (anime_id, %s)
			VALUES ($1, $2)
			ON CONFLICT (anime_id, %s) DO NOTHING
		`, table, col, col), animeID, mid); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
