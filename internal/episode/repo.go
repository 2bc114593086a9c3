package episode

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

const episodeColumns = `id, anime_id, number, title, description, duration, thumbnail, release_date, created_at, updated_at`

func scanEpisode(row interface{ Scan(...any) error }) (*models.Episode, error) {
	var (
		e           models.Episode
		title       sql.NullString
		description sql.NullString
		duration    sql.NullInt64
		thumbnail   sql.NullString
		releaseDate sql.NullTime
	)
	if err := row.Scan(
		&e.ID, &e.AnimeID, &e.Number, &title, &description, &duration,
		&thumbnail, &releaseDate, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Title = title.String
	e.Description = description.String
	if duration.Valid {
		e.Duration = int(duration.Int64)
	}
	e.Thumbnail = thumbnail.String
	if releaseDate.Valid {
		t := releaseDate.Time
		e.ReleaseDate = &t
	}
	return &e, nil
}

func (r *Repo) ListByAnime(ctx context.Context, animeID int64) ([]models.Episode, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE anime_id = $1 ORDER BY number ASC`, animeID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	out := []models.Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("episode rows: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Episode, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	e, err := scanEpisode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return e, nil
}

func (r *Repo) GetByAnimeAndNumber(ctx context.Context, animeID int64, number int) (*models.Episode, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE anime_id = $1 AND number = $2`, animeID, number)
	e, err := scanEpisode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get episode by number: %w", err)
	}
	return e, nil
}

// Navigation resolves the immediate neighbours of an episode by number.
// Either side is nil at the corresponding boundary.
func (r *Repo) Navigation(ctx context.Context, animeID int64, number int) (*models.Navigation, error) {
	nav := &models.Navigation{}

	prev, err := r.neighbour(ctx, animeID, number-1)
	if err != nil {
		return nil, err
	}
	nav.Previous = prev

	next, err := r.neighbour(ctx, animeID, number+1)
	if err != nil {
		return nil, err
	}
	nav.Next = next

	return nav, nil
}

func (r *Repo) neighbour(ctx context.Context, animeID int64, number int) (*models.EpisodeRef, error) {
	var ref models.EpisodeRef
	var title sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, number, title FROM episodes WHERE anime_id = $1 AND number = $2`,
		animeID, number).Scan(&ref.ID, &ref.Number, &title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("episode neighbour: %w", err)
	}
	ref.Title = title.String
	return &ref, nil
}

// Create inserts the episode and refreshes the parent's episodes_count
// in the same transaction.
func (r *Repo) Create(ctx context.Context, in models.EpisodeCreate) (*models.Episode, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create episode: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO episodes (anime_id, number, title, description, duration, thumbnail, release_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, in.AnimeID, in.Number, nullString(in.Title), nullString(in.Description),
		nullInt(in.Duration), nullString(in.Thumbnail), in.ReleaseDate).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	if err := refreshEpisodeCount(ctx, tx, in.AnimeID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create episode: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update rewrites only the fields set in upd. Number stays bound to the
// same anime; moving an episode across animes is not supported.
func (r *Repo) Update(ctx context.Context, id int64, upd models.EpisodeUpdate) (*models.Episode, error) {
	var set []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	if upd.Thumbnail != nil {
		add("thumbnail", *upd.Thumbnail)
	}
	if upd.ReleaseDate != nil {
		add("release_date", *upd.ReleaseDate)
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		UPDATE episodes
		SET %s, updated_at = CURRENT_TIMESTAMP
		WHERE id = $%d
	`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("update episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Delete removes the episode and refreshes the parent's episodes_count
// atomically.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete episode: %w", err)
	}
	defer tx.Rollback()

	var animeID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT anime_id FROM episodes WHERE id = $1`, id).Scan(&animeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("find episode anime: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete episode: %w", err)
	}

	if err := refreshEpisodeCount(ctx, tx, animeID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete episode: %w", err)
	}
	return true, nil
}

func refreshEpisodeCount(ctx context.Context, tx *sql.Tx, animeID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE animes
		SET episodes_count = (SELECT COUNT(*) FROM episodes WHERE anime_id = $1),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, animeID)
	if err != nil {
		return fmt.Errorf("refresh episodes_count: %w", err)
	}
	return nil
}

const videoSourceColumns = `id, episode_id, quality, type, language, source_url, source_type, created_at`

func scanVideoSource(row interface{ Scan(...any) error }) (*models.VideoSource, error) {
	var v models.VideoSource
	if err := row.Scan(&v.ID, &v.EpisodeID, &v.Quality, &v.Type, &v.Language,
		&v.SourceURL, &v.SourceType, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) VideoSources(ctx context.Context, episodeID int64) ([]models.VideoSource, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+videoSourceColumns+` FROM video_sources
		 WHERE episode_id = $1
		 ORDER BY quality DESC, language ASC`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list video sources: %w", err)
	}
	defer rows.Close()

	out := []models.VideoSource{}
	for rows.Next() {
		v, err := scanVideoSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video source: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("video source rows: %w", err)
	}
	return out, nil
}

func (r *Repo) AddVideoSource(ctx context.Context, in models.VideoSourceCreate) (*models.VideoSource, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO video_sources (episode_id, quality, type, language, source_url, source_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, in.EpisodeID, in.Quality, in.Type, in.Language, in.SourceURL, in.SourceType).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert video source: %w", err)
	}

	v, err := scanVideoSource(r.DB.QueryRowContext(ctx,
		`SELECT `+videoSourceColumns+` FROM video_sources WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("read video source: %w", err)
	}
	return v, nil
}

func (r *Repo) DeleteVideoSource(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM video_sources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete video source: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecordProgress upserts the user's watch mark for an episode and
// refreshes the timestamp on replays.
func (r *Repo) RecordProgress(ctx context.Context, userID, episodeID int64, progress int) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watched_episodes (user_id, episode_id, watch_progress, watched_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, episode_id)
		DO UPDATE SET watch_progress = excluded.watch_progress, watched_at = CURRENT_TIMESTAMP
	`, userID, episodeID, progress)
	if err != nil {
		return fmt.Errorf("record watch progress: %w", err)
	}
	return nil
}

// GetProgress returns the stored progress and watch time, or (0, zero
// time, false) when the user never watched the episode.
func (r *Repo) GetProgress(ctx context.Context, userID, episodeID int64) (int, time.Time, bool, error) {
	var progress int
	var watchedAt time.Time
	err := r.DB.QueryRowContext(ctx, `
		SELECT watch_progress, watched_at FROM watched_episodes
		WHERE user_id = $1 AND episode_id = $2
	`, userID, episodeID).Scan(&progress, &watchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, fmt.Errorf("get watch progress: %w", err)
	}
	return progress, watchedAt, true, nil
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
