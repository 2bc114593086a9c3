package social

import (
	"context"
	"database/sql"
	"fmt"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Rate upserts the user's score and recomputes the anime's cached
// rating inside one transaction, so the aggregate never drifts from
// the rows it summarizes. Score bounds are enforced by the caller and
// again by the table's CHECK constraint.
func (r *Repo) Rate(ctx context.Context, userID, animeID int64, score int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ratings (user_id, anime_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, anime_id)
		DO UPDATE SET score = excluded.score
	`, userID, animeID, score)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE animes
		SET rating = (SELECT ROUND(COALESCE(AVG(score), 0), 1) FROM ratings WHERE anime_id = $1)
		WHERE id = $1
	`, animeID)
	if err != nil {
		return fmt.Errorf("recompute anime rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate: %w", err)
	}
	return nil
}

// UserRating returns the user's score for an anime, or (0, false) when
// they have not rated it.
func (r *Repo) UserRating(ctx context.Context, userID, animeID int64) (int, bool, error) {
	var score int
	err := r.DB.QueryRowContext(ctx,
		`SELECT score FROM ratings WHERE user_id = $1 AND anime_id = $2`,
		userID, animeID).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get user rating: %w", err)
	}
	return score, true, nil
}

// AddFavorite marks the anime as a favorite. Returns false when it
// already was one.
func (r *Repo) AddFavorite(ctx context.Context, userID, animeID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, anime_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, anime_id) DO NOTHING
	`, userID, animeID)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveFavorite unmarks the anime. Returns false when it was not a
// favorite to begin with.
func (r *Repo) RemoveFavorite(ctx context.Context, userID, animeID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND anime_id = $2`, userID, animeID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) IsFavorite(ctx context.Context, userID, animeID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE user_id = $1 AND anime_id = $2`,
		userID, animeID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

// CommentCreate is the write shape for a new comment. Exactly one of
// AnimeID and EpisodeID must be set; the table constraint backs this
// up.
type CommentCreate struct {
	UserID    int64
	AnimeID   *int64
	EpisodeID *int64
	ParentID  *int64
	Text      string
}

const commentSelect = `
	SELECT c.id, c.user_id, c.anime_id, c.episode_id, c.parent_id, c.text,
	       c.created_at, u.username, u.avatar
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var (
		c         models.Comment
		animeID   sql.NullInt64
		episodeID sql.NullInt64
		parentID  sql.NullInt64
		avatar    sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &animeID, &episodeID, &parentID, &c.Text,
		&c.CreatedAt, &c.Username, &avatar,
	); err != nil {
		return nil, err
	}
	if animeID.Valid {
		c.AnimeID = &animeID.Int64
	}
	if episodeID.Valid {
		c.EpisodeID = &episodeID.Int64
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	c.Avatar = avatar.String
	return &c, nil
}

// AddComment inserts the comment and re-reads it with the author's
// username and avatar joined in.
func (r *Repo) AddComment(ctx context.Context, in CommentCreate) (*models.Comment, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, anime_id, episode_id, parent_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.UserID, in.AnimeID, in.EpisodeID, in.ParentID, in.Text).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	c, err := scanComment(r.DB.QueryRowContext(ctx, commentSelect+" WHERE c.id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("read comment: %w", err)
	}
	return c, nil
}

// CommentsForAnime lists top-level comments on the anime itself,
// newest first. Replies are stored but not threaded into reads.
func (r *Repo) CommentsForAnime(ctx context.Context, animeID int64) ([]models.Comment, error) {
	return r.listComments(ctx, commentSelect+`
		WHERE c.anime_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC
	`, animeID)
}

// CommentsForEpisode lists top-level comments on an episode, newest
// first.
func (r *Repo) CommentsForEpisode(ctx context.Context, episodeID int64) ([]models.Comment, error) {
	return r.listComments(ctx, commentSelect+`
		WHERE c.episode_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC
	`, episodeID)
}

func (r *Repo) listComments(ctx context.Context, query string, arg int64) ([]models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("comment rows: %w", err)
	}
	return out, nil
}
