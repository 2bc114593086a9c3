package social

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"animehub/internal/testutil"
)

func TestRateRecomputesAggregate(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")
	bob := testutil.SeedUser(t, db, "bob", "b@x.com")

	require.NoError(t, repo.Rate(ctx, alice, animeID, 9))
	require.InDelta(t, 9.0, cachedRating(t, db, animeID), 0.001)

	require.NoError(t, repo.Rate(ctx, bob, animeID, 6))
	// round(mean(9,6), 1) = 7.5
	require.InDelta(t, 7.5, cachedRating(t, db, animeID), 0.001)

	// changing a score replaces it, never adds a second row
	require.NoError(t, repo.Rate(ctx, alice, animeID, 3))
	require.InDelta(t, 4.5, cachedRating(t, db, animeID), 0.001)

	var rows int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM ratings WHERE anime_id = $1`, animeID).Scan(&rows))
	require.Equal(t, 2, rows)
}

func TestRateIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")

	require.NoError(t, repo.Rate(ctx, alice, animeID, 7))
	require.NoError(t, repo.Rate(ctx, alice, animeID, 7))

	score, rated, err := repo.UserRating(ctx, alice, animeID)
	require.NoError(t, err)
	require.True(t, rated)
	require.Equal(t, 7, score)
	require.InDelta(t, 7.0, cachedRating(t, db, animeID), 0.001)
}

func TestRateOutOfRangeLeavesAggregateUnchanged(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")
	bob := testutil.SeedUser(t, db, "bob", "b@x.com")

	require.NoError(t, repo.Rate(ctx, alice, animeID, 8))

	// handler validation is the first line of defence; the CHECK
	// constraint is the second, and the whole tx must roll back
	require.Error(t, repo.Rate(ctx, bob, animeID, 0))
	require.Error(t, repo.Rate(ctx, bob, animeID, 11))

	require.InDelta(t, 8.0, cachedRating(t, db, animeID), 0.001)

	_, rated, err := repo.UserRating(ctx, bob, animeID)
	require.NoError(t, err)
	require.False(t, rated)
}

func TestFavoriteToggle(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")

	added, err := repo.AddFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.True(t, added)

	// adding twice is a no-op, not an error
	added, err = repo.AddFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.False(t, added)

	fav, err := repo.IsFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.True(t, fav)

	removed, err := repo.RemoveFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.True(t, removed)

	// removing a non-favorite reports false, not an error
	removed, err = repo.RemoveFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.False(t, removed)

	fav, err = repo.IsFavorite(ctx, alice, animeID)
	require.NoError(t, err)
	require.False(t, fav)
}

func TestCommentsTopLevelOnly(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	epID := testutil.SeedEpisode(t, db, animeID, 1)
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")

	onAnime, err := repo.AddComment(ctx, CommentCreate{
		UserID:  alice,
		AnimeID: &animeID,
		Text:    "great show",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", onAnime.Username)

	onEpisode, err := repo.AddComment(ctx, CommentCreate{
		UserID:    alice,
		EpisodeID: &epID,
		Text:      "what an opening",
	})
	require.NoError(t, err)

	// a reply is stored but filtered from the top-level listing
	_, err = repo.AddComment(ctx, CommentCreate{
		UserID:    alice,
		EpisodeID: &epID,
		ParentID:  &onEpisode.ID,
		Text:      "agreed",
	})
	require.NoError(t, err)

	animeComments, err := repo.CommentsForAnime(ctx, animeID)
	require.NoError(t, err)
	require.Len(t, animeComments, 1)
	require.Equal(t, "great show", animeComments[0].Text)

	episodeComments, err := repo.CommentsForEpisode(ctx, epID)
	require.NoError(t, err)
	require.Len(t, episodeComments, 1)
	require.Equal(t, "what an opening", episodeComments[0].Text)
}

func TestCommentRequiresExactlyOneTarget(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	epID := testutil.SeedEpisode(t, db, animeID, 1)
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")

	_, err := repo.AddComment(ctx, CommentCreate{UserID: alice, Text: "floating"})
	require.Error(t, err)

	_, err = repo.AddComment(ctx, CommentCreate{
		UserID:    alice,
		AnimeID:   &animeID,
		EpisodeID: &epID,
		Text:      "both",
	})
	require.Error(t, err)
}

func cachedRating(t *testing.T, db *sql.DB, animeID int64) float64 {
	t.Helper()
	var rating float64
	require.NoError(t, db.QueryRow(
		`SELECT rating FROM animes WHERE id = $1`, animeID).Scan(&rating))
	return rating
}
