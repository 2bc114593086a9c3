package anime

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"animehub/internal/testutil"
	"animehub/pkg/models"
)

func TestListPagination(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		testutil.SeedAnime(t, db, fmt.Sprintf("Anime %02d", i), fmt.Sprintf("anime-%02d", i))
	}

	animes, total, err := repo.List(ctx, ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Len(t, animes, 10)

	animes, total, err = repo.List(ctx, ListQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Len(t, animes, 5)

	animes, total, err = repo.List(ctx, ListQuery{Page: 4, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Empty(t, animes)

	// default limit
	animes, _, err = repo.List(ctx, ListQuery{Page: 1})
	require.NoError(t, err)
	require.Len(t, animes, 20)
}

func TestListFiltersCombineWithAnd(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	naruto := testutil.SeedAnime(t, db, "Naruto", "naruto")
	bleach := testutil.SeedAnime(t, db, "Bleach", "bleach")
	monster := testutil.SeedAnime(t, db, "Monster", "monster")
	action := testutil.SeedGenre(t, db, "Action", naruto, bleach)
	testutil.SeedGenre(t, db, "Thriller", monster)

	animes, total, err := repo.List(ctx, ListQuery{Page: 1, Limit: 20, Genre: action})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, animes, 2)

	animes, total, err = repo.List(ctx, ListQuery{Page: 1, Limit: 20, Search: "NARU"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "naruto", animes[0].Slug)

	// both filters at once
	animes, total, err = repo.List(ctx, ListQuery{Page: 1, Limit: 20, Genre: action, Search: "bleach"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "bleach", animes[0].Slug)

	_, total, err = repo.List(ctx, ListQuery{Page: 1, Limit: 20, Genre: action, Search: "monster"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestListSortByRating(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	low := testutil.SeedAnime(t, db, "Low", "low")
	high := testutil.SeedAnime(t, db, "High", "high")
	testutil.SeedAnime(t, db, "Unrated", "unrated")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")
	bob := testutil.SeedUser(t, db, "bob", "b@x.com")

	for _, row := range []struct {
		user, anime int64
		score       int
	}{
		{alice, low, 4},
		{bob, low, 5},
		{alice, high, 9},
		{bob, high, 8},
	} {
		_, err := db.Exec(`INSERT INTO ratings (user_id, anime_id, score) VALUES ($1, $2, $3)`,
			row.user, row.anime, row.score)
		require.NoError(t, err)
	}

	animes, _, err := repo.List(ctx, ListQuery{Page: 1, Limit: 20, Sort: "rating", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, animes, 3)
	require.Equal(t, "high", animes[0].Slug)
	require.InDelta(t, 8.5, animes[0].Rating, 0.001)
	require.Equal(t, "low", animes[1].Slug)
	require.InDelta(t, 4.5, animes[1].Rating, 0.001)
	require.Equal(t, "unrated", animes[2].Slug)
	require.Zero(t, animes[2].Rating)
}

func TestListSortAllowList(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	testutil.SeedAnime(t, db, "Beta", "beta")
	testutil.SeedAnime(t, db, "Alpha", "alpha")

	// unknown sort key falls back to title ASC
	animes, _, err := repo.List(ctx, ListQuery{Page: 1, Limit: 20, Sort: "password; DROP TABLE animes", Order: "bogus"})
	require.NoError(t, err)
	require.Equal(t, "alpha", animes[0].Slug)
	require.Equal(t, "beta", animes[1].Slug)
}

func TestGetBySlugAggregatesRating(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	id := testutil.SeedAnime(t, db, "Naruto", "naruto")
	alice := testutil.SeedUser(t, db, "alice", "a@x.com")
	_, err := db.Exec(`INSERT INTO ratings (user_id, anime_id, score) VALUES ($1, $2, 7)`, alice, id)
	require.NoError(t, err)

	a, err := repo.GetBySlug(ctx, "naruto")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, id, a.ID)
	require.InDelta(t, 7.0, a.Rating, 0.001)

	missing, err := repo.GetBySlug(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestIncrementViewsAndPopular(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	quiet := testutil.SeedAnime(t, db, "Quiet", "quiet")
	hot := testutil.SeedAnime(t, db, "Hot", "hot")
	_ = quiet

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementViews(ctx, hot))
	}

	a, err := repo.GetByID(ctx, hot)
	require.NoError(t, err)
	require.EqualValues(t, 3, a.Views)

	popular, err := repo.GetPopular(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "hot", popular[0].Slug)
}

func TestCreateUpdateDelete(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	action := testutil.SeedGenre(t, db, "Action")
	drama := testutil.SeedGenre(t, db, "Drama")

	a, err := repo.Create(ctx, models.AnimeCreate{
		Title:    "Monster",
		Slug:     "monster",
		Status:   models.StatusCompleted,
		Type:     models.TypeTV,
		GenreIDs: []int64{action},
	})
	require.NoError(t, err)
	require.Equal(t, "monster", a.Slug)
	require.Equal(t, models.StatusCompleted, a.Status)

	genres, err := repo.Genres(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, genres, 1)
	require.Equal(t, "Action", genres[0].Name)

	newTitle := "Monster (1994)"
	updated, err := repo.Update(ctx, a.ID, models.AnimeUpdate{
		Title:    &newTitle,
		GenreIDs: []int64{drama},
	})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)
	require.Equal(t, "monster", updated.Slug) // slug untouched

	genres, err = repo.Genres(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, genres, 1)
	require.Equal(t, "Drama", genres[0].Name)

	deleted, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	missing, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, missing)

	missingUpd, err := repo.Update(ctx, a.ID, models.AnimeUpdate{Title: &newTitle})
	require.NoError(t, err)
	require.Nil(t, missingUpd)
}
