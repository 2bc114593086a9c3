package episode

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"animehub/internal/testutil"
	"animehub/pkg/models"
)

func TestNavigationBounds(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	for n := 1; n <= 3; n++ {
		testutil.SeedEpisode(t, db, animeID, n)
	}

	nav, err := repo.Navigation(ctx, animeID, 1)
	require.NoError(t, err)
	require.Nil(t, nav.Previous)
	require.NotNil(t, nav.Next)
	require.Equal(t, 2, nav.Next.Number)

	nav, err = repo.Navigation(ctx, animeID, 2)
	require.NoError(t, err)
	require.NotNil(t, nav.Previous)
	require.Equal(t, 1, nav.Previous.Number)
	require.NotNil(t, nav.Next)
	require.Equal(t, 3, nav.Next.Number)

	nav, err = repo.Navigation(ctx, animeID, 3)
	require.NoError(t, err)
	require.NotNil(t, nav.Previous)
	require.Nil(t, nav.Next)
}

func TestNavigationGapsByNumber(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	testutil.SeedEpisode(t, db, animeID, 1)
	testutil.SeedEpisode(t, db, animeID, 3)

	// neighbours resolve by number, not by row order, so a gap breaks
	// the link
	nav, err := repo.Navigation(ctx, animeID, 1)
	require.NoError(t, err)
	require.Nil(t, nav.Next)

	nav, err = repo.Navigation(ctx, animeID, 3)
	require.NoError(t, err)
	require.Nil(t, nav.Previous)
}

func TestCreateAndDeleteKeepEpisodeCount(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")

	ep1, err := repo.Create(ctx, models.EpisodeCreate{AnimeID: animeID, Number: 1, Title: "First"})
	require.NoError(t, err)
	ep2, err := repo.Create(ctx, models.EpisodeCreate{AnimeID: animeID, Number: 2})
	require.NoError(t, err)
	_ = ep2

	require.Equal(t, 2, episodeCount(t, db, animeID))

	deleted, err := repo.Delete(ctx, ep1.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, 1, episodeCount(t, db, animeID))

	deleted, err = repo.Delete(ctx, ep1.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	_, err := repo.Create(ctx, models.EpisodeCreate{AnimeID: animeID, Number: 1})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.EpisodeCreate{AnimeID: animeID, Number: 1})
	require.Error(t, err)

	// the failed insert must not disturb the counter
	require.Equal(t, 1, episodeCount(t, db, animeID))
}

func TestRecordProgressUpsert(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	epID := testutil.SeedEpisode(t, db, animeID, 1)
	userID := testutil.SeedUser(t, db, "alice", "a@x.com")

	require.NoError(t, repo.RecordProgress(ctx, userID, epID, 120))

	progress, _, watched, err := repo.GetProgress(ctx, userID, epID)
	require.NoError(t, err)
	require.True(t, watched)
	require.Equal(t, 120, progress)

	// replay overwrites, does not duplicate
	require.NoError(t, repo.RecordProgress(ctx, userID, epID, 300))

	progress, _, watched, err = repo.GetProgress(ctx, userID, epID)
	require.NoError(t, err)
	require.True(t, watched)
	require.Equal(t, 300, progress)

	var rows int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM watched_episodes WHERE user_id = $1`, userID).Scan(&rows))
	require.Equal(t, 1, rows)

	_, _, watched, err = repo.GetProgress(ctx, userID+1, epID)
	require.NoError(t, err)
	require.False(t, watched)
}

func TestVideoSources(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	epID := testutil.SeedEpisode(t, db, animeID, 1)

	src, err := repo.AddVideoSource(ctx, models.VideoSourceCreate{
		EpisodeID:  epID,
		Quality:    "720p",
		Type:       "sub",
		Language:   "en",
		SourceURL:  "https://cdn.example.com/ep1.m3u8",
		SourceType: models.SourceTypeM3U8,
	})
	require.NoError(t, err)
	require.NotZero(t, src.ID)

	sources, err := repo.VideoSources(ctx, epID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "720p", sources[0].Quality)

	deleted, err := repo.DeleteVideoSource(ctx, src.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	sources, err = repo.VideoSources(ctx, epID)
	require.NoError(t, err)
	require.Empty(t, sources)
}

func episodeCount(t *testing.T, db *sql.DB, animeID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT episodes_count FROM animes WHERE id = $1`, animeID).Scan(&n))
	return n
}
