package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"animehub/internal/testutil"
)

func TestRunRepairsDrift(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	userID := testutil.SeedUser(t, db, "alice", "a@x.com")
	testutil.SeedEpisode(t, db, animeID, 1)
	testutil.SeedEpisode(t, db, animeID, 2)

	_, err := db.Exec(`INSERT INTO ratings (user_id, anime_id, score) VALUES ($1, $2, 8)`, userID, animeID)
	require.NoError(t, err)

	// simulate drift from a manual edit
	_, err = db.Exec(`UPDATE animes SET rating = 3.0, episodes_count = 99 WHERE id = $1`, animeID)
	require.NoError(t, err)

	r := NewReconciler(db, nil)
	require.NoError(t, r.Run(ctx))

	var rating float64
	var count int
	require.NoError(t, db.QueryRow(
		`SELECT rating, episodes_count FROM animes WHERE id = $1`, animeID).Scan(&rating, &count))
	require.InDelta(t, 8.0, rating, 0.001)
	require.Equal(t, 2, count)
}

func TestRunNoopWhenConsistent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	animeID := testutil.SeedAnime(t, db, "Naruto", "naruto")
	testutil.SeedEpisode(t, db, animeID, 1)

	r := NewReconciler(db, nil)
	require.NoError(t, r.Run(ctx))

	var rating float64
	var count int
	require.NoError(t, db.QueryRow(
		`SELECT rating, episodes_count FROM animes WHERE id = $1`, animeID).Scan(&rating, &count))
	require.Zero(t, rating)
	require.Equal(t, 1, count)
}
