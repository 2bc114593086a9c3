package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// schema mirrors docs/schema.sql in SQLite dialect for fast in-memory
// test databases. Column names and constraints must stay in lockstep
// with the real schema.
const schema = `
CREATE TABLE users (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    username        TEXT NOT NULL UNIQUE,
    email           TEXT NOT NULL UNIQUE,
    password        TEXT NOT NULL,
    avatar          TEXT,
    is_admin        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE animes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT NOT NULL,
    original_title  TEXT,
    slug            TEXT NOT NULL UNIQUE,
    description     TEXT,
    release_year    INTEGER,
    status          TEXT NOT NULL DEFAULT 'ongoing',
    type            TEXT NOT NULL DEFAULT 'tv',
    episodes_count  INTEGER NOT NULL DEFAULT 0,
    poster          TEXT,
    rating          NUMERIC NOT NULL DEFAULT 0,
    views           INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE episodes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    anime_id        INTEGER NOT NULL REFERENCES animes(id) ON DELETE CASCADE,
    number          INTEGER NOT NULL,
    title           TEXT,
    description     TEXT,
    duration        INTEGER,
    thumbnail       TEXT,
    release_date    TIMESTAMP,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (anime_id, number)
);

CREATE TABLE video_sources (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    episode_id      INTEGER NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    quality         TEXT NOT NULL,
    type            TEXT NOT NULL,
    language        TEXT NOT NULL,
    source_url      TEXT NOT NULL,
    source_type     TEXT NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE genres (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL UNIQUE,
    description     TEXT
);

CREATE TABLE anime_genres (
    anime_id        INTEGER NOT NULL REFERENCES animes(id) ON DELETE CASCADE,
    genre_id        INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
    PRIMARY KEY (anime_id, genre_id)
);

CREATE TABLE studios (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL UNIQUE,
    description     TEXT
);

CREATE TABLE anime_studios (
    anime_id        INTEGER NOT NULL REFERENCES animes(id) ON DELETE CASCADE,
    studio_id       INTEGER NOT NULL REFERENCES studios(id) ON DELETE CASCADE,
    PRIMARY KEY (anime_id, studio_id)
);

CREATE TABLE ratings (
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    anime_id        INTEGER NOT NULL REFERENCES animes(id) ON DELETE CASCADE,
    score           INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, anime_id)
);

CREATE TABLE favorites (
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    anime_id        INTEGER NOT NULL REFERENCES animes(id) ON DELETE CASCADE,
    added_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, anime_id)
);

CREATE TABLE comments (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    anime_id        INTEGER REFERENCES animes(id) ON DELETE CASCADE,
    episode_id      INTEGER REFERENCES episodes(id) ON DELETE CASCADE,
    parent_id       INTEGER REFERENCES comments(id) ON DELETE CASCADE,
    text            TEXT NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((anime_id IS NULL) <> (episode_id IS NULL))
);

CREATE TABLE watched_episodes (
    user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    episode_id      INTEGER NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    watch_progress  INTEGER NOT NULL DEFAULT 0,
    watched_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, episode_id)
);
`

// OpenDB returns a fresh in-memory database with the full schema
// applied. It is closed automatically when the test finishes.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A single connection keeps every statement on the same in-memory
	// database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// SeedUser inserts a user and returns its id. The password column gets
// a placeholder hash unless the caller needs a real one.
func SeedUser(t *testing.T, db *sql.DB, username, email string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO users (username, email, password)
		VALUES ($1, $2, 'x')
		RETURNING id
	`, username, email).Scan(&id)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}

// SeedAnime inserts an anime with the given slug and returns its id.
func SeedAnime(t *testing.T, db *sql.DB, title, slug string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO animes (title, slug)
		VALUES ($1, $2)
		RETURNING id
	`, title, slug).Scan(&id)
	if err != nil {
		t.Fatalf("seed anime %s: %v", slug, err)
	}
	return id
}

// SeedEpisode inserts an episode and keeps the parent's episodes_count
// in sync, mirroring what the write path does.
func SeedEpisode(t *testing.T, db *sql.DB, animeID int64, number int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO episodes (anime_id, number, title)
		VALUES ($1, $2, $3)
		RETURNING id
	`, animeID, number, fmt.Sprintf("Episode %d", number)).Scan(&id)
	if err != nil {
		t.Fatalf("seed episode %d: %v", number, err)
	}
	if _, err := db.Exec(`
		UPDATE animes SET episodes_count = (SELECT COUNT(*) FROM episodes WHERE anime_id = $1)
		WHERE id = $1
	`, animeID); err != nil {
		t.Fatalf("sync episodes_count: %v", err)
	}
	return id
}

// SeedGenre inserts a genre and links it to the given animes.
func SeedGenre(t *testing.T, db *sql.DB, name string, animeIDs ...int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO genres (name) VALUES ($1) RETURNING id
	`, name).Scan(&id)
	if err != nil {
		t.Fatalf("seed genre %s: %v", name, err)
	}
	for _, animeID := range animeIDs {
		if _, err := db.Exec(`
			INSERT INTO anime_genres (anime_id, genre_id) VALUES ($1, $2)
		`, animeID, id); err != nil {
			t.Fatalf("link genre %s to anime %d: %v", name, animeID, err)
		}
	}
	return id
}
