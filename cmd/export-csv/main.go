package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"animehub/pkg/database"
)

func main() {
	var (
		animeOut    = flag.String("anime", "data/animes.csv", "output CSV path for animes")
		episodesOut = flag.String("episodes", "data/episodes.csv", "output CSV path for episodes")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportAnimes(ctx, db, *animeOut); err != nil {
		log.Fatalf("export animes failed: %v", err)
	}
	if err := exportEpisodes(ctx, db, *episodesOut); err != nil {
		log.Fatalf("export episodes failed: %v", err)
	}

	log.Printf("exported animes to %s and episodes to %s", *animeOut, *episodesOut)
}

func exportAnimes(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"slug", "title", "original_title", "description", "release_year", "status", "type", "poster"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT slug, title, original_title, description, release_year, status, type, poster
        FROM animes
        ORDER BY title
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			slug          string
			title         string
			originalTitle sql.NullString
			description   sql.NullString
			releaseYear   sql.NullInt64
			status        string
			typ           string
			poster        sql.NullString
		)

		if err := rows.Scan(&slug, &title, &originalTitle, &description, &releaseYear, &status, &typ, &poster); err != nil {
			return err
		}

		year := ""
		if releaseYear.Valid {
			year = strconv.FormatInt(releaseYear.Int64, 10)
		}

		if err := w.Write([]string{
			slug,
			title,
			originalTitle.String,
			description.String,
			year,
			status,
			typ,
			poster.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportEpisodes(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"anime_slug", "number", "title", "description", "duration", "release_date"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT a.slug, e.number, e.title, e.description, e.duration, e.release_date
        FROM episodes e
        JOIN animes a ON a.id = e.anime_id
        ORDER BY a.slug, e.number
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			slug        string
			number      int
			title       sql.NullString
			description sql.NullString
			duration    sql.NullInt64
			releaseDate sql.NullTime
		)

		if err := rows.Scan(&slug, &number, &title, &description, &duration, &releaseDate); err != nil {
			return err
		}

		dur := ""
		if duration.Valid {
			dur = strconv.FormatInt(duration.Int64, 10)
		}
		released := ""
		if releaseDate.Valid {
			released = releaseDate.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			slug,
			strconv.Itoa(number),
			title.String,
			description.String,
			dur,
			released,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
