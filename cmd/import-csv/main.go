package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"animehub/pkg/database"
)

func main() {
	var (
		animeIn    = flag.String("anime", "data/animes.csv", "input CSV path for animes")
		episodesIn = flag.String("episodes", "data/episodes.csv", "input CSV path for episodes")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importAnimes(ctx, db, *animeIn); err != nil {
		log.Fatalf("import animes failed: %v", err)
	}
	if err := importEpisodes(ctx, db, *episodesIn); err != nil {
		log.Fatalf("import episodes failed: %v", err)
	}

	log.Printf("imported animes from %s and episodes from %s", *animeIn, *episodesIn)
}

// importAnimes upserts catalog rows keyed by slug.
func importAnimes(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO animes (slug, title, original_title, description, release_year, status, type, poster)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
		  title = excluded.title,
		  original_title = excluded.original_title,
		  description = excluded.description,
		  release_year = excluded.release_year,
		  status = excluded.status,
		  type = excluded.type,
		  poster = excluded.poster,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		slug := valueAt(header, row, "slug")
		title := valueAt(header, row, "title")
		if slug == "" || title == "" {
			continue
		}

		releaseYear, err := parseNullInt(valueAt(header, row, "release_year"))
		if err != nil {
			return fmt.Errorf("parse release_year for %s: %w", slug, err)
		}

		status := valueAt(header, row, "status")
		if status == "" {
			status = "ongoing"
		}
		typ := valueAt(header, row, "type")
		if typ == "" {
			typ = "tv"
		}

		if _, err := stmt.ExecContext(
			ctx,
			slug,
			title,
			nullString(valueAt(header, row, "original_title")),
			nullString(valueAt(header, row, "description")),
			releaseYear,
			status,
			typ,
			nullString(valueAt(header, row, "poster")),
		); err != nil {
			return err
		}
	}

	return nil
}

// importEpisodes upserts episodes keyed by (anime slug, number) and
// refreshes the parent counters afterwards.
func importEpisodes(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO episodes (anime_id, number, title, description, duration, release_date)
		SELECT a.id, $2, $3, $4, $5, $6 FROM animes a WHERE a.slug = $1
		ON CONFLICT (anime_id, number) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			duration = excluded.duration,
			release_date = excluded.release_date,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		slug := valueAt(header, row, "anime_slug")
		numberRaw := valueAt(header, row, "number")
		if slug == "" || numberRaw == "" {
			continue
		}
		number, err := strconv.Atoi(numberRaw)
		if err != nil {
			return fmt.Errorf("parse number for %s: %w", slug, err)
		}

		duration, err := parseNullInt(valueAt(header, row, "duration"))
		if err != nil {
			return fmt.Errorf("parse duration for %s/%d: %w", slug, number, err)
		}
		releaseDate, err := parseTime(valueAt(header, row, "release_date"))
		if err != nil {
			return fmt.Errorf("parse release_date for %s/%d: %w", slug, number, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			slug,
			number,
			nullString(valueAt(header, row, "title")),
			nullString(valueAt(header, row, "description")),
			duration,
			releaseDate,
		); err != nil {
			return err
		}
	}

	// keep the denormalized counter honest after the bulk load
	_, err = db.ExecContext(ctx, `
		UPDATE animes
		SET episodes_count = (SELECT COUNT(*) FROM episodes WHERE anime_id = animes.id)
	`)
	return err
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseTime(raw string) (sql.NullTime, error) {
	if raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
