package models

import "time"

// Anime statuses and types accepted by the catalog.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusAnnounced = "announced"

	TypeTV      = "tv"
	TypeMovie   = "movie"
	TypeOVA     = "ova"
	TypeONA     = "ona"
	TypeSpecial = "special"
)

// Anime is a catalog entry. Rating is the mean of all user ratings,
// either computed by the aggregating queries or read from the cached
// column which is rewritten on every rating upsert.
type Anime struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title,omitempty"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	ReleaseYear   int       `json:"release_year,omitempty"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	EpisodesCount int       `json:"episodes_count"`
	Poster        string    `json:"poster,omitempty"`
	Rating        float64   `json:"rating"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AnimeCreate carries the fields accepted when a new anime is added.
// Slug is set once here and never updated afterwards.
type AnimeCreate struct {
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Slug          string  `json:"slug"`
	Description   string  `json:"description"`
	ReleaseYear   int     `json:"release_year"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	EpisodesCount int     `json:"episodes_count"`
	Poster        string  `json:"poster"`
	GenreIDs      []int64 `json:"genre_ids"`
	StudioIDs     []int64 `json:"studio_ids"`
}

// AnimeUpdate enumerates the updatable columns explicitly. A nil field
// leaves the column untouched; slug is deliberately absent.
type AnimeUpdate struct {
	Title         *string `json:"title"`
	OriginalTitle *string `json:"original_title"`
	Description   *string `json:"description"`
	ReleaseYear   *int    `json:"release_year"`
	Status        *string `json:"status"`
	Type          *string `json:"type"`
	Poster        *string `json:"poster"`
	GenreIDs      []int64 `json:"genre_ids"`
	StudioIDs     []int64 `json:"studio_ids"`
}

type Genre struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Studio struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// WatchedAnime is an anime row annotated with the last time the user
// watched any of its episodes.
type WatchedAnime struct {
	Anime
	LastWatched time.Time `json:"last_watched"`
}

// FavoriteAnime is an anime row annotated with when it was favorited.
type FavoriteAnime struct {
	Anime
	AddedAt time.Time `json:"added_at"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusAnnounced:
		return true
	}
	return false
}

func ValidType(t string) bool {
	switch t {
	case TypeTV, TypeMovie, TypeOVA, TypeONA, TypeSpecial:
		return true
	}
	return false
}
