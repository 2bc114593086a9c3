package models

import "time"

type Episode struct {
	ID          int64      `json:"id"`
	AnimeID     int64      `json:"anime_id"`
	Number      int        `json:"number"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Duration    int        `json:"duration,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EpisodeCreate struct {
	AnimeID     int64      `json:"anime_id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	Thumbnail   string     `json:"thumbnail"`
	ReleaseDate *time.Time `json:"release_date"`
}

// EpisodeUpdate enumerates the updatable columns; anime_id and number
// are fixed at creation.
type EpisodeUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Duration    *int       `json:"duration"`
	Thumbnail   *string    `json:"thumbnail"`
	ReleaseDate *time.Time `json:"release_date"`
}

// EpisodeRef is the compact form used in navigation links.
type EpisodeRef struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// Navigation points at the neighbouring episodes by number. A nil side
// means there is no episode at number-1 / number+1.
type Navigation struct {
	Previous *EpisodeRef `json:"previous"`
	Next     *EpisodeRef `json:"next"`
}

// Video source qualities and delivery types.
const (
	SourceTypeVideo  = "video"
	SourceTypeIframe = "iframe"
	SourceTypeM3U8   = "m3u8"
)

type VideoSource struct {
	ID         int64     `json:"id"`
	EpisodeID  int64     `json:"episode_id"`
	Quality    string    `json:"quality"`
	Type       string    `json:"type"`
	Language   string    `json:"language"`
	SourceURL  string    `json:"source_url"`
	SourceType string    `json:"source_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type VideoSourceCreate struct {
	EpisodeID  int64  `json:"episode_id"`
	Quality    string `json:"quality"`
	Type       string `json:"type"`
	Language   string `json:"language"`
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`
}

func ValidQuality(q string) bool {
	switch q {
	case "240p", "360p", "480p", "720p", "1080p", "4k":
		return true
	}
	return false
}

func ValidSourceType(t string) bool {
	switch t {
	case SourceTypeVideo, SourceTypeIframe, SourceTypeM3U8:
		return true
	}
	return false
}

// WatchedEpisode is the per-user playback position for one episode.
type WatchedEpisode struct {
	UserID        int64     `json:"user_id"`
	EpisodeID     int64     `json:"episode_id"`
	WatchProgress int       `json:"watch_progress"`
	WatchedAt     time.Time `json:"watched_at"`
}
