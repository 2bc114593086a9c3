package live

import "time"

// Event types pushed over the activity feed.
const (
	EventComment  = "comment"
	EventProgress = "watch_progress"
	EventRating   = "rating"
)

// Event is the wire shape of one activity item. Fields not relevant to
// the event type stay zero and are omitted.
type Event struct {
	Type      string    `json:"type"`
	Username  string    `json:"username,omitempty"`
	AnimeID   int64     `json:"anime_id,omitempty"`
	EpisodeID int64     `json:"episode_id,omitempty"`
	Score     int       `json:"score,omitempty"`
	Content   string    `json:"content,omitempty"`
	At        time.Time `json:"at"`
}
