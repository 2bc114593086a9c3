package models

import "time"

// Comment targets either an anime or an episode, never both. Replies
// carry a parent_id; list queries return top-level comments only.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AnimeID   *int64    `json:"anime_id,omitempty"`
	EpisodeID *int64    `json:"episode_id,omitempty"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Text      string    `json:"text"`
	Username  string    `json:"username,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
