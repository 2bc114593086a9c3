package models

import "time"

// User is an account row. Password holds the bcrypt hash and is never
// serialized outward.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Avatar    string    `json:"avatar,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate enumerates the updatable profile columns. Password, when
// set, is expected to be hashed before it reaches the repo.
type UserUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
}

type Rating struct {
	UserID    int64     `json:"user_id"`
	AnimeID   int64     `json:"anime_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
