package models

import "github.com/google/uuid"

// User is a registered account. Ratings are kept per time-control category in the ratings table.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"password,omitempty"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
}

// EffectiveName is the name shown in games.
func (u *User) EffectiveName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Rating is a user's Elo in one category.
type Rating struct {
	UserID      uuid.UUID `json:"user_id"`
	Category    string    `json:"category"`
	Elo         int       `json:"elo"`
	GamesPlayed int       `json:"games_played"`
}

// DefaultElo is assigned to a user with no games in a category.
const DefaultElo = 1200
