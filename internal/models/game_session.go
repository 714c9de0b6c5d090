package models

import (
	"time"

	"github.com/google/uuid"
)

// GameSession is the persisted record of one game. Moves hold the notation list, so a
// session plus its map seed is enough to rebuild the position by replay.
type GameSession struct {
	ID                    uuid.UUID  `json:"id"`
	BoardSize             int        `json:"board_size"`
	MapMode               string     `json:"map_mode"`
	MapSeed               string     `json:"map_seed"`
	TimeControlEnabled    bool       `json:"time_control_enabled"`
	StartTimeMinutes      int        `json:"start_time_minutes"`
	TimeIncrementSeconds  int        `json:"time_increment_seconds"`
	BiddingEnabled        bool       `json:"bidding_enabled"`
	IsPrivate             bool       `json:"is_private"`
	CreatedViaMatchmaking bool       `json:"created_via_matchmaking"`
	WhiteToken            string     `json:"-"`
	BlackToken            string     `json:"-"`
	WhiteUserID           *uuid.UUID `json:"white_user_id,omitempty"`
	BlackUserID           *uuid.UUID `json:"black_user_id,omitempty"`
	WhiteName             string     `json:"white_name"`
	BlackName             string     `json:"black_name"`
	WhiteElo              *int       `json:"white_elo,omitempty"`
	BlackElo              *int       `json:"black_elo,omitempty"`
	BlackStartingGold     *int       `json:"black_starting_gold,omitempty"`
	Moves                 []string   `json:"moves"`
	MoveCount             int        `json:"move_count"`
	WhiteMsRemaining      *int64     `json:"white_ms_remaining,omitempty"`
	BlackMsRemaining      *int64     `json:"black_ms_remaining,omitempty"`
	Result                string     `json:"result,omitempty"`
	WhiteEloDelta         *int       `json:"white_elo_delta,omitempty"`
	BlackEloDelta         *int       `json:"black_elo_delta,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	EndedAt               *time.Time `json:"ended_at,omitempty"`
}

// Finished reports whether a result has been stored.
func (s *GameSession) Finished() bool { return s.Result != "" }
