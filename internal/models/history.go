package models

import "github.com/google/uuid"

// HistorySort names a sortable column of a player's finished games.
type HistorySort string

const (
	SortEndedAt     HistorySort = "endedAt"
	SortResult      HistorySort = "result"
	SortEloDelta    HistorySort = "eloDelta"
	SortTimeControl HistorySort = "timeControl"
	SortMoveCount   HistorySort = "moveCount"
	SortBoardSize   HistorySort = "boardSize"
	SortOpponent    HistorySort = "opponent"
)

// HistorySorts lists every accepted sort column.
var HistorySorts = []HistorySort{
	SortEndedAt, SortResult, SortEloDelta, SortTimeControl, SortMoveCount, SortBoardSize, SortOpponent,
}

// HistoryPageSize is how many games one history page holds.
const HistoryPageSize = 50

// HistoryQuery selects one page of a player's finished games. An empty Category means
// every category.
type HistoryQuery struct {
	Sort     HistorySort
	Asc      bool
	Category string
	Offset   int
	Limit    int
}

// HistoryEntry is a finished session seen from one player's seat.
type HistoryEntry struct {
	Session          GameSession
	OpponentUsername string
}

// HistoryPage is one page of history plus the number of games matching the filter.
type HistoryPage struct {
	Games []HistoryEntry
	Total int
}

// CategoryRecord counts a player's finished games in one rating category.
type CategoryRecord struct {
	UserID   uuid.UUID `json:"-"`
	Category string    `json:"category"`
	Games    int       `json:"games"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
	Draws    int       `json:"draws"`
}

// IsWhite reports whether userID held the white seat.
func (s *GameSession) IsWhite(userID uuid.UUID) bool {
	return s.WhiteUserID != nil && *s.WhiteUserID == userID
}

// OpponentName is the name the other seat played under.
func (s *GameSession) OpponentName(userID uuid.UUID) string {
	if s.IsWhite(userID) {
		return s.BlackName
	}
	return s.WhiteName
}

// OpponentID is the other seat's user, nil when it was anonymous.
func (s *GameSession) OpponentID(userID uuid.UUID) *uuid.UUID {
	if s.IsWhite(userID) {
		return s.BlackUserID
	}
	return s.WhiteUserID
}

// EloDeltaFor is the rating change userID took from the game, nil for unrated games.
func (s *GameSession) EloDeltaFor(userID uuid.UUID) *int {
	if s.IsWhite(userID) {
		return s.WhiteEloDelta
	}
	return s.BlackEloDelta
}

// Outcome is "win", "loss" or "draw" from userID's side.
func (s *GameSession) Outcome(userID uuid.UUID) string {
	if len(s.Result) == 0 || (s.Result[0] != 'w' && s.Result[0] != 'b') {
		return "draw"
	}
	if (s.Result[0] == 'w') == s.IsWhite(userID) {
		return "win"
	}
	return "loss"
}
