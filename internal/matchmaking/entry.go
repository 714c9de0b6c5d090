package matchmaking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// ErrInvalidEntry wraps every reason a queue request is rejected.
var ErrInvalidEntry = errors.New("invalid queue entry")

// BiddingPreference is a player's stance on the pre-game auction.
type BiddingPreference string

const (
	BiddingEnabled  BiddingPreference = "enabled"
	BiddingDisabled BiddingPreference = "disabled"
	BiddingEither   BiddingPreference = "either"
)

// ParseBiddingPreference accepts any case and falls back to BiddingEither.
func ParseBiddingPreference(s string) BiddingPreference {
	switch p := BiddingPreference(strings.ToLower(s)); p {
	case BiddingEnabled, BiddingDisabled:
		return p
	}
	return BiddingEither
}

// MapModeAny matches either map mode.
const MapModeAny = "any"

// ParseMapModePreference accepts "m", "r" or "any" in any case and falls back to "m".
func ParseMapModePreference(s string) string {
	switch v := strings.ToLower(s); v {
	case string(board.ModeMirrored), string(board.ModeRandom), MapModeAny:
		return v
	}
	return string(board.ModeMirrored)
}

// TimeControl is a concrete clock choice.
type TimeControl struct {
	Enabled          bool `json:"enabled"`
	StartMinutes     int  `json:"startMinutes"`
	IncrementSeconds int  `json:"incrementSeconds"`
}

// Category is the rating bucket of the time control.
func (tc TimeControl) Category() rating.Category {
	return rating.CategoryFor(tc.Enabled, tc.StartMinutes)
}

// Entry is one queued player.
type Entry struct {
	ConnID uuid.UUID
	UserID *uuid.UUID
	Name   string
	Elo    int

	// Specific is set when the player picked a concrete time control. Otherwise Category
	// names the bucket they accept; nil means any.
	Specific *TimeControl
	Category *rating.Category

	BoardSizeMin int
	BoardSizeMax int
	Bidding      BiddingPreference
	MapMode      string
	QueuedAt     time.Time
}

// Validate checks the board range and the time control.
func (e Entry) Validate() error {
	if e.BoardSizeMin > e.BoardSizeMax {
		return fmt.Errorf("%w: board size range %d-%d is empty", ErrInvalidEntry, e.BoardSizeMin, e.BoardSizeMax)
	}
	if e.BoardSizeMax < board.MinSize || e.BoardSizeMin > board.MaxSize {
		return fmt.Errorf("%w: board size range %d-%d is outside %d-%d", ErrInvalidEntry, e.BoardSizeMin, e.BoardSizeMax, board.MinSize, board.MaxSize)
	}
	if e.Specific != nil && e.Specific.Enabled && e.Specific.StartMinutes <= 0 {
		return fmt.Errorf("%w: start time must be positive", ErrInvalidEntry)
	}
	return nil
}

// matchCategory is the bucket the entry plays in. ok is false for "any".
func (e Entry) matchCategory() (rating.Category, bool) {
	if e.Specific != nil {
		return e.Specific.Category(), true
	}
	if e.Category != nil {
		return *e.Category, true
	}
	return "", false
}

// RatingCategory picks the bucket whose rating the entry should be matched on. Players
// who accept any time control are rated as Rapid, the bucket of the 10+5 default.
func (e Entry) RatingCategory() rating.Category {
	if c, ok := e.matchCategory(); ok {
		return c
	}
	return rating.Rapid
}
