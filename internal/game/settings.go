package game

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// Settings configures a single game.
type Settings struct {
	BoardSize            int        `json:"boardSize"`
	TimeControlEnabled   bool       `json:"timeControlEnabled"`
	StartTimeMinutes     int        `json:"startTimeMinutes"`
	TimeIncrementSeconds int        `json:"timeIncrementSeconds"`
	BiddingEnabled       bool       `json:"biddingEnabled"`
	MapSeed              string     `json:"mapSeed,omitempty"`
	MapMode              board.Mode `json:"mapMode,omitempty"`
}

// DefaultSettings returns a 12x12 mirrored 5+5 game without bidding.
func DefaultSettings() Settings {
	return Settings{
		BoardSize:            12,
		TimeControlEnabled:   true,
		StartTimeMinutes:     5,
		TimeIncrementSeconds: 5,
		MapMode:              board.ModeMirrored,
	}
}

// slowThreshold is the starting time from which a timed game counts as slow.
const slowThreshold = 30

// Validate checks board size, map mode and clock values. A seed overrides size and mode.
func (s Settings) Validate() error {
	if s.MapSeed == "" {
		if err := board.ValidateDimensions(s.BoardSize, s.BoardSize); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		if s.MapMode != "" {
			if _, err := board.ParseMode(string(s.MapMode)); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
			}
		}
	} else if !board.ValidateSeed(s.MapSeed) {
		return fmt.Errorf("%w: bad map seed", ErrInvalidSettings)
	}
	if s.TimeControlEnabled && s.StartTimeMinutes <= 0 {
		return fmt.Errorf("%w: start time must be positive", ErrInvalidSettings)
	}
	if s.TimeIncrementSeconds < 0 {
		return fmt.Errorf("%w: negative increment", ErrInvalidSettings)
	}
	return nil
}

// IsSlow reports whether the game is untimed or starts with at least 30 minutes.
// Slow games are saved after every move and resumed after a restart.
func (s Settings) IsSlow() bool {
	return !s.TimeControlEnabled || s.StartTimeMinutes >= slowThreshold
}

// StartTime is the initial clock of each side.
func (s Settings) StartTime() time.Duration {
	return time.Duration(s.StartTimeMinutes) * time.Minute
}

// Increment is added to a side's clock after each of its turns.
func (s Settings) Increment() time.Duration {
	return time.Duration(s.TimeIncrementSeconds) * time.Second
}

// Category is the rating bucket for the settings.
func (s Settings) Category() rating.Category {
	return rating.CategoryFor(s.TimeControlEnabled, s.StartTimeMinutes)
}

// BuildMap parses the seed when one is set, otherwise generates a fresh map.
func (s Settings) BuildMap(gen *board.Generator) (*board.Map, error) {
	if s.MapSeed != "" {
		return board.FromSeed(s.MapSeed)
	}
	mode := s.MapMode
	if mode == "" {
		mode = board.ModeMirrored
	}
	return gen.Generate(mode, s.BoardSize, s.BoardSize)
}
