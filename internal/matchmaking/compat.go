package matchmaking

import (
	"math"
	"time"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// EloPolicy is the rating tolerance. The band widens once either player has waited
// WidenAfter.
type EloPolicy struct {
	Narrow     int
	Wide       int
	WidenAfter time.Duration
}

// DefaultEloPolicy is ±200, widening to ±500 after 30 seconds.
var DefaultEloPolicy = EloPolicy{Narrow: 200, Wide: 500, WidenAfter: 30 * time.Second}

// Compatible reports whether a and b can be paired at now.
func Compatible(a, b Entry, now time.Time, p EloPolicy) bool {
	if a.UserID != nil && b.UserID != nil && *a.UserID == *b.UserID {
		return false
	}
	if a.BoardSizeMax < b.BoardSizeMin || b.BoardSizeMax < a.BoardSizeMin {
		return false
	}
	ca, okA := a.matchCategory()
	cb, okB := b.matchCategory()
	if okA && okB && ca != cb {
		return false
	}
	if (a.Bidding == BiddingEnabled && b.Bidding == BiddingDisabled) ||
		(a.Bidding == BiddingDisabled && b.Bidding == BiddingEnabled) {
		return false
	}
	if a.MapMode != MapModeAny && b.MapMode != MapModeAny && a.MapMode != b.MapMode {
		return false
	}

	band := p.Narrow
	if now.Sub(a.QueuedAt) >= p.WidenAfter || now.Sub(b.QueuedAt) >= p.WidenAfter {
		band = p.Wide
	}
	diff := a.Elo - b.Elo
	if diff < 0 {
		diff = -diff
	}
	return diff <= band
}

// categoryDefaults are the clocks used when neither player picked a concrete one.
var categoryDefaults = map[rating.Category]TimeControl{
	rating.Bullet: {Enabled: true, StartMinutes: 1, IncrementSeconds: 1},
	rating.Blitz:  {Enabled: true, StartMinutes: 5, IncrementSeconds: 3},
	rating.Rapid:  {Enabled: true, StartMinutes: 15, IncrementSeconds: 10},
	rating.Slow:   {Enabled: true, StartMinutes: 30, IncrementSeconds: 15},
}

var anyDefault = TimeControl{Enabled: true, StartMinutes: 10, IncrementSeconds: 5}

// ResolveSettings merges two matched entries into one game configuration. white is the
// entry that queued first and wins every tie.
func ResolveSettings(white, black Entry) game.Settings {
	tc := resolveTimeControl(white, black)
	return game.Settings{
		BoardSize:            resolveBoardSize(white.BoardSizeMin, white.BoardSizeMax, black.BoardSizeMin, black.BoardSizeMax),
		TimeControlEnabled:   tc.Enabled,
		StartTimeMinutes:     tc.StartMinutes,
		TimeIncrementSeconds: tc.IncrementSeconds,
		BiddingEnabled:       white.Bidding != BiddingDisabled && black.Bidding != BiddingDisabled,
		MapMode:              board.Mode(resolveMapMode(white.MapMode, black.MapMode)),
	}
}

func resolveTimeControl(white, black Entry) TimeControl {
	if white.Specific != nil {
		return *white.Specific
	}
	if black.Specific != nil {
		return *black.Specific
	}
	cat := white.Category
	if cat == nil {
		cat = black.Category
	}
	if cat == nil {
		return anyDefault
	}
	if tc, ok := categoryDefaults[*cat]; ok {
		return tc
	}
	return anyDefault
}

// resolveBoardSize averages the four range ends and rounds half to even onto an even
// size, clamped to the legal range.
func resolveBoardSize(minA, maxA, minB, maxB int) int {
	avg := float64(minA+maxA+minB+maxB) / 4
	size := int(math.RoundToEven(avg/2)) * 2
	if size < board.MinSize {
		return board.MinSize
	}
	if size > board.MaxSize {
		return board.MaxSize
	}
	return size
}

func resolveMapMode(a, b string) string {
	switch {
	case a == b && a == MapModeAny:
		return string(board.ModeMirrored)
	case a == b:
		return a
	case a == MapModeAny:
		return b
	case b == MapModeAny:
		return a
	}
	return string(board.ModeMirrored)
}
