package rating

import (
	"math"
	"strings"
)

// Category is the rating bucket derived from a game's time control.
type Category string

const (
	Bullet Category = "bullet"
	Blitz  Category = "blitz"
	Rapid  Category = "rapid"
	Slow   Category = "slow"
)

// Categories lists every bucket a user holds a rating in.
var Categories = []Category{Bullet, Blitz, Rapid, Slow}

// ParseCategory accepts a category name in any case. "any" and unknown names report false.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(s)); c {
	case Bullet, Blitz, Rapid, Slow:
		return c, true
	}
	return "", false
}

// CategoryFor maps time-control settings to a bucket: untimed games are Slow, up to one
// minute is Bullet, up to five is Blitz and anything longer is Rapid.
func CategoryFor(timeControl bool, startMinutes int) Category {
	switch {
	case !timeControl:
		return Slow
	case startMinutes <= 1:
		return Bullet
	case startMinutes <= 5:
		return Blitz
	default:
		return Rapid
	}
}

// KFactor starts at 100 and drops by 5 per game played in the category, floored at 32.
func KFactor(gamesPlayed int) int {
	k := 100 - 5*gamesPlayed
	if k < 32 {
		return 32
	}
	return k
}

// Expected is the probability that a player rated ra beats one rated rb.
func Expected(ra, rb int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(rb-ra)/400.0))
}

// Player is the rating input for one side.
type Player struct {
	Elo         int
	GamesPlayed int
}

// Update returns the new (white, black) ratings after a decisive game. Each side uses its
// own K-factor, so the two changes need not cancel.
func Update(white, black Player, whiteWon bool) (int, int) {
	expected := Expected(white.Elo, black.Elo)
	actual := 0.0
	if whiteWon {
		actual = 1.0
	}
	kw := float64(KFactor(white.GamesPlayed))
	kb := float64(KFactor(black.GamesPlayed))

	newWhite := math.Round(float64(white.Elo) + kw*(actual-expected))
	newBlack := math.Round(float64(black.Elo) + kb*((1-actual)-(1-expected)))
	return int(newWhite), int(newBlack)
}
