package game

import "github.com/jason-s-yu/ageofchess/internal/board"

// Result is the coded outcome of a finished game, for example "w+c" or "b+t".
// The empty Result means the game is still running.
type Result string

// Reason is the last letter of a Result.
type Reason byte

const (
	ReasonCheckmate   Reason = 'c'
	ReasonGold        Reason = 'g'
	ReasonStalemate   Reason = 's'
	ReasonTimeout     Reason = 't'
	ReasonResignation Reason = 'r'
)

// NewResult builds the code for a win by winner.
func NewResult(winner board.Color, reason Reason) Result {
	side := "w"
	if winner == board.Black {
		side = "b"
	}
	return Result(side + "+" + string(reason))
}

// ParseResult validates a stored result code.
func ParseResult(s string) (Result, bool) {
	if len(s) != 3 || (s[0] != 'w' && s[0] != 'b') || s[1] != '+' {
		return "", false
	}
	switch Reason(s[2]) {
	case ReasonCheckmate, ReasonGold, ReasonStalemate, ReasonTimeout, ReasonResignation:
		return Result(s), true
	}
	return "", false
}

// Winner returns the winning color, or NoColor for an empty result.
func (r Result) Winner() board.Color {
	if len(r) == 0 {
		return board.NoColor
	}
	if r[0] == 'w' {
		return board.White
	}
	return board.Black
}

func (r Result) Reason() Reason {
	if len(r) < 3 {
		return 0
	}
	return Reason(r[2])
}
