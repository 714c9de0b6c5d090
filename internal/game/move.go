package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/rules"
)

// CaptureUnknown marks a capture parsed back from notation, which does not say what was taken.
const CaptureUnknown = "?"

// Move is one entry of the move list. A placement has no source square.
type Move struct {
	HasSource bool
	FromX     int
	FromY     int
	ToX       int
	ToY       int
	Placed    string // shop code of a placed piece: q, r, b, n, p
	Captured  string // object code of whatever stood on the destination
	Suffix    string // "+" check, "#" mate or stalemate
}

// IsPlacement reports whether the move put a new piece on the board.
func (m Move) IsPlacement() bool { return !m.HasSource }

// Notation renders the move: "e2-e3", "e2xf3", "c4=Q" or "c4=p", plus any suffix.
func (m Move) Notation() string {
	var body string
	if m.IsPlacement() {
		code := m.Placed
		if code != "p" {
			code = strings.ToUpper(code)
		}
		body = squareName(m.ToX, m.ToY) + "=" + code
	} else {
		connector := "-"
		if m.Captured != "" {
			connector = "x"
		}
		body = squareName(m.FromX, m.FromY) + connector + squareName(m.ToX, m.ToY)
	}
	return body + m.Suffix
}

func squareName(x, y int) string {
	return string(rune('a'+x)) + strconv.Itoa(y+1)
}

func parseSquare(s string) (int, int, error) {
	if len(s) < 2 || s[0] < 'a' || s[0] > 'z' {
		return 0, 0, fmt.Errorf("%w: square %q", ErrBadNotation, s)
	}
	rank, err := strconv.Atoi(s[1:])
	if err != nil || rank < 1 {
		return 0, 0, fmt.Errorf("%w: square %q", ErrBadNotation, s)
	}
	return int(s[0] - 'a'), rank - 1, nil
}

// ParseNotation is the inverse of Notation for coordinates, placed piece and suffix.
func ParseNotation(s string) (Move, error) {
	var mv Move
	body := strings.TrimRight(s, "+#")
	mv.Suffix = s[len(body):]
	if len(mv.Suffix) > 1 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
	}

	if dst, code, ok := strings.Cut(body, "="); ok {
		x, y, err := parseSquare(dst)
		if err != nil {
			return Move{}, err
		}
		kind, ok := rules.PieceFromCode(code)
		if !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrUnknownPiece, code)
		}
		mv.ToX, mv.ToY = x, y
		mv.Placed = rules.ObjectCode(kind)
		return mv, nil
	}

	sep := strings.IndexAny(body, "x-")
	if sep < 0 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
	}
	fx, fy, err := parseSquare(body[:sep])
	if err != nil {
		return Move{}, err
	}
	tx, ty, err := parseSquare(body[sep+1:])
	if err != nil {
		return Move{}, err
	}
	mv.HasSource = true
	mv.FromX, mv.FromY, mv.ToX, mv.ToY = fx, fy, tx, ty
	if body[sep] == 'x' {
		mv.Captured = CaptureUnknown
	}
	return mv, nil
}

// placedKind returns the kind for a placement move.
func (m Move) placedKind() (board.Kind, bool) {
	return rules.PieceFromCode(m.Placed)
}
