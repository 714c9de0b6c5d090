// internal/board/board.go
package board

import (
	"errors"
	"fmt"
)

const (
	MinSize = 6
	MaxSize = 16
)

// ErrInvalidDimensions is returned when a width or height is odd or outside [MinSize, MaxSize].
var ErrInvalidDimensions = errors.New("map dimensions must be even and between 6 and 16")

// Mode selects mirrored or fully random generation. It is also the first byte of a seed.
type Mode string

const (
	ModeMirrored Mode = "m"
	ModeRandom   Mode = "r"
)

// ParseMode accepts "m" or "r".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMirrored, ModeRandom:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown map mode %q", s)
}

// Map is a fixed-size arena of squares indexed by id = y*Width + x.
type Map struct {
	Width    int
	Height   int
	Mirrored bool
	Seed     string
	Squares  []Square
}

// ValidateDimensions checks that both sides are even and within range.
func ValidateDimensions(width, height int) error {
	if width%2 != 0 || height%2 != 0 || width < MinSize || height < MinSize || width > MaxSize || height > MaxSize {
		return fmt.Errorf("%dx%d: %w", width, height, ErrInvalidDimensions)
	}
	return nil
}

// New returns a map of plain terrain with no objects, for editors and tests.
func New(width, height int) (*Map, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	return newMap(width, height, false), nil
}

// newMap lays out the alternating Grass/Dirt base pattern. Dimensions are assumed valid.
func newMap(width, height int, mirrored bool) *Map {
	m := &Map{
		Width:    width,
		Height:   height,
		Mirrored: mirrored,
		Squares:  make([]Square, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := Dirt
			if (x+y)%2 == 0 {
				t = Grass
			}
			id := y*width + x
			m.Squares[id] = Square{X: x, Y: y, ID: id, Type: t}
		}
	}
	return m
}

// Size returns the number of squares.
func (m *Map) Size() int { return len(m.Squares) }

// InBounds reports whether (x, y) lies on the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the square at (x, y) or nil when off the map.
func (m *Map) At(x, y int) *Square {
	if !m.InBounds(x, y) {
		return nil
	}
	return &m.Squares[y*m.Width+x]
}

// ByID returns the square with the given id or nil.
func (m *Map) ByID(id int) *Square {
	if id < 0 || id >= len(m.Squares) {
		return nil
	}
	return &m.Squares[id]
}

// MirrorID returns the point-symmetric partner of a square id.
func (m *Map) MirrorID(id int) int {
	return len(m.Squares) - 1 - id
}

// FindKing returns the square holding c's king, or nil once it has been replaced by a flag.
func (m *Map) FindKing(c Color) *Square {
	for i := range m.Squares {
		if m.Squares[i].Occupant.Kind == King && m.Squares[i].Occupant.Color == c {
			return &m.Squares[i]
		}
	}
	return nil
}

// PieceSquares returns every square holding a piece of color c, in id order.
func (m *Map) PieceSquares(c Color) []*Square {
	var out []*Square
	for i := range m.Squares {
		if m.Squares[i].Occupant.IsPieceOf(c) {
			out = append(out, &m.Squares[i])
		}
	}
	return out
}

// CountMinesOwned returns how many mines are currently marked as owned by c.
func (m *Map) CountMinesOwned(c Color) int {
	n := 0
	for i := range m.Squares {
		if m.Squares[i].Type.IsMine() && m.Squares[i].MineOwner == c {
			n++
		}
	}
	return n
}

// ClearHighlights resets every transient highlight.
func (m *Map) ClearHighlights() {
	for i := range m.Squares {
		m.Squares[i].Highlight = HighlightNone
	}
}

// Clone returns a deep copy. Squares are values, so copying the slice is enough.
func (m *Map) Clone() *Map {
	c := *m
	c.Squares = make([]Square, len(m.Squares))
	copy(c.Squares, m.Squares)
	return &c
}

// SameLayout reports whether two maps carry identical terrain and occupants square by square.
// Mine ownership and highlights are game state and are ignored.
func (m *Map) SameLayout(o *Map) bool {
	if m.Width != o.Width || m.Height != o.Height || len(m.Squares) != len(o.Squares) {
		return false
	}
	for i := range m.Squares {
		if m.Squares[i].Type != o.Squares[i].Type || m.Squares[i].Occupant != o.Squares[i].Occupant {
			return false
		}
	}
	return true
}

// mirrorHalf copies every square of the first half onto its mirror partner.
// Gaia objects are copied and a white king becomes the black king.
func (m *Map) mirrorHalf() {
	half := len(m.Squares) / 2
	for id := 0; id < half; id++ {
		src := &m.Squares[id]
		dst := &m.Squares[m.MirrorID(id)]
		dst.Type = src.Type
		switch {
		case src.Occupant.Kind.IsGaia():
			dst.Occupant = Occupant{Kind: src.Occupant.Kind}
		case src.Occupant.Kind == King:
			dst.Occupant = NewPiece(King, Black)
		default:
			dst.Occupant = Occupant{}
		}
	}
}
