// internal/board/square.go
package board

// SquareType is the terrain of a square. Terrain never changes once a map is built.
type SquareType int

const (
	Dirt SquareType = iota
	DirtRocks
	DirtMine
	DirtTrees
	Grass
	GrassRocks
	GrassMine
	GrassTrees
)

var squareTypeNames = [...]string{
	Dirt:       "Dirt",
	DirtRocks:  "DirtRocks",
	DirtMine:   "DirtMine",
	DirtTrees:  "DirtTrees",
	Grass:      "Grass",
	GrassRocks: "GrassRocks",
	GrassMine:  "GrassMine",
	GrassTrees: "GrassTrees",
}

func (t SquareType) String() string {
	if t < Dirt || t > GrassTrees {
		return "Unknown"
	}
	return squareTypeNames[t]
}

// Base returns the plain terrain (Dirt or Grass) underneath a feature.
func (t SquareType) Base() SquareType {
	if t >= Grass {
		return Grass
	}
	return Dirt
}

func (t SquareType) IsPlain() bool { return t == Dirt || t == Grass }
func (t SquareType) IsRocks() bool { return t == DirtRocks || t == GrassRocks }
func (t SquareType) IsMine() bool  { return t == DirtMine || t == GrassMine }
func (t SquareType) IsTrees() bool { return t == DirtTrees || t == GrassTrees }

// IsResource reports whether the square may only be entered as the last step of a move.
func (t SquareType) IsResource() bool { return t.IsMine() || t.IsTrees() }

// withFeature maps a plain base onto the same feature family as f (e.g. Grass + DirtMine -> GrassMine).
func (t SquareType) withFeature(f SquareType) SquareType {
	offset := f - f.Base()
	return t.Base() + offset
}

// Color is a side of the board. NoColor marks unowned mines and non-piece occupants.
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// Opponent returns the other side. NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Highlight is a transient UI marker, cleared at the start of every turn.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightBlue
	HighlightRed
	HighlightPurple
	HighlightOrange
	HighlightGreen
)

func (h Highlight) String() string {
	switch h {
	case HighlightBlue:
		return "Blue"
	case HighlightRed:
		return "Red"
	case HighlightPurple:
		return "Purple"
	case HighlightOrange:
		return "Orange"
	case HighlightGreen:
		return "Green"
	default:
		return "None"
	}
}

// Kind enumerates everything that can stand on a square.
type Kind uint8

const (
	Empty Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
	Treasure
	Flag
)

var kindNames = [...]string{
	Empty:    "",
	King:     "King",
	Queen:    "Queen",
	Rook:     "Rook",
	Bishop:   "Bishop",
	Knight:   "Knight",
	Pawn:     "Pawn",
	Treasure: "Treasure",
	Flag:     "Flag",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// IsPiece reports whether the kind is a playable chess piece.
func (k Kind) IsPiece() bool { return k >= King && k <= Pawn }

// IsGaia reports whether the kind is a neutral object (treasure or flag).
func (k Kind) IsGaia() bool { return k == Treasure || k == Flag }

// Occupant is stored inline on a square. The zero value is an empty square.
type Occupant struct {
	Kind  Kind
	Color Color
}

// NewPiece builds a piece occupant.
func NewPiece(kind Kind, color Color) Occupant {
	return Occupant{Kind: kind, Color: color}
}

func (o Occupant) IsEmpty() bool { return o.Kind == Empty }
func (o Occupant) IsPiece() bool { return o.Kind.IsPiece() }

// IsPieceOf reports whether the occupant is a piece belonging to c.
func (o Occupant) IsPieceOf(c Color) bool { return o.Kind.IsPiece() && o.Color == c }

// Square is a single cell of the map arena.
type Square struct {
	X, Y      int
	ID        int
	Type      SquareType
	Occupant  Occupant
	MineOwner Color
	Highlight Highlight
}

// IsEmptyPlain reports whether the square has plain terrain and nothing on it.
func (s *Square) IsEmptyPlain() bool {
	return s.Type.IsPlain() && s.Occupant.IsEmpty()
}
