// internal/rules/pathfinder.go
package rules

import "github.com/jason-s-yu/ageofchess/internal/board"

// Finder computes legal destinations, attacked squares and placement squares on a map.
//
// Most scans take a checking flag. A checking scan answers "which squares does this piece
// attack": it x-rays through the enemy king, counts friendly pieces as covered, and skips
// pin and check filtering.
type Finder struct {
	m *board.Map
}

// NewFinder returns a finder bound to m. The finder never mutates the map.
func NewFinder(m *board.Map) *Finder {
	return &Finder{m: m}
}

// LegalDestinations returns every square the piece on src may move to this turn.
func (f *Finder) LegalDestinations(src *board.Square) []*board.Square {
	if src == nil || !src.Occupant.IsPiece() {
		return nil
	}
	return f.destinations(src, false)
}

// IsLegalMove reports whether moving src to dst is legal.
func (f *Finder) IsLegalMove(src, dst *board.Square) bool {
	for _, sq := range f.LegalDestinations(src) {
		if sq.ID == dst.ID {
			return true
		}
	}
	return false
}

func (f *Finder) destinations(src *board.Square, checking bool) []*board.Square {
	piece := src.Occupant
	color := piece.Color

	if !checking && piece.Kind != board.King {
		if dir, pinned := f.pinDirection(src); pinned {
			return f.filterForCheck(color, f.pinnedDestinations(src, dir))
		}
	}

	var out []*board.Square
	switch piece.Kind {
	case board.Pawn:
		out = f.pawnDestinations(src)
	case board.Knight:
		out = f.knightDestinations(src, checking)
	case board.King:
		out = f.kingDestinations(src, checking)
	case board.Queen:
		for _, d := range allDirections {
			out = append(out, f.vector(src, color, d, checking, 0)...)
		}
	case board.Rook:
		for _, d := range orthogonalDirections {
			out = append(out, f.vector(src, color, d, checking, 0)...)
		}
	case board.Bishop:
		for _, d := range diagonalDirections {
			out = append(out, f.vector(src, color, d, checking, 0)...)
		}
	}

	if checking || piece.Kind == board.King {
		return out
	}
	return f.filterForCheck(color, out)
}

// vector walks from src in direction d for at most maxSteps squares (0 means unlimited).
// Rocks block outright. A resource square ends the slide after being entered.
func (f *Finder) vector(src *board.Square, color board.Color, d Direction, checking bool, maxSteps int) []*board.Square {
	var out []*board.Square
	dx, dy := deltas[d][0], deltas[d][1]
	x, y := src.X+dx, src.Y+dy
	for step := 1; maxSteps == 0 || step <= maxSteps; step++ {
		sq := f.m.At(x, y)
		if sq == nil || sq.Type.IsRocks() {
			break
		}
		occ := sq.Occupant

		if sq.Type.IsResource() {
			if occ.IsPieceOf(color) && !checking {
				break
			}
			out = append(out, sq)
			break
		}

		if !occ.IsEmpty() {
			if occ.IsPieceOf(color) && !checking {
				break
			}
			out = append(out, sq)
			if checking && occ.Kind == board.King && occ.Color != color {
				x, y = x+dx, y+dy
				continue
			}
			break
		}

		out = append(out, sq)
		x, y = x+dx, y+dy
	}
	return out
}

// pawnDestinations: one step orthogonally onto an empty square, or one step diagonally
// onto anything that is not a friendly piece.
func (f *Finder) pawnDestinations(src *board.Square) []*board.Square {
	color := src.Occupant.Color
	var out []*board.Square
	for _, d := range orthogonalDirections {
		for _, sq := range f.vector(src, color, d, false, 1) {
			if sq.Occupant.IsEmpty() {
				out = append(out, sq)
			}
		}
	}
	out = append(out, f.pawnCaptures(src)...)
	return out
}

func (f *Finder) pawnCaptures(src *board.Square) []*board.Square {
	color := src.Occupant.Color
	var out []*board.Square
	for _, d := range diagonalDirections {
		for _, sq := range f.vector(src, color, d, false, 1) {
			if !sq.Occupant.IsEmpty() && !sq.Occupant.IsPieceOf(color) {
				out = append(out, sq)
			}
		}
	}
	return out
}

func (f *Finder) knightDestinations(src *board.Square, checking bool) []*board.Square {
	color := src.Occupant.Color
	var out []*board.Square
	for _, o := range knightOffsets {
		sq := f.m.At(src.X+o[0], src.Y+o[1])
		if sq == nil || sq.Type.IsRocks() {
			continue
		}
		if !checking && sq.Occupant.IsPieceOf(color) {
			continue
		}
		out = append(out, sq)
	}
	return out
}

func (f *Finder) kingDestinations(src *board.Square, checking bool) []*board.Square {
	color := src.Occupant.Color
	var out []*board.Square
	for _, d := range allDirections {
		out = append(out, f.vector(src, color, d, checking, 1)...)
	}
	if checking {
		return out
	}
	attacked := f.Attacks(color.Opponent())
	safe := out[:0]
	for _, sq := range out {
		if !attacked[sq.ID] {
			safe = append(safe, sq)
		}
	}
	return safe
}

// Attacks returns the set of square ids attacked by color, keyed by id.
// Pawns contribute only their diagonals.
func (f *Finder) Attacks(color board.Color) map[int]bool {
	attacked := make(map[int]bool)
	for _, src := range f.m.PieceSquares(color) {
		if src.Occupant.Kind == board.Pawn {
			for _, d := range diagonalDirections {
				for _, sq := range f.vector(src, color, d, true, 1) {
					attacked[sq.ID] = true
				}
			}
			continue
		}
		for _, sq := range f.destinations(src, true) {
			attacked[sq.ID] = true
		}
	}
	return attacked
}

// IsInCheck reports whether color's king is attacked. A side without a king is never in check.
func (f *Finder) IsInCheck(color board.Color) bool {
	king := f.m.FindKing(color)
	if king == nil {
		return false
	}
	return len(f.Checkers(king)) > 0
}

// Checkers returns the enemy pieces attacking the king on kingSq.
func (f *Finder) Checkers(kingSq *board.Square) []*board.Square {
	if kingSq == nil || kingSq.Occupant.Kind != board.King {
		return nil
	}
	enemy := kingSq.Occupant.Color.Opponent()
	var out []*board.Square
	for _, src := range f.m.PieceSquares(enemy) {
		var reach []*board.Square
		if src.Occupant.Kind == board.Pawn {
			for _, d := range diagonalDirections {
				reach = append(reach, f.vector(src, enemy, d, true, 1)...)
			}
		} else {
			reach = f.destinations(src, true)
		}
		for _, sq := range reach {
			if sq.ID == kingSq.ID {
				out = append(out, src)
				break
			}
		}
	}
	return out
}

// filterForCheck keeps only the destinations that resolve a check on color's king.
// When the king is safe the input is returned unchanged.
func (f *Finder) filterForCheck(color board.Color, candidates []*board.Square) []*board.Square {
	king := f.m.FindKing(color)
	if king == nil {
		return candidates
	}
	checkers := f.Checkers(king)
	if len(checkers) == 0 {
		return candidates
	}
	var out []*board.Square
	for _, sq := range candidates {
		if f.fixesCheck(checkers, sq, color) {
			out = append(out, sq)
		}
	}
	return out
}

// fixesCheck reports whether occupying dst captures or blocks the single checker.
// Double check can only be answered by the king and a knight check cannot be blocked.
func (f *Finder) fixesCheck(checkers []*board.Square, dst *board.Square, color board.Color) bool {
	if len(checkers) != 1 {
		return false
	}
	checker := checkers[0]
	if checker.ID == dst.ID {
		return true
	}
	if checker.Occupant.Kind == board.Knight {
		return false
	}

	for _, d := range allDirections {
		if !f.isKingFile(checker, color, d) {
			continue
		}
		dx, dy := deltas[d][0], deltas[d][1]
		sq := f.m.At(checker.X+dx, checker.Y+dy)
		for sq != nil && sq.Occupant.Kind != board.King {
			if sq.ID == dst.ID {
				return true
			}
			sq = f.m.At(sq.X+dx, sq.Y+dy)
		}
		return false
	}
	return false
}

// isKingFile reports whether walking from src in d reaches color's king with nothing in
// between. Rocks and resource squares break the line.
func (f *Finder) isKingFile(src *board.Square, color board.Color, d Direction) bool {
	dx, dy := deltas[d][0], deltas[d][1]
	for sq := f.m.At(src.X+dx, src.Y+dy); sq != nil; sq = f.m.At(sq.X+dx, sq.Y+dy) {
		if sq.Type.IsRocks() {
			return false
		}
		if !sq.Occupant.IsEmpty() {
			return sq.Occupant.Kind == board.King && sq.Occupant.Color == color
		}
		if sq.Type.IsResource() {
			return false
		}
	}
	return false
}

// hasPinningPiece reports whether the first object found walking from src in d is an
// enemy slider able to move along d.
func (f *Finder) hasPinningPiece(src *board.Square, color board.Color, d Direction) bool {
	dx, dy := deltas[d][0], deltas[d][1]
	for sq := f.m.At(src.X+dx, src.Y+dy); sq != nil; sq = f.m.At(sq.X+dx, sq.Y+dy) {
		if sq.Type.IsRocks() {
			return false
		}
		occ := sq.Occupant
		if !occ.IsEmpty() {
			if !occ.IsPiece() || occ.Color == color {
				return false
			}
			switch occ.Kind {
			case board.Queen:
				return true
			case board.Rook:
				return d.IsOrthogonal()
			case board.Bishop:
				return !d.IsOrthogonal()
			}
			return false
		}
		if sq.Type.IsResource() {
			return false
		}
	}
	return false
}

// pinDirection returns the direction from src towards its own king when src is pinned.
// A piece standing on a resource square is never pinned.
func (f *Finder) pinDirection(src *board.Square) (Direction, bool) {
	if src.Type.IsResource() {
		return 0, false
	}
	color := src.Occupant.Color
	for _, d := range allDirections {
		if f.isKingFile(src, color, d) && f.hasPinningPiece(src, color, d.Opposite()) {
			return d, true
		}
	}
	return 0, false
}

// pinnedDestinations restricts a pinned piece to the line between its king and the pinner.
func (f *Finder) pinnedDestinations(src *board.Square, kingDir Direction) []*board.Square {
	piece := src.Occupant
	color := piece.Color
	along := func(steps int) []*board.Square {
		out := f.vector(src, color, kingDir, false, steps)
		return append(out, f.vector(src, color, kingDir.Opposite(), false, steps)...)
	}

	switch piece.Kind {
	case board.Queen:
		return along(0)
	case board.Rook:
		if kingDir.IsOrthogonal() {
			return along(0)
		}
	case board.Bishop:
		if !kingDir.IsOrthogonal() {
			return along(0)
		}
	case board.Pawn:
		var out []*board.Square
		for _, sq := range along(1) {
			if kingDir.IsOrthogonal() {
				if !sq.Occupant.IsPiece() {
					out = append(out, sq)
				}
			} else if sq.Occupant.IsPiece() && sq.Occupant.Color != color {
				out = append(out, sq)
			}
		}
		return out
	}
	return nil
}

// PlacementSquares returns the empty squares where color may place a new piece:
// around its king, and for pawns also around every other non-pawn piece it owns.
// While in check only squares that block the check remain.
func (f *Finder) PlacementSquares(color board.Color, pawn bool) []*board.Square {
	king := f.m.FindKing(color)
	if king == nil {
		return nil
	}

	seen := make(map[int]bool)
	var out []*board.Square
	around := func(src *board.Square) {
		for _, d := range allDirections {
			for _, sq := range f.vector(src, color, d, true, 1) {
				if sq.Occupant.IsEmpty() && !seen[sq.ID] {
					seen[sq.ID] = true
					out = append(out, sq)
				}
			}
		}
	}

	around(king)
	if pawn {
		for _, sq := range f.m.PieceSquares(color) {
			if k := sq.Occupant.Kind; k != board.Pawn && k != board.King {
				around(sq)
			}
		}
	}
	return f.filterForCheck(color, out)
}

// HasAnyMove reports whether color has at least one legal move with any piece.
func (f *Finder) HasAnyMove(color board.Color) bool {
	for _, sq := range f.m.PieceSquares(color) {
		if len(f.LegalDestinations(sq)) > 0 {
			return true
		}
	}
	return false
}

// CanAnswerCheck reports whether color, holding gold, has any move or affordable
// placement. Callers use it once the king is known to be in check.
func (f *Finder) CanAnswerCheck(color board.Color, gold int) bool {
	if f.HasAnyMove(color) {
		return true
	}
	for kind, cost := range pieceCosts {
		if cost <= gold && len(f.PlacementSquares(color, kind == board.Pawn)) > 0 {
			return true
		}
	}
	return false
}
