// internal/board/generator.go
package board

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Generator builds random maps. The random source is owned by the generator and is not
// safe for concurrent use; create one generator per goroutine.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator wraps rng. A nil rng is replaced by a source seeded from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate dispatches on mode.
func (g *Generator) Generate(mode Mode, width, height int) (*Map, error) {
	switch mode {
	case ModeMirrored:
		return g.GenerateMirrored(width, height)
	case ModeRandom:
		return g.GenerateFullRandom(width, height)
	}
	return nil, fmt.Errorf("unknown map mode %q", mode)
}

// GenerateMirrored randomises the first half of the board and reflects it point-symmetrically.
func (g *Generator) GenerateMirrored(width, height int) (*Map, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	m := newMap(width, height, true)
	half := m.Size() / 2

	for _, t := range []SquareType{DirtRocks, GrassRocks, DirtTrees, GrassTrees, DirtMine, GrassMine} {
		g.promoteFraction(m, t, 0.02, half)
	}
	if width == 10 || width == 12 {
		for _, t := range []SquareType{GrassMine, GrassRocks, GrassTrees} {
			g.promote(m, t, 1, half)
		}
	}

	treasures := int(math.Round(0.02 * float64(countEmptyPlain(m, m.Size()))))
	if treasures < 2 {
		treasures = 2
	}
	g.scatter(m, Treasure, treasures, 0, half)

	g.spawnMirroredKings(m)
	m.mirrorHalf()
	m.EncodeSeed()
	return m, nil
}

// fullRandomDensity is the per-terrain square count for full-random maps, keyed by width.
var fullRandomDensity = map[int]int{8: 1, 10: 2, 12: 3, 14: 4, 16: 5}

// GenerateFullRandom randomises the whole board without symmetry. Each king is kept inside
// its own half with one buffer column towards the centre.
func (g *Generator) GenerateFullRandom(width, height int) (*Map, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	m := newMap(width, height, false)
	n := m.Size()

	density, ok := fullRandomDensity[width]
	if !ok {
		density = 1
	}
	mines := density
	if width == 16 {
		mines--
	}

	g.promote(m, DirtRocks, density, n)
	g.promote(m, GrassRocks, density, n)
	g.promote(m, DirtTrees, density, n)
	g.promote(m, GrassTrees, density, n)
	g.promote(m, DirtMine, mines, n)
	g.promote(m, GrassMine, mines, n)

	extra := 0
	if width == 8 || width == 10 || width == 16 {
		extra = 1
		g.promote(m, GrassRocks, 1, n)
		g.promote(m, GrassTrees, 1, n)
		g.promote(m, GrassMine, 1, n)
	}

	g.scatter(m, Treasure, density*2+extra, 0, n)

	whiteEnd := n/2 - height
	blackStart := n/2 - 1 + height
	if sq := g.randomEmptySquare(m, 0, whiteEnd); sq != nil {
		sq.Occupant = NewPiece(King, White)
	}
	if sq := g.randomEmptySquare(m, blackStart, n); sq != nil {
		sq.Occupant = NewPiece(King, Black)
	}

	m.EncodeSeed()
	return m, nil
}

// promoteFraction turns round(fraction*limit) plain squares (at least one) into t.
func (g *Generator) promoteFraction(m *Map, t SquareType, fraction float64, limit int) {
	amount := int(math.Round(fraction * float64(limit)))
	if amount == 0 {
		amount = 1
	}
	g.promote(m, t, amount, limit)
}

// promote turns amount squares of t's base terrain with id < limit into t.
func (g *Generator) promote(m *Map, t SquareType, amount, limit int) {
	base := t.Base()
	for i := 0; i < amount; i++ {
		candidates := make([]int, 0, limit)
		for id := 0; id < limit; id++ {
			if m.Squares[id].Type == base && m.Squares[id].Occupant.IsEmpty() {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) == 0 {
			return
		}
		m.Squares[candidates[g.rng.Intn(len(candidates))]].Type = t
	}
}

// scatter drops amount objects of kind on empty plain squares with id in [from, to).
func (g *Generator) scatter(m *Map, kind Kind, amount, from, to int) {
	for i := 0; i < amount; i++ {
		sq := g.randomEmptySquare(m, from, to)
		if sq == nil {
			return
		}
		sq.Occupant = Occupant{Kind: kind}
	}
}

// randomEmptySquare picks an empty plain square with id in [from, to).
func (g *Generator) randomEmptySquare(m *Map, from, to int) *Square {
	return g.randomEmptySquareWhere(m, from, to, nil)
}

func (g *Generator) randomEmptySquareWhere(m *Map, from, to int, reject func(*Square) bool) *Square {
	if from < 0 {
		from = 0
	}
	if to > m.Size() {
		to = m.Size()
	}
	var candidates []*Square
	for id := from; id < to; id++ {
		sq := &m.Squares[id]
		if sq.IsEmptyPlain() && (reject == nil || !reject(sq)) {
			candidates = append(candidates, sq)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[g.rng.Intn(len(candidates))]
}

// spawnMirroredKings places the white king in the first half, away from the two centre
// squares of the middle row so the mirrored kings cannot touch.
func (g *Generator) spawnMirroredKings(m *Map) {
	centreRow := m.Height/2 - 1
	sq := g.randomEmptySquareWhere(m, 0, m.Size()/2, func(s *Square) bool {
		return s.Y == centreRow && (s.X == m.Width/2 || s.X == m.Width/2-1)
	})
	if sq != nil {
		sq.Occupant = NewPiece(King, White)
	}
}

func countEmptyPlain(m *Map, limit int) int {
	n := 0
	for id := 0; id < limit; id++ {
		if m.Squares[id].IsEmptyPlain() {
			n++
		}
	}
	return n
}
