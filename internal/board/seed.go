// internal/board/seed.go
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSeed wraps every seed parse failure.
var ErrInvalidSeed = errors.New("invalid map seed")

// encodedLimit is the number of squares a seed describes: the generated half for mirrored
// maps, the whole board otherwise.
func (m *Map) encodedLimit() int {
	if m.Mirrored {
		return len(m.Squares) / 2
	}
	return len(m.Squares)
}

// EncodeSeed writes the canonical seed for the current layout into m.Seed and returns it.
//
// Format: {m|r}_{W}x{H}_{RLE}. Runs of empty plain squares are written as digits (a run
// is flushed as "9" each time it reaches nine); every other square is one letter:
// k king, t treasure, m mine, r rocks, f trees. An object wins over terrain.
func (m *Map) EncodeSeed() string {
	mode := ModeRandom
	if m.Mirrored {
		mode = ModeMirrored
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s_%dx%d_", mode, m.Width, m.Height)

	run := 0
	for id := 0; id < m.encodedLimit(); id++ {
		sq := &m.Squares[id]
		if sq.Occupant.IsEmpty() && sq.Type.IsPlain() {
			run++
			if run == 9 {
				sb.WriteByte('9')
				run = 0
			}
			continue
		}
		if run != 0 {
			sb.WriteString(strconv.Itoa(run))
			run = 0
		}
		sb.WriteByte(squareLetter(sq))
	}
	if run != 0 {
		sb.WriteString(strconv.Itoa(run))
	}

	m.Seed = sb.String()
	return m.Seed
}

func squareLetter(sq *Square) byte {
	switch {
	case sq.Occupant.Kind == King:
		return 'k'
	case !sq.Occupant.IsEmpty():
		return 't'
	case sq.Type.IsMine():
		return 'm'
	case sq.Type.IsRocks():
		return 'r'
	default:
		return 'f'
	}
}

// FromSeed rebuilds a map from its seed. It is the exact inverse of EncodeSeed for
// terrain and occupants.
func FromSeed(seed string) (*Map, error) {
	parts := strings.Split(seed, "_")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 sections, got %d", ErrInvalidSeed, len(parts))
	}
	mode, err := ParseMode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	dims := strings.Split(parts[1], "x")
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: malformed dimensions %q", ErrInvalidSeed, parts[1])
	}
	width, errW := strconv.Atoi(dims[0])
	height, errH := strconv.Atoi(dims[1])
	if errW != nil || errH != nil {
		return nil, fmt.Errorf("%w: malformed dimensions %q", ErrInvalidSeed, parts[1])
	}
	if err := ValidateDimensions(width, height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	m := newMap(width, height, mode == ModeMirrored)
	limit := m.encodedLimit()
	half := len(m.Squares) / 2

	id := 0
	for i := 0; i < len(parts[2]); i++ {
		c := parts[2][i]
		if c >= '0' && c <= '9' {
			id += int(c - '0')
			if id > limit {
				return nil, fmt.Errorf("%w: run overflows map at position %d", ErrInvalidSeed, i)
			}
			continue
		}
		if id >= limit {
			return nil, fmt.Errorf("%w: %q at position %d is past the end of the map", ErrInvalidSeed, c, i)
		}

		sq := &m.Squares[id]
		switch c {
		case 'k':
			color := White
			if id >= half {
				color = Black
			}
			sq.Occupant = NewPiece(King, color)
		case 't':
			sq.Occupant = Occupant{Kind: Treasure}
		case 'm':
			sq.Type = sq.Type.withFeature(DirtMine)
		case 'r':
			sq.Type = sq.Type.withFeature(DirtRocks)
		case 'f':
			sq.Type = sq.Type.withFeature(DirtTrees)
		default:
			return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidSeed, c, i)
		}
		id++
	}

	if m.Mirrored {
		m.mirrorHalf()
	}
	m.Seed = seed
	return m, nil
}

// ValidateSeed reports whether the seed parses and places at least one king.
func ValidateSeed(seed string) bool {
	if !strings.Contains(seed, "k") {
		return false
	}
	_, err := FromSeed(seed)
	return err == nil
}
