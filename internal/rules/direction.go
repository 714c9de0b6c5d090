package rules

// Direction is one of the eight compass directions. North is towards y = 0.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var (
	allDirections        = [...]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}
	orthogonalDirections = [...]Direction{North, East, South, West}
	diagonalDirections   = [...]Direction{NorthEast, SouthEast, SouthWest, NorthWest}

	deltas = [...][2]int{
		North:     {0, -1},
		NorthEast: {1, -1},
		East:      {1, 0},
		SouthEast: {1, 1},
		South:     {0, 1},
		SouthWest: {-1, 1},
		West:      {-1, 0},
		NorthWest: {-1, -1},
	}

	knightOffsets = [...][2]int{
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
	}
)

// Opposite returns the direction rotated by 180 degrees.
func (d Direction) Opposite() Direction { return (d + 4) % 8 }

// IsOrthogonal is true for N, E, S and W.
func (d Direction) IsOrthogonal() bool { return d%2 == 0 }
