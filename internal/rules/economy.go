package rules

import "github.com/jason-s-yu/ageofchess/internal/board"

const (
	// GoldVictoryThreshold ends the game for a side holding at least this much gold.
	GoldVictoryThreshold = 150
	// TreasureGold is awarded for landing on a treasure.
	TreasureGold = 20
	// BaseIncome is granted to the side starting its turn.
	BaseIncome = 1
	// MineIncome is granted per mine owned by the side starting its turn.
	MineIncome = 5
	// BlackStartingGold applies when no bidding took place.
	BlackStartingGold = 10
	// DefaultStalemateGoldFloor: a lone king with no moves is stalemated only if the
	// opponent holds less gold than this.
	DefaultStalemateGoldFloor = 15
)

var pieceCosts = map[board.Kind]int{
	board.Queen:  70,
	board.Rook:   35,
	board.Bishop: 25,
	board.Knight: 30,
	board.Pawn:   20,
}

// Cost returns the shop price of a placeable piece kind.
func Cost(kind board.Kind) (int, bool) {
	c, ok := pieceCosts[kind]
	return c, ok
}

// PieceFromCode maps a shop code (q, r, b, n, p, any case) to a kind.
func PieceFromCode(code string) (board.Kind, bool) {
	switch code {
	case "q", "Q":
		return board.Queen, true
	case "r", "R":
		return board.Rook, true
	case "b", "B":
		return board.Bishop, true
	case "n", "N":
		return board.Knight, true
	case "p", "P":
		return board.Pawn, true
	}
	return board.Empty, false
}

// ObjectCode is the lower-case letter used in move notation for a placed or captured object.
func ObjectCode(kind board.Kind) string {
	switch kind {
	case board.Treasure:
		return "t"
	case board.Queen:
		return "q"
	case board.Rook:
		return "r"
	case board.Bishop:
		return "b"
	case board.Knight:
		return "n"
	case board.Pawn:
		return "p"
	case board.King:
		return "k"
	case board.Flag:
		return "f"
	}
	return ""
}
