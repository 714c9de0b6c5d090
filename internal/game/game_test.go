// internal/game/game_test.go
package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/ageofchess/internal/board"
)

// twoKings is a 6x6 random-mode seed with the white king on a1 and the black king on f6.
const twoKings = "r_6x6_k9997k"

func seededGame(t *testing.T, opts Options) *Game {
	t.Helper()
	m, err := board.FromSeed(twoKings)
	require.NoError(t, err)
	return New(m, opts)
}

func blankGame(t *testing.T) *Game {
	t.Helper()
	m, err := board.New(6, 6)
	require.NoError(t, err)
	return New(m, Options{})
}

// play makes one full turn and fails the test if the move is rejected.
func play(t *testing.T, g *Game, fx, fy, tx, ty int) {
	t.Helper()
	require.True(t, g.TryMovePiece(fx, fy, tx, ty), "move %d,%d -> %d,%d", fx, fy, tx, ty)
	g.EndTurn()
	g.StartNewTurn()
}

func TestNewGameDefaults(t *testing.T) {
	g := seededGame(t, Options{WhiteName: "a", BlackName: "b", TimeControl: true, StartTime: 5 * time.Minute})
	assert.Equal(t, 0, g.White.Gold)
	assert.Equal(t, 10, g.Black.Gold)
	assert.True(t, g.White.IsActive)
	assert.False(t, g.Black.IsActive)
	assert.Equal(t, int64(300000), g.White.TimeMs)
	assert.Equal(t, int64(300000), g.Black.TimeMs)
	assert.Equal(t, board.King, g.Map.At(0, 0).Occupant.Kind)
	assert.Equal(t, board.Black, g.Map.At(5, 5).Occupant.Color)
}

func TestIncomeAndTurnOrder(t *testing.T) {
	g := seededGame(t, Options{})

	assert.False(t, g.TryMovePiece(5, 5, 4, 5), "black cannot move on white's turn")
	play(t, g, 0, 0, 1, 0)
	assert.Equal(t, 11, g.Black.Gold)
	assert.Equal(t, board.Black, g.Active().Color)
	assert.Equal(t, []string{"a1-b1"}, g.Notations())

	play(t, g, 5, 5, 4, 5)
	assert.Equal(t, 1, g.White.Gold)
}

func TestMineIncomeAndOwnership(t *testing.T) {
	g := seededGame(t, Options{})
	sq := g.Map.At(1, 0)
	sq.Type = board.DirtMine

	play(t, g, 0, 0, 1, 0)
	assert.Equal(t, board.White, g.Map.At(1, 0).MineOwner)
	play(t, g, 5, 5, 4, 5)
	assert.Equal(t, 6, g.White.Gold, "base income plus one mine")

	// Ownership stays after the king walks off.
	play(t, g, 1, 0, 2, 0)
	play(t, g, 4, 5, 3, 5)
	assert.Equal(t, board.White, g.Map.At(1, 0).MineOwner)
	assert.Equal(t, 12, g.White.Gold)
}

func TestTreasurePickup(t *testing.T) {
	g := seededGame(t, Options{})
	g.Map.At(1, 0).Occupant = board.Occupant{Kind: board.Treasure}

	play(t, g, 0, 0, 1, 0)
	assert.Equal(t, 20, g.White.Gold)
	assert.Equal(t, []string{"a1xb1"}, g.Notations())
}

func TestGoldVictoryThreshold(t *testing.T) {
	g := seededGame(t, Options{})
	g.White.Gold = 148

	play(t, g, 0, 0, 1, 0)
	play(t, g, 5, 5, 4, 5)
	assert.Equal(t, 149, g.White.Gold)
	assert.False(t, g.Ended, "149 gold does not win")

	play(t, g, 1, 0, 2, 0)
	play(t, g, 4, 5, 3, 5)
	assert.Equal(t, 150, g.White.Gold)
	require.True(t, g.Ended)
	assert.Equal(t, Result("w+g"), g.Result)
}

func TestGoldWinnerWhenBothQualify(t *testing.T) {
	g := seededGame(t, Options{})
	g.White.Gold, g.Black.Gold = 160, 160
	assert.Equal(t, board.NoColor, g.goldWinner(), "exact tie plays on")
	g.White.Gold = 170
	assert.Equal(t, board.White, g.goldWinner())
	g.Black.Gold = 171
	assert.Equal(t, board.Black, g.goldWinner())
}

func TestPlacementSpendsGold(t *testing.T) {
	g := seededGame(t, Options{})
	assert.False(t, g.TryPlacePiece(0, 1, board.Pawn, false), "white starts with no gold")

	g.White.Gold = 25
	assert.False(t, g.TryPlacePiece(3, 3, board.Pawn, false), "not next to the king")
	require.True(t, g.TryPlacePiece(0, 1, board.Pawn, false))
	assert.Equal(t, 5, g.White.Gold)
	assert.Equal(t, board.NewPiece(board.Pawn, board.White), g.Map.At(0, 1).Occupant)
	assert.Equal(t, "a2=p", g.Moves[0].Notation())
}

func TestCornerCheckmate(t *testing.T) {
	g := blankGame(t)
	g.Map.At(0, 0).Occupant = board.NewPiece(board.King, board.Black)
	g.Map.At(2, 2).Occupant = board.NewPiece(board.King, board.White)
	g.Map.At(1, 5).Occupant = board.NewPiece(board.Queen, board.White)

	play(t, g, 1, 5, 1, 1)

	require.True(t, g.Ended)
	assert.Equal(t, Result("w+c"), g.Result)
	assert.Equal(t, []string{"b6-b2#"}, g.Notations())
	assert.Equal(t, board.Flag, g.Map.At(0, 0).Occupant.Kind)
	assert.Nil(t, g.Map.FindKing(board.Black))
}

func TestCheckHighlightsKing(t *testing.T) {
	g := blankGame(t)
	g.Map.At(0, 0).Occupant = board.NewPiece(board.King, board.Black)
	g.Map.At(5, 5).Occupant = board.NewPiece(board.King, board.White)
	g.Map.At(3, 4).Occupant = board.NewPiece(board.Rook, board.White)

	play(t, g, 3, 4, 0, 4)

	assert.False(t, g.Ended)
	assert.Equal(t, []string{"d5-a5+"}, g.Notations())
	assert.Equal(t, board.HighlightRed, g.Map.At(0, 0).Highlight)

	play(t, g, 0, 0, 1, 0)
	assert.Equal(t, board.HighlightNone, g.Map.At(0, 0).Highlight, "highlights clear each turn")
}

func TestLoneKingStalemate(t *testing.T) {
	g := blankGame(t)
	g.Map.At(0, 0).Occupant = board.NewPiece(board.King, board.Black)
	g.Map.At(5, 5).Occupant = board.NewPiece(board.King, board.White)
	g.Map.At(2, 5).Occupant = board.NewPiece(board.Queen, board.White)

	play(t, g, 2, 5, 2, 1)

	require.True(t, g.Ended)
	assert.Equal(t, Result("w+s"), g.Result)
	assert.Equal(t, "c6-c2#", g.Moves[0].Notation())
	assert.Equal(t, board.Flag, g.Map.At(0, 0).Occupant.Kind)
}

func TestNoStalemateWhenOpponentIsRich(t *testing.T) {
	g := blankGame(t)
	g.Map.At(0, 0).Occupant = board.NewPiece(board.King, board.Black)
	g.Map.At(5, 5).Occupant = board.NewPiece(board.King, board.White)
	g.Map.At(2, 5).Occupant = board.NewPiece(board.Queen, board.White)
	g.White.Gold = 15

	play(t, g, 2, 5, 2, 1)
	assert.False(t, g.Ended)
}

func TestFlagFallOnEndTurn(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	g := seededGame(t, Options{TimeControl: true, StartTime: time.Minute, Increment: 5 * time.Second, Now: clock})
	g.Start()

	now = now.Add(10 * time.Second)
	play(t, g, 0, 0, 1, 0)
	assert.Equal(t, int64(55000), g.White.TimeMs, "50s left plus increment")

	now = now.Add(2 * time.Minute)
	play(t, g, 5, 5, 4, 5)
	require.True(t, g.Ended)
	assert.Equal(t, Result("w+t"), g.Result)
	assert.Equal(t, int64(0), g.Black.TimeMs)
}

func TestForceEndIsIdempotent(t *testing.T) {
	g := seededGame(t, Options{})
	assert.True(t, g.ForceEnd(NewResult(board.Black, ReasonResignation)))
	assert.False(t, g.ForceEnd(NewResult(board.White, ReasonTimeout)))
	assert.Equal(t, Result("b+r"), g.Result)
	assert.False(t, g.TryMovePiece(0, 0, 1, 0))
}

func TestApplyNotationReplaysGame(t *testing.T) {
	original := seededGame(t, Options{})
	original.White.Gold = 40
	require.True(t, original.TryPlacePiece(0, 1, board.Rook, false))
	original.EndTurn()
	original.StartNewTurn()
	play(t, original, 5, 5, 4, 5)
	play(t, original, 0, 1, 0, 4)

	replay := seededGame(t, Options{})
	for _, n := range original.Notations() {
		require.NoError(t, replay.ApplyNotation(n, true))
	}
	assert.Equal(t, original.Notations(), replay.Notations())
	assert.Equal(t, original.Black.Gold, replay.Black.Gold)
	assert.Equal(t, board.Rook, replay.Map.At(0, 4).Occupant.Kind)

	assert.ErrorIs(t, replay.ApplyNotation("a1-a3", true), ErrReplayDiverged)
	assert.ErrorIs(t, replay.ApplyNotation("zz", true), ErrBadNotation)
}

func TestNotationRoundTrip(t *testing.T) {
	for _, s := range []string{"a1-b2", "e2xf3+", "c4=Q", "c4=p", "b6-b2#", "p16-a1"} {
		mv, err := ParseNotation(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, mv.Notation())
	}

	mv, err := ParseNotation("c4=N")
	require.NoError(t, err)
	assert.True(t, mv.IsPlacement())
	assert.Equal(t, 2, mv.ToX)
	assert.Equal(t, 3, mv.ToY)

	for _, bad := range []string{"", "a1", "a1=Z", "a1-b2+#", "11-b2", "a0-b2"} {
		_, err := ParseNotation(bad)
		assert.Error(t, err, bad)
	}
}

func TestResultCodes(t *testing.T) {
	r := NewResult(board.Black, ReasonCheckmate)
	assert.Equal(t, Result("b+c"), r)
	assert.Equal(t, board.Black, r.Winner())
	assert.Equal(t, ReasonCheckmate, r.Reason())

	_, ok := ParseResult("w+x")
	assert.False(t, ok)
	parsed, ok := ParseResult("w+g")
	assert.True(t, ok)
	assert.Equal(t, board.White, parsed.Winner())
}

func TestSettingsValidation(t *testing.T) {
	s := DefaultSettings()
	assert.NoError(t, s.Validate())
	assert.False(t, s.IsSlow())

	s.BoardSize = 7
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.MapSeed = "m_6x6_garbage"
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.StartTimeMinutes = 30
	assert.True(t, s.IsSlow())
	s.StartTimeMinutes = 0
	s.TimeControlEnabled = false
	assert.NoError(t, s.Validate())
	assert.True(t, s.IsSlow())
}
