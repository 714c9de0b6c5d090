// internal/game/game.go
package game

import (
	"time"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/rules"
)

// PlayerColor is one side of a game: its gold, clock and whether it is to move.
type PlayerColor struct {
	Color    board.Color
	Name     string
	Gold     int
	TimeMs   int64
	IsActive bool
}

// Options configure a Game beyond its map.
type Options struct {
	WhiteName          string
	BlackName          string
	TimeControl        bool
	StartTime          time.Duration
	Increment          time.Duration
	StalemateGoldFloor int
	// Now is the clock used for time control. Defaults to time.Now.
	Now func() time.Time
}

// Game is the rules aggregate: the map, both sides and the move list. It is not safe for
// concurrent use; ServerGame serialises access to it.
type Game struct {
	Map   *board.Map
	White *PlayerColor
	Black *PlayerColor
	Moves []Move

	Result            Result
	Ended             bool
	LastMoveTimestamp time.Time
	TurnStartedAt     time.Time

	timeControl    bool
	increment      time.Duration
	stalemateFloor int
	pendingTimeout Result
	now            func() time.Time
}

// New sets up a game on m with White to move. White starts with 0 gold and Black with 10.
func New(m *board.Map, opts Options) *Game {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StalemateGoldFloor <= 0 {
		opts.StalemateGoldFloor = rules.DefaultStalemateGoldFloor
	}
	g := &Game{
		Map:            m,
		White:          &PlayerColor{Color: board.White, Name: opts.WhiteName, IsActive: true},
		Black:          &PlayerColor{Color: board.Black, Name: opts.BlackName, Gold: rules.BlackStartingGold},
		timeControl:    opts.TimeControl,
		increment:      opts.Increment,
		stalemateFloor: opts.StalemateGoldFloor,
		now:            opts.Now,
	}
	if opts.TimeControl {
		g.White.TimeMs = opts.StartTime.Milliseconds()
		g.Black.TimeMs = opts.StartTime.Milliseconds()
	}
	return g
}

// Start begins the active side's clock.
func (g *Game) Start() {
	g.TurnStartedAt = g.now()
}

// TimeControlEnabled reports whether clocks are running.
func (g *Game) TimeControlEnabled() bool { return g.timeControl }

// SetTimeControl switches clock handling on or off. Replays run with it off.
func (g *Game) SetTimeControl(on bool) { g.timeControl = on }

// Player returns the side of color c.
func (g *Game) Player(c board.Color) *PlayerColor {
	if c == board.Black {
		return g.Black
	}
	return g.White
}

// Active returns the side to move.
func (g *Game) Active() *PlayerColor {
	if g.White.IsActive {
		return g.White
	}
	return g.Black
}

// Inactive returns the side waiting for its turn.
func (g *Game) Inactive() *PlayerColor {
	if g.White.IsActive {
		return g.Black
	}
	return g.White
}

// Finder returns a rules finder over the current position.
func (g *Game) Finder() *rules.Finder {
	return rules.NewFinder(g.Map)
}

// RemainingMs is the active side's clock minus the time spent on the current turn.
func (g *Game) RemainingMs(c board.Color) int64 {
	p := g.Player(c)
	if !g.timeControl || !p.IsActive || g.TurnStartedAt.IsZero() {
		return p.TimeMs
	}
	left := p.TimeMs - g.now().Sub(g.TurnStartedAt).Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}

// Notations renders the move list.
func (g *Game) Notations() []string {
	out := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		out[i] = m.Notation()
	}
	return out
}

// TryMovePiece moves the active side's piece from one square to another. It returns false
// without touching the game when the move is not legal.
func (g *Game) TryMovePiece(fromX, fromY, toX, toY int) bool {
	if g.Ended {
		return false
	}
	src := g.Map.At(fromX, fromY)
	dst := g.Map.At(toX, toY)
	if src == nil || dst == nil {
		return false
	}
	active := g.Active()
	if !src.Occupant.IsPieceOf(active.Color) {
		return false
	}
	if !g.Finder().IsLegalMove(src, dst) {
		return false
	}

	mv := Move{HasSource: true, FromX: fromX, FromY: fromY, ToX: toX, ToY: toY}
	if !dst.Occupant.IsEmpty() {
		mv.Captured = rules.ObjectCode(dst.Occupant.Kind)
	}
	if dst.Occupant.Kind == board.Treasure {
		active.Gold += rules.TreasureGold
	}

	dst.Occupant = src.Occupant
	src.Occupant = board.Occupant{}
	if dst.Type.IsMine() {
		dst.MineOwner = active.Color
	}
	g.Moves = append(g.Moves, mv)
	return true
}

// TryPlacePiece buys a piece for the active side and puts it on (toX, toY). Replays pass
// skipGoldCheck so a reconstructed game never fails on affordability.
func (g *Game) TryPlacePiece(toX, toY int, kind board.Kind, skipGoldCheck bool) bool {
	if g.Ended {
		return false
	}
	cost, ok := rules.Cost(kind)
	if !ok {
		return false
	}
	dst := g.Map.At(toX, toY)
	if dst == nil {
		return false
	}
	active := g.Active()
	if !skipGoldCheck && active.Gold < cost {
		return false
	}

	legal := false
	for _, sq := range g.Finder().PlacementSquares(active.Color, kind == board.Pawn) {
		if sq.ID == dst.ID {
			legal = true
			break
		}
	}
	if !legal {
		return false
	}

	dst.Occupant = board.NewPiece(kind, active.Color)
	if dst.Type.IsMine() {
		dst.MineOwner = active.Color
	}
	active.Gold -= cost
	g.Moves = append(g.Moves, Move{ToX: toX, ToY: toY, Placed: rules.ObjectCode(kind)})
	return true
}

// EndTurn charges the mover for the time it used, adds the increment and hands the turn over.
// A flag fall is recorded here and finalised by the following StartNewTurn.
func (g *Game) EndTurn() {
	mover := g.Active()
	now := g.now()

	if g.timeControl && !g.TurnStartedAt.IsZero() {
		mover.TimeMs -= now.Sub(g.TurnStartedAt).Milliseconds()
		if mover.TimeMs <= 0 {
			mover.TimeMs = 0
			g.pendingTimeout = NewResult(mover.Color.Opponent(), ReasonTimeout)
		} else {
			mover.TimeMs += g.increment.Milliseconds()
		}
	}

	mover.IsActive = false
	g.Player(mover.Color.Opponent()).IsActive = true
	g.LastMoveTimestamp = now
	g.TurnStartedAt = now
}

// StartNewTurn pays the side to move, then looks for a finished game: a flag fall, mate,
// stalemate or a gold victory. Check and mate are appended to the last move's notation.
func (g *Game) StartNewTurn() {
	g.Map.ClearHighlights()

	active := g.Active()
	active.Gold += rules.BaseIncome + rules.MineIncome*g.Map.CountMinesOwned(active.Color)

	if g.pendingTimeout != "" {
		g.end(g.pendingTimeout)
		g.pendingTimeout = ""
		return
	}

	if g.checkForMate() {
		g.setSuffix("#")
		return
	}

	if winner := g.goldWinner(); winner != board.NoColor {
		g.end(NewResult(winner, ReasonGold))
	}
}

// checkForMate evaluates the side to move. It returns true when the game ended.
func (g *Game) checkForMate() bool {
	active := g.Active()
	king := g.Map.FindKing(active.Color)
	if king == nil {
		return false
	}
	f := g.Finder()
	kingMoves := f.LegalDestinations(king)

	if f.IsInCheck(active.Color) {
		if len(kingMoves) == 0 && !f.CanAnswerCheck(active.Color, active.Gold) {
			king.Occupant = board.Occupant{Kind: board.Flag}
			g.end(NewResult(active.Color.Opponent(), ReasonCheckmate))
			return true
		}
		king.Highlight = board.HighlightRed
		g.setSuffix("+")
		return false
	}

	if len(kingMoves) == 0 && len(g.Map.PieceSquares(active.Color)) == 1 && g.Inactive().Gold < g.stalemateFloor {
		king.Occupant = board.Occupant{Kind: board.Flag}
		g.end(NewResult(active.Color.Opponent(), ReasonStalemate))
		return true
	}
	return false
}

// goldWinner returns the side that reached the gold threshold. When both did, the larger
// hoard wins and an exact tie lets play continue.
func (g *Game) goldWinner() board.Color {
	w, b := g.White.Gold >= rules.GoldVictoryThreshold, g.Black.Gold >= rules.GoldVictoryThreshold
	switch {
	case w && b:
		if g.White.Gold > g.Black.Gold {
			return board.White
		}
		if g.Black.Gold > g.White.Gold {
			return board.Black
		}
		return board.NoColor
	case w:
		return board.White
	case b:
		return board.Black
	}
	return board.NoColor
}

func (g *Game) setSuffix(s string) {
	if len(g.Moves) == 0 {
		return
	}
	g.Moves[len(g.Moves)-1].Suffix = s
}

func (g *Game) end(r Result) {
	g.Result = r
	g.Ended = true
}

// ForceEnd stamps a result immediately, for resignation, flag fall and administrative ends.
// It returns false when the game had already ended.
func (g *Game) ForceEnd(r Result) bool {
	if g.Ended {
		return false
	}
	g.end(r)
	return true
}

// ApplyNotation replays one recorded move, including the end of turn bookkeeping.
func (g *Game) ApplyNotation(notation string, skipGoldCheck bool) error {
	mv, err := ParseNotation(notation)
	if err != nil {
		return err
	}
	var ok bool
	if mv.IsPlacement() {
		kind, known := mv.placedKind()
		if !known {
			return ErrUnknownPiece
		}
		ok = g.TryPlacePiece(mv.ToX, mv.ToY, kind, skipGoldCheck)
	} else {
		ok = g.TryMovePiece(mv.FromX, mv.FromY, mv.ToX, mv.ToY)
	}
	if !ok {
		return ErrReplayDiverged
	}
	g.EndTurn()
	g.StartNewTurn()
	return nil
}
