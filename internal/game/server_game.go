// internal/game/server_game.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/cache"
	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rules"
)

// Seat is a player's place in a session. ConnID is uuid.Nil while nobody is connected.
type Seat struct {
	Token  string
	ConnID uuid.UUID
	UserID *uuid.UUID
	Name   string
	Elo    *int
}

// Connected reports whether a connection is bound to the seat.
func (s *Seat) Connected() bool { return s.ConnID != uuid.Nil }

// ServerGame is one live session: a Game plus seats, bidding, rematch state and the
// collaborators it reports to. Every exported method takes Mu.
type ServerGame struct {
	ID             uuid.UUID
	Settings       Settings
	Private        bool
	ViaMatchmaking bool
	CreatedAt      time.Time

	Mu sync.Mutex

	game *Game
	// seats is indexed by seatIndex(color) and swaps when the joiner wins the auction.
	seats [2]*Seat
	// tokens never change: the creator's first, then the joiner's.
	tokens [2]string

	bidding           *Bidding
	blackStartingGold *int
	started           bool
	lastActivity      time.Time

	rematchWants   map[board.Color]bool
	rematchSpawned bool

	finalized   bool
	flagTimer   *time.Timer
	actionIndex int
	saveSeq     int

	persistMu    sync.Mutex
	persistedSeq int

	rt  *Runtime
	log *logrus.Entry
}

func newServerGame(rt *Runtime, id uuid.UUID, settings Settings, g *Game, white, black *Seat) *ServerGame {
	now := rt.now()
	return &ServerGame{
		ID:           id,
		Settings:     settings,
		CreatedAt:    now,
		game:         g,
		seats:        [2]*Seat{white, black},
		tokens:       [2]string{white.Token, black.Token},
		lastActivity: now,
		rematchWants: make(map[board.Color]bool),
		rt:           rt,
		log:          rt.Log.WithField("game", id),
	}
}

func seatIndex(c board.Color) int {
	if c == board.Black {
		return 1
	}
	return 0
}

func (g *ServerGame) seat(c board.Color) *Seat { return g.seats[seatIndex(c)] }

// seatByToken resolves a token to its seat and current color.
func (g *ServerGame) seatByToken(token string) (*Seat, board.Color, error) {
	for i, s := range g.seats {
		if s.Token == token {
			if i == 0 {
				return s, board.White, nil
			}
			return s, board.Black, nil
		}
	}
	return nil, board.NoColor, ErrUnknownToken
}

// Token returns the token seated at color c.
func (g *ServerGame) Token(c board.Color) string {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.seat(c).Token
}

// InviteToken is the token handed to the second player of an invite game.
func (g *ServerGame) InviteToken() string { return g.tokens[1] }

// Seed is the map seed of the session.
func (g *ServerGame) Seed() string {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.game.Map.Seed
}

// ColorOf returns the color a token currently plays.
func (g *ServerGame) ColorOf(token string) (board.Color, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	_, c, err := g.seatByToken(token)
	return c, err
}

// State snapshots the game for a client.
func (g *ServerGame) State() GameStateDto {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.stateDto()
}

// Ended reports whether the game has a result.
func (g *ServerGame) Ended() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.game.Ended
}

func (g *ServerGame) stateDto() GameStateDto {
	return BuildStateDto(g.ID, g.game, g.bidding != nil && g.bidding.Phase() != BiddingResolved)
}

// Join binds connID to the token's seat. A seat created for a registered user only accepts
// that user. Once both seats are connected the auction opens, or the game starts when
// bidding is off. Reconnecting players get the current state.
func (g *ServerGame) Join(token string, connID uuid.UUID, userID *uuid.UUID) (board.Color, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	seat, color, err := g.seatByToken(token)
	if err != nil {
		return board.NoColor, err
	}
	if seat.UserID != nil && (userID == nil || *userID != *seat.UserID) {
		return board.NoColor, ErrUnauthorized
	}
	seat.ConnID = connID
	g.touch()
	g.log.WithFields(logrus.Fields{"color": color.String(), "conn": connID}).Info("player joined")

	switch {
	case g.game.Ended:
		st := g.stateDto()
		g.sendTo(color, GameEvent{Type: EventGameEnded, State: &st})
	case g.started:
		st := g.stateDto()
		g.sendTo(color, GameEvent{Type: EventGameStarted, State: &st})
	case g.bidding != nil && g.bidding.Phase() != BiddingNotStarted:
		// Open auction: resend clocks and bid flags whoever else is connected.
		st := g.stateDto()
		g.sendTo(color, GameEvent{Type: EventBiddingState, State: &st, Bidding: g.bidding.Snapshot(g.rt.now())})
	case !g.seats[0].Connected() || !g.seats[1].Connected():
		st := g.stateDto()
		g.sendTo(color, GameEvent{Type: EventStateUpdated, State: &st})
	case g.bidding != nil:
		g.bidding.Start(g.Settings.StartTime(), g.rt.now())
		g.logAction(board.NoColor, "bidding_opened", map[string]interface{}{"initialMs": g.bidding.InitialMs})
		g.broadcastBidding()
	default:
		g.start()
	}
	return color, nil
}

// ClaimSeat binds an unbound seat to a signed-in user before the game starts, which makes
// an invite game rated once both seats belong to users. Anonymous claims change nothing.
func (g *ServerGame) ClaimSeat(token string, p PlayerInfo) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	seat, color, err := g.seatByToken(token)
	if err != nil {
		return err
	}
	if p.UserID == nil {
		return nil
	}
	if seat.UserID != nil {
		if *seat.UserID != *p.UserID {
			return ErrUnauthorized
		}
		return nil
	}
	if g.started || g.game.Ended {
		return ErrUnauthorized
	}
	seat.UserID, seat.Elo = p.UserID, p.Elo
	if p.Name != "" {
		seat.Name = p.Name
		g.game.Player(color).Name = p.Name
	}
	g.touch()
	return nil
}

// Disconnect clears whichever seat connID is bound to.
func (g *ServerGame) Disconnect(connID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, s := range g.seats {
		if s.ConnID == connID {
			s.ConnID = uuid.Nil
			g.log.WithField("conn", connID).Info("player disconnected")
		}
	}
}

// actor validates that token may act on the running game now.
func (g *ServerGame) actor(token string, needTurn bool) (board.Color, error) {
	_, color, err := g.seatByToken(token)
	if err != nil {
		return board.NoColor, err
	}
	if g.game.Ended {
		return color, ErrGameEnded
	}
	if !g.started {
		return color, ErrGameNotStarted
	}
	if needTurn && g.game.Active().Color != color {
		return color, ErrNotYourTurn
	}
	return color, nil
}

// Move plays a piece move for the token's side.
func (g *ServerGame) Move(token string, fromX, fromY, toX, toY int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, true)
	if err != nil {
		return err
	}
	if !g.game.TryMovePiece(fromX, fromY, toX, toY) {
		return ErrIllegalMove
	}
	g.finishTurn(color)
	return nil
}

// Place buys and places a piece for the token's side. code is one of q, r, b, n, p.
func (g *ServerGame) Place(token string, x, y int, code string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, true)
	if err != nil {
		return err
	}
	kind, ok := rules.PieceFromCode(code)
	if !ok {
		return ErrUnknownPiece
	}
	if _, buyable := rules.Cost(kind); !buyable {
		return ErrUnknownPiece
	}
	if !g.game.TryPlacePiece(x, y, kind, false) {
		return ErrIllegalPlacement
	}
	g.finishTurn(color)
	return nil
}

// finishTurn runs the turn bookkeeping after a successful move or placement.
func (g *ServerGame) finishTurn(mover board.Color) {
	g.game.EndTurn()
	g.game.StartNewTurn()
	notation := g.game.Moves[len(g.game.Moves)-1].Notation()
	g.logAction(mover, "move", map[string]interface{}{"notation": notation})
	g.touch()
	g.afterChange()
}

// afterChange pushes the new state out and, for running games, re-arms the flag timer and
// saves slow games.
func (g *ServerGame) afterChange() {
	if g.game.Ended {
		g.endGame()
		return
	}
	st := g.stateDto()
	g.broadcast(GameEvent{Type: EventStateUpdated, State: &st})
	g.armFlagTimer()
	g.saveProgress()
}

// Resign ends the game in the opponent's favor. It is allowed on either side's turn.
func (g *ServerGame) Resign(token string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, false)
	if err != nil {
		return err
	}
	g.game.ForceEnd(NewResult(color.Opponent(), ReasonResignation))
	g.logAction(color, "resign", nil)
	g.touch()
	g.endGame()
	return nil
}

// ClaimTimeout lets the waiting side win once the side to move has run out of time.
func (g *ServerGame) ClaimTimeout(token string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, false)
	if err != nil {
		return err
	}
	active := g.game.Active()
	if !g.game.TimeControlEnabled() || active.Color == color || g.game.RemainingMs(active.Color) > 0 {
		return ErrOpponentHasTime
	}
	g.flagFall(color)
	return nil
}

// flagFall zeroes the active side's clock and awards the game to winner.
func (g *ServerGame) flagFall(winner board.Color) {
	g.game.Active().TimeMs = 0
	g.game.ForceEnd(NewResult(winner, ReasonTimeout))
	g.logAction(winner, "timeout", nil)
	g.touch()
	g.endGame()
}

// armFlagTimer schedules a flag check for when the side to move runs out. A stale firing
// is ignored by comparing the move count.
func (g *ServerGame) armFlagTimer() {
	if g.rt.DisableFlagTimers || !g.game.TimeControlEnabled() || g.game.Ended {
		return
	}
	if g.flagTimer != nil {
		g.flagTimer.Stop()
	}
	ply := len(g.game.Moves)
	remaining := time.Duration(g.game.RemainingMs(g.game.Active().Color)) * time.Millisecond
	g.flagTimer = time.AfterFunc(remaining+50*time.Millisecond, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.game.Ended || len(g.game.Moves) != ply {
			return
		}
		active := g.game.Active()
		if g.game.RemainingMs(active.Color) > 0 {
			g.armFlagTimer()
			return
		}
		g.log.WithField("color", active.Color.String()).Info("flag fell")
		g.flagFall(active.Color.Opponent())
	})
}

// start begins play after seating (and bidding, when enabled).
func (g *ServerGame) start() {
	g.started = true
	g.game.Start()
	g.touch()
	g.logAction(board.NoColor, "game_started", map[string]interface{}{
		"white": g.seats[0].Name,
		"black": g.seats[1].Name,
	})
	st := g.stateDto()
	g.broadcast(GameEvent{Type: EventGameStarted, State: &st})
	g.armFlagTimer()
	g.saveProgress()
	g.log.Info("game started")
}

// Bid submits the token's sealed bid. The second bid resolves the auction: the winner
// plays White, Black starts with the winning amount of gold and each side keeps the
// clock it had left when it bid.
func (g *ServerGame) Bid(token string, amount int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	_, color, err := g.seatByToken(token)
	if err != nil {
		return err
	}
	if g.game.Ended {
		return ErrGameEnded
	}
	if g.bidding == nil {
		return ErrBiddingClosed
	}
	who := Creator
	if token == g.tokens[1] {
		who = Joiner
	}
	resolved, err := g.bidding.Submit(who, amount, g.rt.now())
	if err != nil {
		return err
	}
	g.logAction(color, "bid", map[string]interface{}{"amount": amount})
	g.touch()
	g.broadcastBidding()
	if resolved {
		g.resolveBidding()
	}
	return nil
}

func (g *ServerGame) resolveBidding() {
	out := g.bidding.Outcome()
	if !out.CreatorWins {
		g.seats[0], g.seats[1] = g.seats[1], g.seats[0]
		g.game.White.Name, g.game.Black.Name = g.seats[0].Name, g.seats[1].Name
	}
	if g.game.TimeControlEnabled() {
		g.game.White.TimeMs = out.WinnerMs
		g.game.Black.TimeMs = out.LoserMs
	}
	g.game.Black.Gold = out.WinningBid
	bid := out.WinningBid
	g.blackStartingGold = &bid
	g.log.WithFields(logrus.Fields{"creatorWins": out.CreatorWins, "bid": bid}).Info("bidding resolved")
	g.start()
}

func (g *ServerGame) broadcastBidding() {
	st := g.stateDto()
	g.broadcast(GameEvent{Type: EventBiddingState, State: &st, Bidding: g.bidding.Snapshot(g.rt.now())})
}

// LegalMoves lists destinations for the piece on (x, y). It is empty unless the piece
// belongs to the token's side and it is that side's turn.
func (g *ServerGame) LegalMoves(token string, x, y int) ([][2]int, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, false)
	if err != nil {
		return nil, err
	}
	out := [][2]int{}
	src := g.game.Map.At(x, y)
	if src == nil || g.game.Active().Color != color || !src.Occupant.IsPieceOf(color) {
		return out, nil
	}
	for _, sq := range g.game.Finder().LegalDestinations(src) {
		out = append(out, [2]int{sq.X, sq.Y})
	}
	return out, nil
}

// LegalPlacements lists the squares where the token's side may place the given piece.
func (g *ServerGame) LegalPlacements(token, code string) ([][2]int, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	color, err := g.actor(token, false)
	if err != nil {
		return nil, err
	}
	kind, ok := rules.PieceFromCode(code)
	if !ok {
		return nil, ErrUnknownPiece
	}
	out := [][2]int{}
	if g.game.Active().Color != color {
		return out, nil
	}
	for _, sq := range g.game.Finder().PlacementSquares(color, kind == board.Pawn) {
		out = append(out, [2]int{sq.X, sq.Y})
	}
	return out, nil
}

// RequestRematch records the token's wish for a rematch. When both players have asked, a
// new session is created with colors swapped. The map seed is reused only if both asked
// for the same map.
func (g *ServerGame) RequestRematch(ctx context.Context, token string, sameSeed bool) error {
	g.Mu.Lock()
	_, color, err := g.seatByToken(token)
	if err != nil {
		g.Mu.Unlock()
		return err
	}
	if !g.game.Ended || g.rematchSpawned {
		g.Mu.Unlock()
		return ErrRematchUnavailable
	}
	g.rematchWants[color] = sameSeed
	g.touch()
	if len(g.rematchWants) < 2 {
		g.sendTo(color.Opponent(), GameEvent{
			Type:    EventRematchRequested,
			Payload: map[string]interface{}{"sameSeed": sameSeed},
		})
		g.Mu.Unlock()
		return nil
	}

	g.rematchSpawned = true
	settings := g.Settings
	if g.rematchWants[board.White] && g.rematchWants[board.Black] {
		settings.MapSeed = g.game.Map.Seed
	} else {
		settings.MapSeed = ""
		settings.BoardSize = g.game.Map.Width
		settings.MapMode = board.ModeRandom
		if g.game.Map.Mirrored {
			settings.MapMode = board.ModeMirrored
		}
	}
	oldWhite, oldBlack := *g.seat(board.White), *g.seat(board.Black)
	opts := CreateOptions{Private: g.Private}
	g.Mu.Unlock()

	ng, err := g.rt.Create(ctx, settings,
		PlayerInfo{UserID: oldBlack.UserID, Elo: oldBlack.Elo, Name: oldBlack.Name},
		PlayerInfo{UserID: oldWhite.UserID, Elo: oldWhite.Elo, Name: oldWhite.Name},
		opts,
	)
	if err != nil {
		g.Mu.Lock()
		g.rematchSpawned = false
		g.Mu.Unlock()
		return fmt.Errorf("creating rematch: %w", err)
	}
	whiteToken, blackToken := ng.Token(board.White), ng.Token(board.Black)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.logAction(board.NoColor, "rematch_created", map[string]interface{}{"gameId": ng.ID.String()})
	g.sendTo(board.Black, GameEvent{Type: EventRematchCreated, Payload: map[string]interface{}{
		"gameId": ng.ID.String(), "playerToken": whiteToken, "isWhite": true,
	}})
	g.sendTo(board.White, GameEvent{Type: EventRematchCreated, Payload: map[string]interface{}{
		"gameId": ng.ID.String(), "playerToken": blackToken, "isWhite": false,
	}})
	return nil
}

// endGame announces the result and finalizes the session.
func (g *ServerGame) endGame() {
	st := g.stateDto()
	g.broadcast(GameEvent{Type: EventGameEnded, State: &st})
	g.finalize()
}

// finalize persists the result exactly once. The session stays registered so players can
// still see the result and ask for a rematch until cleanup evicts it.
func (g *ServerGame) finalize() {
	if g.finalized {
		return
	}
	g.finalized = true
	if g.flagTimer != nil {
		g.flagTimer.Stop()
	}
	rec := g.sessionRecord()
	ended := g.rt.now()
	rec.EndedAt = &ended
	g.logAction(board.NoColor, "game_ended", map[string]interface{}{"result": string(g.game.Result)})
	g.log.WithField("result", string(g.game.Result)).Info("game ended")
	go g.rt.persistFinish(g, rec)
}

// saveProgress writes slow games after each change so they survive a restart.
func (g *ServerGame) saveProgress() {
	if !g.Settings.IsSlow() {
		return
	}
	g.saveSeq++
	go g.rt.persistProgress(g, g.saveSeq, g.sessionRecord())
}

// sessionRecord captures the persisted form of the session.
func (g *ServerGame) sessionRecord() *models.GameSession {
	w, b := g.seat(board.White), g.seat(board.Black)
	mode := board.ModeRandom
	if g.game.Map.Mirrored {
		mode = board.ModeMirrored
	}
	moves := g.game.Notations()
	rec := &models.GameSession{
		ID:                    g.ID,
		BoardSize:             g.game.Map.Width,
		MapMode:               string(mode),
		MapSeed:               g.game.Map.Seed,
		TimeControlEnabled:    g.Settings.TimeControlEnabled,
		StartTimeMinutes:      g.Settings.StartTimeMinutes,
		TimeIncrementSeconds:  g.Settings.TimeIncrementSeconds,
		BiddingEnabled:        g.Settings.BiddingEnabled,
		IsPrivate:             g.Private,
		CreatedViaMatchmaking: g.ViaMatchmaking,
		WhiteToken:            w.Token,
		BlackToken:            b.Token,
		WhiteUserID:           w.UserID,
		BlackUserID:           b.UserID,
		WhiteName:             w.Name,
		BlackName:             b.Name,
		WhiteElo:              w.Elo,
		BlackElo:              b.Elo,
		BlackStartingGold:     g.blackStartingGold,
		Moves:                 moves,
		MoveCount:             len(moves),
		Result:                string(g.game.Result),
		CreatedAt:             g.CreatedAt,
	}
	if g.game.TimeControlEnabled() {
		wm, bm := g.game.RemainingMs(board.White), g.game.RemainingMs(board.Black)
		rec.WhiteMsRemaining = &wm
		rec.BlackMsRemaining = &bm
	}
	return rec
}

func (g *ServerGame) touch() { g.lastActivity = g.rt.now() }

func (g *ServerGame) sendTo(c board.Color, ev GameEvent) {
	if s := g.seat(c); s.Connected() {
		g.rt.Send(s.ConnID, ev)
	}
}

func (g *ServerGame) broadcast(ev GameEvent) {
	g.sendTo(board.White, ev)
	g.sendTo(board.Black, ev)
}

// logAction publishes a game action to the history queue. Lock must be held.
func (g *ServerGame) logAction(actor board.Color, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     g.rt.now().UnixMilli(),
	}
	if actor != board.NoColor {
		rec.ActorColor = actor.String()
		if uid := g.seat(actor).UserID; uid != nil {
			rec.ActorUserID = *uid
		}
	}
	publish := g.rt.Publish
	if publish == nil {
		return
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := publish(ctx, rec); err != nil {
			g.log.WithError(err).Warnf("publishing action %d", rec.ActionIndex)
		}
	}(rec)
}
