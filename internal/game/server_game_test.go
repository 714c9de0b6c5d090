package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/models"
)

// recorder collects events instead of sending them over WS.
type recorder struct {
	mu     sync.Mutex
	events map[uuid.UUID][]GameEvent
}

func newRecorder() *recorder {
	return &recorder{events: make(map[uuid.UUID][]GameEvent)}
}

func (r *recorder) send(conn uuid.UUID, ev GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[conn] = append(r.events[conn], ev)
}

func (r *recorder) last(conn uuid.UUID) *GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[conn]
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func (r *recorder) types(conn uuid.UUID) []GameEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GameEventType, 0, len(r.events[conn]))
	for _, ev := range r.events[conn] {
		out = append(out, ev.Type)
	}
	return out
}

// memStore is an in-memory Store that counts writes.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.GameSession
	finishes int
	saves    int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]*models.GameSession)}
}

func (s *memStore) CreateGameSession(_ context.Context, rec *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.sessions[rec.ID] = &cp
	return nil
}

func (s *memStore) SaveGameProgress(_ context.Context, rec *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.sessions[rec.ID] = &cp
	s.saves++
	return nil
}

func (s *memStore) FinishGameSession(_ context.Context, rec *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.sessions[rec.ID] = &cp
	s.finishes++
	return nil
}

func (s *memStore) ListUnfinishedSessions(context.Context) ([]*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.GameSession
	for _, rec := range s.sessions {
		if !rec.Finished() {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) GetGameSession(_ context.Context, id uuid.UUID) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) finishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishes
}

func (s *memStore) get(id uuid.UUID) *models.GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	rt    *Runtime
	rec   *recorder
	store *memStore
	clock *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := &harness{
		rec:   newRecorder(),
		store: newMemStore(),
		clock: &fakeClock{t: time.Unix(1_700_000_000, 0)},
	}
	h.rt = NewRuntime(h.store, logger)
	h.rt.Send = h.rec.send
	h.rt.Now = h.clock.Now
	h.rt.Publish = nil
	h.rt.DisableFlagTimers = true
	return h
}

func (h *harness) create(t *testing.T, s Settings) *ServerGame {
	t.Helper()
	if s.MapSeed == "" {
		s.MapSeed = twoKings
	}
	g, err := h.rt.Create(context.Background(), s, PlayerInfo{Name: "alice"}, PlayerInfo{Name: "bob"}, CreateOptions{})
	require.NoError(t, err)
	return g
}

// seat joins both players and returns their connection ids.
func (h *harness) seat(t *testing.T, g *ServerGame) (white, black uuid.UUID) {
	t.Helper()
	white, black = uuid.New(), uuid.New()
	_, err := g.Join(g.tokens[0], white, nil)
	require.NoError(t, err)
	_, err = g.Join(g.tokens[1], black, nil)
	require.NoError(t, err)
	return white, black
}

func TestCreateRegistersSession(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())

	got, ok := h.rt.Sessions.Get(g.ID)
	require.True(t, ok)
	assert.Same(t, g, got)
	byToken, ok := h.rt.Sessions.GetByToken(g.Token(board.Black))
	require.True(t, ok)
	assert.Same(t, g, byToken)
	require.NotNil(t, h.store.get(g.ID))
	assert.Equal(t, twoKings, h.store.get(g.ID).MapSeed)

	_, err := h.rt.Create(context.Background(), Settings{BoardSize: 9}, PlayerInfo{}, PlayerInfo{}, CreateOptions{})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestJoinStartsGame(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())

	white := uuid.New()
	color, err := g.Join(g.tokens[0], white, nil)
	require.NoError(t, err)
	assert.Equal(t, board.White, color)
	assert.Equal(t, EventStateUpdated, h.rec.last(white).Type)
	assert.ErrorIs(t, g.Move(g.tokens[0], 0, 0, 1, 0), ErrGameNotStarted)

	black := uuid.New()
	_, err = g.Join(g.tokens[1], black, nil)
	require.NoError(t, err)
	assert.Equal(t, EventGameStarted, h.rec.last(white).Type)
	assert.Equal(t, EventGameStarted, h.rec.last(black).Type)

	_, err = g.Join("nope", uuid.New(), nil)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestJoinBoundSeatRequiresSameUser(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	g, err := h.rt.Create(context.Background(), Settings{MapSeed: twoKings}, PlayerInfo{UserID: &owner}, PlayerInfo{}, CreateOptions{})
	require.NoError(t, err)

	_, err = g.Join(g.tokens[0], uuid.New(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	other := uuid.New()
	_, err = g.Join(g.tokens[0], uuid.New(), &other)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = g.Join(g.tokens[0], uuid.New(), &owner)
	assert.NoError(t, err)
}

func TestMovesBroadcastState(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	white, black := h.seat(t, g)

	assert.ErrorIs(t, g.Move(g.tokens[1], 5, 5, 4, 5), ErrNotYourTurn)
	assert.ErrorIs(t, g.Move(g.tokens[0], 0, 0, 3, 3), ErrIllegalMove)
	assert.ErrorIs(t, g.Place(g.tokens[0], 0, 1, "k"), ErrUnknownPiece)
	assert.ErrorIs(t, g.Place(g.tokens[0], 0, 1, "p"), ErrIllegalPlacement, "no gold yet")

	require.NoError(t, g.Move(g.tokens[0], 0, 0, 1, 0))
	for _, conn := range []uuid.UUID{white, black} {
		ev := h.rec.last(conn)
		require.NotNil(t, ev)
		assert.Equal(t, EventStateUpdated, ev.Type)
		assert.Equal(t, []string{"a1-b1"}, ev.State.Moves)
		assert.Equal(t, 11, ev.State.Black.Gold)
		assert.True(t, ev.State.Black.IsActive)
	}
}

func TestLegalMovesAndPlacements(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	h.seat(t, g)

	moves, err := g.LegalMoves(g.tokens[0], 0, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, [][2]int{{1, 0}, {0, 1}, {1, 1}}, moves)

	moves, err = g.LegalMoves(g.tokens[1], 5, 5)
	require.NoError(t, err)
	assert.Empty(t, moves, "not black's turn")

	places, err := g.LegalPlacements(g.tokens[0], "q")
	require.NoError(t, err)
	assert.ElementsMatch(t, [][2]int{{1, 0}, {0, 1}, {1, 1}}, places)

	_, err = g.LegalPlacements(g.tokens[0], "x")
	assert.ErrorIs(t, err, ErrUnknownPiece)
}

func TestResignFinalizesOnce(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	white, black := h.seat(t, g)

	require.NoError(t, g.Resign(g.tokens[1]))
	assert.ErrorIs(t, g.Resign(g.tokens[0]), ErrGameEnded)
	assert.ErrorIs(t, g.Move(g.tokens[0], 0, 0, 1, 0), ErrGameEnded)

	for _, conn := range []uuid.UUID{white, black} {
		ev := h.rec.last(conn)
		require.NotNil(t, ev)
		assert.Equal(t, EventGameEnded, ev.Type)
		require.NotNil(t, ev.State.Result)
		assert.Equal(t, "w+r", *ev.State.Result)
	}

	require.Eventually(t, func() bool { return h.store.finishCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "w+r", h.store.get(g.ID).Result)
	assert.NotNil(t, h.store.get(g.ID).EndedAt)

	// The ended session stays available for rematches until cleanup.
	_, ok := h.rt.Sessions.Get(g.ID)
	assert.True(t, ok)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.store.finishCount())
}

func TestClaimTimeout(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	h.seat(t, g)

	assert.ErrorIs(t, g.ClaimTimeout(g.tokens[1]), ErrOpponentHasTime)
	h.clock.Advance(4 * time.Minute)
	assert.ErrorIs(t, g.ClaimTimeout(g.tokens[1]), ErrOpponentHasTime)

	h.clock.Advance(2 * time.Minute)
	assert.ErrorIs(t, g.ClaimTimeout(g.tokens[0]), ErrOpponentHasTime, "the side on move cannot claim")
	require.NoError(t, g.ClaimTimeout(g.tokens[1]))

	st := g.State()
	require.NotNil(t, st.Result)
	assert.Equal(t, "b+t", *st.Result)
	assert.Equal(t, int64(0), st.White.TimeMsRemaining)
}

func TestBiddingJoinerWins(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.BiddingEnabled = true
	g := h.create(t, s)
	creator, joiner := g.tokens[0], g.tokens[1]

	assert.ErrorIs(t, g.Bid(creator, 10), ErrBiddingClosed)
	creatorConn, joinerConn := h.seat(t, g)
	assert.Equal(t, EventBiddingState, h.rec.last(creatorConn).Type)
	assert.Equal(t, int64(330000), h.rec.last(joinerConn).Bidding.InitialMs)
	assert.ErrorIs(t, g.Move(creator, 0, 0, 1, 0), ErrGameNotStarted)

	h.clock.Advance(30 * time.Second)
	require.NoError(t, g.Bid(creator, 30))
	assert.ErrorIs(t, g.Bid(creator, 40), ErrAlreadyBid)
	ev := h.rec.last(joinerConn)
	assert.True(t, ev.Bidding.CreatorBidPlaced)
	assert.Nil(t, ev.Bidding.RevealedCreatorBid, "bids stay sealed")

	h.clock.Advance(10 * time.Second)
	assert.ErrorIs(t, g.Bid(joiner, 150), ErrInvalidBid)
	require.NoError(t, g.Bid(joiner, 45))

	color, err := g.ColorOf(joiner)
	require.NoError(t, err)
	assert.Equal(t, board.White, color)

	st := g.State()
	assert.False(t, st.Bidding)
	assert.Equal(t, "bob", st.White.Name)
	assert.Equal(t, "alice", st.Black.Name)
	assert.Equal(t, int64(290000), st.White.TimeMsRemaining)
	assert.Equal(t, int64(300000), st.Black.TimeMsRemaining)
	assert.Equal(t, 45, st.Black.Gold)
	assert.Equal(t, EventGameStarted, h.rec.last(creatorConn).Type)

	// The joiner now plays White from a1.
	assert.ErrorIs(t, g.Move(creator, 0, 0, 1, 0), ErrNotYourTurn)
	require.NoError(t, g.Move(joiner, 0, 0, 1, 0))
}

func TestBiddingTieGoesToCreator(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.BiddingEnabled = true
	g := h.create(t, s)
	h.seat(t, g)

	require.NoError(t, g.Bid(g.tokens[1], 20))
	require.NoError(t, g.Bid(g.tokens[0], 20))
	color, err := g.ColorOf(g.tokens[0])
	require.NoError(t, err)
	assert.Equal(t, board.White, color)
	assert.Equal(t, 20, g.State().Black.Gold)
}

func TestRematchSwapsColors(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	white, black := h.seat(t, g)

	assert.ErrorIs(t, g.RequestRematch(context.Background(), g.tokens[0], true), ErrRematchUnavailable)
	require.NoError(t, g.Resign(g.tokens[0]))

	require.NoError(t, g.RequestRematch(context.Background(), g.tokens[0], true))
	ev := h.rec.last(black)
	require.NotNil(t, ev)
	assert.Equal(t, EventRematchRequested, ev.Type)
	assert.Equal(t, 1, h.rt.Sessions.Count())

	require.NoError(t, g.RequestRematch(context.Background(), g.tokens[1], true))
	assert.Equal(t, 2, h.rt.Sessions.Count())
	assert.ErrorIs(t, g.RequestRematch(context.Background(), g.tokens[1], true), ErrRematchUnavailable)

	toOldBlack, toOldWhite := h.rec.last(black), h.rec.last(white)
	require.Equal(t, EventRematchCreated, toOldBlack.Type)
	require.Equal(t, EventRematchCreated, toOldWhite.Type)
	assert.Equal(t, true, toOldBlack.Payload["isWhite"])
	assert.Equal(t, false, toOldWhite.Payload["isWhite"])
	assert.Equal(t, toOldBlack.Payload["gameId"], toOldWhite.Payload["gameId"])

	id, err := uuid.Parse(toOldBlack.Payload["gameId"].(string))
	require.NoError(t, err)
	ng, ok := h.rt.Sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, twoKings, ng.State().MapSeed)
	assert.Equal(t, "bob", ng.State().White.Name)
	assert.Equal(t, toOldBlack.Payload["playerToken"], ng.Token(board.White))
}

func TestRematchWithoutSameSeedDrawsNewMap(t *testing.T) {
	h := newHarness(t)
	g := h.create(t, DefaultSettings())
	_, black := h.seat(t, g)
	require.NoError(t, g.Resign(g.tokens[0]))

	require.NoError(t, g.RequestRematch(context.Background(), g.tokens[0], true))
	require.NoError(t, g.RequestRematch(context.Background(), g.tokens[1], false))

	id, err := uuid.Parse(h.rec.last(black).Payload["gameId"].(string))
	require.NoError(t, err)
	ng, ok := h.rt.Sessions.Get(id)
	require.True(t, ok)
	st := ng.State()
	assert.NotEmpty(t, st.MapSeed)
	assert.Len(t, st.Squares, 36, "board size carries over")
	assert.Equal(t, byte('r'), st.MapSeed[0], "map mode carries over")
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	h := newHarness(t)
	ended := h.create(t, DefaultSettings())
	h.seat(t, ended)
	require.NoError(t, ended.Resign(ended.tokens[0]))

	waiting := h.create(t, DefaultSettings())

	abandoned := h.create(t, DefaultSettings())
	w, b := h.seat(t, abandoned)
	abandoned.Disconnect(w)
	abandoned.Disconnect(b)

	playing := h.create(t, DefaultSettings())
	h.seat(t, playing)

	h.clock.Advance(14 * time.Minute)
	assert.Equal(t, 0, h.rt.Sweep(DefaultCleanupPolicy))

	h.clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, h.rt.Sweep(DefaultCleanupPolicy))
	_, ok := h.rt.Sessions.Get(ended.ID)
	assert.False(t, ok)
	_, ok = h.rt.Sessions.GetByToken(ended.tokens[0])
	assert.False(t, ok)

	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, h.rt.Sweep(DefaultCleanupPolicy))
	_, ok = h.rt.Sessions.Get(waiting.ID)
	assert.False(t, ok)

	h.clock.Advance(22 * time.Hour)
	assert.Equal(t, 1, h.rt.Sweep(DefaultCleanupPolicy))
	_, ok = h.rt.Sessions.Get(abandoned.ID)
	assert.False(t, ok)
	_, ok = h.rt.Sessions.Get(playing.ID)
	assert.True(t, ok, "connected players keep their game")
}

func TestResumeSlowGames(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.StartTimeMinutes = 30
	g := h.create(t, s)
	h.seat(t, g)
	require.NoError(t, g.Move(g.tokens[0], 0, 0, 1, 0))
	require.NoError(t, g.Move(g.tokens[1], 5, 5, 4, 5))
	require.Eventually(t, func() bool {
		rec := h.store.get(g.ID)
		return rec != nil && len(rec.Moves) == 2
	}, time.Second, 5*time.Millisecond)

	// A record whose moves cannot be replayed is skipped.
	bad := *h.store.get(g.ID)
	bad.ID = uuid.New()
	bad.Moves = []string{"a1-f6"}
	require.NoError(t, h.store.CreateGameSession(context.Background(), &bad))

	// A timed blitz record is not resumed.
	blitz := *h.store.get(g.ID)
	blitz.ID = uuid.New()
	blitz.StartTimeMinutes = 5
	require.NoError(t, h.store.CreateGameSession(context.Background(), &blitz))

	h2 := newHarness(t)
	h2.store = h.store
	h2.rt.Store = h.store

	n, err := h2.rt.ResumeSlowGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resumed, ok := h2.rt.Sessions.Get(g.ID)
	require.True(t, ok)
	st := resumed.State()
	assert.Equal(t, []string{"a1-b1", "f6-e6"}, st.Moves)
	assert.True(t, st.White.IsActive)
	assert.Equal(t, 1, st.White.Gold)

	conn := uuid.New()
	_, err = resumed.Join(g.tokens[0], conn, nil)
	require.NoError(t, err)
	assert.Equal(t, EventGameStarted, h2.rec.last(conn).Type)
	require.NoError(t, resumed.Move(g.tokens[0], 1, 0, 2, 0))
}

type fakeLive struct {
	mu  sync.Mutex
	ids map[uuid.UUID]bool
}

func newFakeLive(ids ...uuid.UUID) *fakeLive {
	l := &fakeLive{ids: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		l.ids[id] = true
	}
	return l
}

func (l *fakeLive) Add(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = true
	return nil
}

func (l *fakeLive) Remove(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ids, id)
	return nil
}

func (l *fakeLive) IDs(context.Context) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uuid.UUID, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	return out, nil
}

func (l *fakeLive) has(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

func TestRejoinOpenAuctionWhileOpponentAway(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.BiddingEnabled = true
	g := h.create(t, s)
	creatorConn, joinerConn := h.seat(t, g)

	h.clock.Advance(20 * time.Second)
	require.NoError(t, g.Bid(g.tokens[0], 25))
	g.Disconnect(joinerConn)
	g.Disconnect(creatorConn)
	h.clock.Advance(10 * time.Second)

	back := uuid.New()
	_, err := g.Join(g.tokens[0], back, nil)
	require.NoError(t, err)

	ev := h.rec.last(back)
	require.NotNil(t, ev)
	assert.Equal(t, EventBiddingState, ev.Type)
	require.NotNil(t, ev.State)
	assert.True(t, ev.State.Bidding)
	require.NotNil(t, ev.Bidding)
	assert.True(t, ev.Bidding.CreatorBidPlaced)
	assert.False(t, ev.Bidding.JoinerBidPlaced)
	assert.Equal(t, int64(310000), ev.Bidding.CreatorMs)
	assert.Equal(t, int64(300000), ev.Bidding.JoinerMs)
	assert.Nil(t, ev.Bidding.RevealedCreatorBid)

	// The auction carries on once the joiner is back.
	joinerBack := uuid.New()
	_, err = g.Join(g.tokens[1], joinerBack, nil)
	require.NoError(t, err)
	assert.Equal(t, EventBiddingState, h.rec.last(joinerBack).Type)
	require.NoError(t, g.Bid(g.tokens[1], 10))
	assert.Equal(t, EventGameStarted, h.rec.last(back).Type)
}

func TestResumeRestoresGamesWaitingForPlayers(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.StartTimeMinutes = 30
	plain := h.create(t, s)
	s.BiddingEnabled = true
	auction := h.create(t, s)

	h2 := newHarness(t)
	h2.store = h.store
	h2.rt.Store = h.store
	n, err := h2.rt.ResumeSlowGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	resumed, ok := h2.rt.Sessions.Get(plain.ID)
	require.True(t, ok)
	white := uuid.New()
	_, err = resumed.Join(plain.tokens[0], white, nil)
	require.NoError(t, err)
	assert.Equal(t, EventStateUpdated, h2.rec.last(white).Type)
	assert.ErrorIs(t, resumed.Move(plain.tokens[0], 0, 0, 1, 0), ErrGameNotStarted)

	black := uuid.New()
	_, err = resumed.Join(plain.tokens[1], black, nil)
	require.NoError(t, err)
	assert.Equal(t, EventGameStarted, h2.rec.last(black).Type)
	require.NoError(t, resumed.Move(plain.tokens[0], 0, 0, 1, 0))

	resumedAuction, ok := h2.rt.Sessions.Get(auction.ID)
	require.True(t, ok)
	creatorConn, _ := h2.seat(t, resumedAuction)
	ev := h2.rec.last(creatorConn)
	assert.Equal(t, EventBiddingState, ev.Type)
	require.NotNil(t, ev.Bidding)
	assert.Equal(t, int64(33*time.Minute/time.Millisecond), ev.Bidding.InitialMs)
}

func TestResumePrunesStaleLiveIndex(t *testing.T) {
	h := newHarness(t)
	s := DefaultSettings()
	s.TimeControlEnabled = false
	g := h.create(t, s)

	stale := uuid.New()
	live := newFakeLive(stale)
	h2 := newHarness(t)
	h2.store = h.store
	h2.rt.Store = h.store
	h2.rt.Live = live

	n, err := h2.rt.ResumeSlowGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, live.has(g.ID))
	assert.False(t, live.has(stale))
}
