package matchmaking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

type recordedMatch struct {
	conn uuid.UUID
	m    MatchFound
}

type fakeNotifier struct {
	mu      sync.Mutex
	matches []recordedMatch
	counts  []int
}

func (n *fakeNotifier) MatchFound(conn uuid.UUID, m MatchFound) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches = append(n.matches, recordedMatch{conn, m})
}

func (n *fakeNotifier) QueueCount(c int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts = append(n.counts, c)
}

type createdGame struct {
	settings     game.Settings
	white, black game.PlayerInfo
}

type fixture struct {
	q       *Queue
	notify  *fakeNotifier
	created []createdGame
	now     time.Time
	fail    bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := &fixture{notify: &fakeNotifier{}, now: time.Unix(1_700_000_000, 0)}
	create := func(_ context.Context, s game.Settings, white, black game.PlayerInfo) (uuid.UUID, string, string, error) {
		if f.fail {
			return uuid.Nil, "", "", errors.New("store down")
		}
		f.created = append(f.created, createdGame{s, white, black})
		return uuid.New(), "white-token", "black-token", nil
	}
	f.q = NewQueue(create, f.notify, logger)
	f.q.Now = func() time.Time { return f.now }
	return f
}

func rapid() *rating.Category {
	c := rating.Rapid
	return &c
}

func entry(elo int) Entry {
	uid := uuid.New()
	return Entry{
		ConnID:       uuid.New(),
		UserID:       &uid,
		Elo:          elo,
		Category:     rapid(),
		BoardSizeMin: 10,
		BoardSizeMax: 10,
		Bidding:      BiddingEither,
		MapMode:      MapModeAny,
	}
}

func TestCloseRatingsPairImmediately(t *testing.T) {
	f := newFixture(t)
	a, b := entry(1200), entry(1250)

	require.NoError(t, f.q.Join(context.Background(), a))
	assert.Empty(t, f.created)
	f.now = f.now.Add(10 * time.Second)
	require.NoError(t, f.q.Join(context.Background(), b))

	require.Len(t, f.created, 1)
	assert.Equal(t, 0, f.q.Len())
	assert.Equal(t, a.UserID, f.created[0].white.UserID, "first in the queue plays White")
	require.NotNil(t, f.created[0].white.Elo)
	assert.Equal(t, 1200, *f.created[0].white.Elo)

	require.Len(t, f.notify.matches, 2)
	assert.Equal(t, a.ConnID, f.notify.matches[0].conn)
	assert.True(t, f.notify.matches[0].m.IsWhite)
	assert.Equal(t, "white-token", f.notify.matches[0].m.PlayerToken)
	assert.Equal(t, b.ConnID, f.notify.matches[1].conn)
	assert.False(t, f.notify.matches[1].m.IsWhite)
	assert.Equal(t, []int{1, 0}, f.notify.counts)

	s := f.created[0].settings
	assert.Equal(t, 10, s.BoardSize)
	assert.Equal(t, 15, s.StartTimeMinutes)
	assert.Equal(t, 10, s.TimeIncrementSeconds)
	assert.True(t, s.BiddingEnabled)
	assert.Equal(t, board.ModeMirrored, s.MapMode)
}

func TestWideGapWaitsForExpansion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.q.Join(context.Background(), entry(1200)))
	f.now = f.now.Add(5 * time.Second)
	require.NoError(t, f.q.Join(context.Background(), entry(1600)))
	assert.Empty(t, f.created)

	f.now = f.now.Add(20 * time.Second)
	f.q.Tick(context.Background())
	assert.Empty(t, f.created, "first entry has waited 25s")

	f.now = f.now.Add(5 * time.Second)
	f.q.Tick(context.Background())
	assert.Len(t, f.created, 1)
	assert.Equal(t, 0, f.q.Len())
}

func TestGapBeyondWideBandNeverPairs(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.q.Join(context.Background(), entry(1200)))
	require.NoError(t, f.q.Join(context.Background(), entry(1800)))
	f.now = f.now.Add(time.Hour)
	f.q.Tick(context.Background())
	assert.Empty(t, f.created)
	assert.Equal(t, 2, f.q.Len())
}

func TestOldestEntryIsServedFirst(t *testing.T) {
	f := newFixture(t)
	a := entry(1500)
	b := entry(1100)
	c := entry(1300)
	require.NoError(t, f.q.Join(context.Background(), a))
	f.now = f.now.Add(time.Second)
	require.NoError(t, f.q.Join(context.Background(), b))
	f.now = f.now.Add(time.Second)
	require.NoError(t, f.q.Join(context.Background(), c))

	// a and b are 400 apart; c arrives and fits a first.
	require.Len(t, f.created, 1)
	assert.Equal(t, a.UserID, f.created[0].white.UserID)
	assert.Equal(t, c.UserID, f.created[0].black.UserID)
	assert.Equal(t, 1, f.q.Len())
}

func TestLeaveRemovesEntry(t *testing.T) {
	f := newFixture(t)
	a := entry(1200)
	require.NoError(t, f.q.Join(context.Background(), a))
	assert.True(t, f.q.Leave(a.ConnID))
	assert.False(t, f.q.Leave(a.ConnID))
	assert.Equal(t, 0, f.q.Len())
	assert.Equal(t, []int{1, 0}, f.notify.counts)
}

func TestRejoinReplacesEntry(t *testing.T) {
	f := newFixture(t)
	a := entry(1200)
	require.NoError(t, f.q.Join(context.Background(), a))
	a.BoardSizeMin, a.BoardSizeMax = 12, 14
	require.NoError(t, f.q.Join(context.Background(), a))
	assert.Equal(t, 1, f.q.Len())
}

func TestFailedCreationRequeues(t *testing.T) {
	f := newFixture(t)
	f.fail = true
	require.NoError(t, f.q.Join(context.Background(), entry(1200)))
	require.NoError(t, f.q.Join(context.Background(), entry(1210)))
	assert.Equal(t, 2, f.q.Len())
	assert.Empty(t, f.notify.matches)

	f.fail = false
	f.q.Tick(context.Background())
	assert.Len(t, f.created, 1)
}

func TestJoinValidatesRange(t *testing.T) {
	f := newFixture(t)
	e := entry(1200)
	e.BoardSizeMin, e.BoardSizeMax = 14, 8
	assert.ErrorIs(t, f.q.Join(context.Background(), e), ErrInvalidEntry)
	e.BoardSizeMin, e.BoardSizeMax = 18, 20
	assert.Error(t, f.q.Join(context.Background(), e))
}

func TestCompatibility(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	base := func() (Entry, Entry) {
		a, b := entry(1200), entry(1200)
		a.QueuedAt, b.QueuedAt = now, now
		return a, b
	}
	blitz := rating.Blitz

	cases := []struct {
		name   string
		mutate func(a, b *Entry)
		want   bool
	}{
		{"identical", func(a, b *Entry) {}, true},
		{"same user", func(a, b *Entry) { b.UserID = a.UserID }, false},
		{"anonymous pair", func(a, b *Entry) { a.UserID, b.UserID = nil, nil }, true},
		{"disjoint sizes", func(a, b *Entry) { b.BoardSizeMin, b.BoardSizeMax = 12, 16 }, false},
		{"touching sizes", func(a, b *Entry) { a.BoardSizeMax = 12; b.BoardSizeMin, b.BoardSizeMax = 12, 16 }, true},
		{"category mismatch", func(a, b *Entry) { b.Category = &blitz }, false},
		{"any category", func(a, b *Entry) { b.Category = nil }, true},
		{"specific in category", func(a, b *Entry) {
			b.Category = nil
			b.Specific = &TimeControl{Enabled: true, StartMinutes: 10, IncrementSeconds: 5}
		}, true},
		{"specific outside category", func(a, b *Entry) {
			b.Category = nil
			b.Specific = &TimeControl{Enabled: true, StartMinutes: 3, IncrementSeconds: 2}
		}, false},
		{"bidding on vs off", func(a, b *Entry) { a.Bidding, b.Bidding = BiddingEnabled, BiddingDisabled }, false},
		{"bidding on vs either", func(a, b *Entry) { a.Bidding = BiddingEnabled }, true},
		{"mirrored vs random", func(a, b *Entry) { a.MapMode, b.MapMode = "m", "r" }, false},
		{"mirrored vs any", func(a, b *Entry) { a.MapMode = "m" }, true},
		{"narrow band edge", func(a, b *Entry) { b.Elo = 1400 }, true},
		{"outside narrow band", func(a, b *Entry) { b.Elo = 1401 }, false},
		{"wide band after wait", func(a, b *Entry) { b.Elo = 1700; a.QueuedAt = now.Add(-30 * time.Second) }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := base()
			tc.mutate(&a, &b)
			assert.Equal(t, tc.want, Compatible(a, b, now, DefaultEloPolicy))
			assert.Equal(t, tc.want, Compatible(b, a, now, DefaultEloPolicy), "symmetric")
		})
	}
}

func TestResolveTimeControl(t *testing.T) {
	blitz, slow := rating.Blitz, rating.Slow
	specific := &TimeControl{Enabled: true, StartMinutes: 7, IncrementSeconds: 2}

	a, b := entry(1200), entry(1200)
	a.Category, b.Category = nil, nil
	assert.Equal(t, anyDefault, resolveTimeControl(a, b))

	b.Category = &blitz
	assert.Equal(t, TimeControl{Enabled: true, StartMinutes: 5, IncrementSeconds: 3}, resolveTimeControl(a, b))

	a.Category = &slow
	assert.Equal(t, TimeControl{Enabled: true, StartMinutes: 30, IncrementSeconds: 15}, resolveTimeControl(a, b), "white's category wins")

	b.Specific = specific
	assert.Equal(t, *specific, resolveTimeControl(a, b), "a concrete choice beats a category")
}

func TestResolveBoardSize(t *testing.T) {
	assert.Equal(t, 10, resolveBoardSize(10, 10, 10, 10))
	assert.Equal(t, 10, resolveBoardSize(8, 10, 10, 14), "10.5 rounds down")
	assert.Equal(t, 8, resolveBoardSize(8, 10, 8, 10), "4.5 pairs round to even")
	assert.Equal(t, 12, resolveBoardSize(10, 12, 10, 12), "5.5 pairs round to even")
	assert.Equal(t, 6, resolveBoardSize(6, 6, 6, 6))
	assert.Equal(t, 16, resolveBoardSize(16, 16, 16, 16))
}

func TestResolveMapModeAndBidding(t *testing.T) {
	assert.Equal(t, "m", resolveMapMode("any", "any"))
	assert.Equal(t, "r", resolveMapMode("any", "r"))
	assert.Equal(t, "r", resolveMapMode("r", "any"))
	assert.Equal(t, "r", resolveMapMode("r", "r"))

	a, b := entry(1200), entry(1200)
	assert.True(t, ResolveSettings(a, b).BiddingEnabled, "either plus either bids")
	b.Bidding = BiddingDisabled
	assert.False(t, ResolveSettings(a, b).BiddingEnabled)
}

func TestParsePreferences(t *testing.T) {
	assert.Equal(t, BiddingEnabled, ParseBiddingPreference("Enabled"))
	assert.Equal(t, BiddingEither, ParseBiddingPreference("sometimes"))
	assert.Equal(t, "any", ParseMapModePreference("ANY"))
	assert.Equal(t, "m", ParseMapModePreference("x"))
}
