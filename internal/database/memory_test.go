package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

var (
	_ game.Store = (*MemoryStore)(nil)
	_ game.Store = PGStore{}
)

func TestMemoryUsers(t *testing.T) {
	require.NoError(t, auth.Init(time.Hour))
	ctx := context.Background()
	m := NewMemoryStore()

	u := &models.User{Email: " Alice@Example.com ", Username: "alice", Password: "hunter2hunter2"}
	require.NoError(t, m.CreateUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "hunter2hunter2", u.Password)

	dup := &models.User{Email: "alice@example.com", Username: "other", Password: "hunter2hunter2"}
	assert.ErrorIs(t, m.CreateUser(ctx, dup), ErrUserExists)

	short := &models.User{Email: "bob@example.com", Username: "bob", Password: "short"}
	assert.ErrorIs(t, m.CreateUser(ctx, short), auth.ErrPasswordTooShort)

	tok, who, err := m.Authenticate(ctx, "ALICE@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)
	id, err := auth.AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "alice", id.Name)

	_, _, err = m.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = m.Authenticate(ctx, "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func session(white, black *uuid.UUID, tc bool, minutes int) *models.GameSession {
	return &models.GameSession{
		ID:                 uuid.New(),
		BoardSize:          8,
		MapMode:            "m",
		MapSeed:            "m_8x8_x",
		TimeControlEnabled: tc,
		StartTimeMinutes:   minutes,
		WhiteUserID:        white,
		BlackUserID:        black,
		CreatedAt:          time.Now(),
	}
}

func TestMemoryFinishRatesOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	w, b := uuid.New(), uuid.New()

	s := session(&w, &b, true, 3)
	require.NoError(t, m.CreateGameSession(ctx, s))
	s.Result = "w+c"
	require.NoError(t, m.FinishGameSession(ctx, s))

	require.NotNil(t, s.WhiteEloDelta)
	require.NotNil(t, s.BlackEloDelta)
	// Equal 1200 ratings and K=100 on both sides.
	assert.Equal(t, 50, *s.WhiteEloDelta)
	assert.Equal(t, -50, *s.BlackEloDelta)

	wr, _ := m.Rating(ctx, w, rating.Blitz)
	br, _ := m.Rating(ctx, b, rating.Blitz)
	assert.Equal(t, models.Rating{UserID: w, Category: "blitz", Elo: 1250, GamesPlayed: 1}, wr)
	assert.Equal(t, 1150, br.Elo)

	rapid, _ := m.Rating(ctx, w, rating.Rapid)
	assert.Equal(t, models.DefaultElo, rapid.Elo)
	assert.Equal(t, 0, rapid.GamesPlayed)

	again := *s
	again.Result = "b+r"
	require.NoError(t, m.FinishGameSession(ctx, &again))
	wr, _ = m.Rating(ctx, w, rating.Blitz)
	assert.Equal(t, 1250, wr.Elo)

	stored, err := m.GetGameSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "w+c", stored.Result)
}

func TestMemoryAnonymousGamesAreUnrated(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	w := uuid.New()
	s := session(&w, nil, false, 0)
	require.NoError(t, m.CreateGameSession(ctx, s))
	s.Result = "b+g"
	require.NoError(t, m.FinishGameSession(ctx, s))
	assert.Nil(t, s.WhiteEloDelta)

	r, _ := m.Rating(ctx, w, rating.Slow)
	assert.Equal(t, 0, r.GamesPlayed)
}

func TestMemoryProgressAndUnfinished(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	older := session(nil, nil, false, 0)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := session(nil, nil, false, 0)
	done := session(nil, nil, false, 0)
	for _, s := range []*models.GameSession{newer, older, done} {
		require.NoError(t, m.CreateGameSession(ctx, s))
	}
	done.Result = "w+r"
	require.NoError(t, m.FinishGameSession(ctx, done))

	newer.Moves = []string{"a1-a2"}
	newer.MoveCount = 1
	require.NoError(t, m.SaveGameProgress(ctx, newer))
	newer.Moves[0] = "mutated"

	list, err := m.ListUnfinishedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, []string{"a1-a2"}, list[1].Moves)

	done.Moves = []string{"late"}
	require.NoError(t, m.SaveGameProgress(ctx, done))
	stored, _ := m.GetGameSession(ctx, done.ID)
	assert.Empty(t, stored.Moves)

	assert.ErrorIs(t, m.SaveGameProgress(ctx, session(nil, nil, false, 0)), ErrSessionNotFound)
	_, err = m.GetGameSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSettleRatingsUsesOwnKFactor(t *testing.T) {
	w, b := uuid.New(), uuid.New()
	s := session(&w, &b, true, 10)
	s.Result = "b+t"
	nw, nb, rated := settleRatings(s,
		models.Rating{UserID: w, Elo: 1200, GamesPlayed: 20},
		models.Rating{UserID: b, Elo: 1200, GamesPlayed: 0},
	)
	require.True(t, rated)
	assert.Equal(t, 1184, nw.Elo)
	assert.Equal(t, 1250, nb.Elo)
	assert.Equal(t, 21, nw.GamesPlayed)
	assert.Equal(t, -16, *s.WhiteEloDelta)
	assert.Equal(t, rating.Rapid, sessionCategory(s))
}
