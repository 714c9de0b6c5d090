package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/cache"
	"github.com/jason-s-yu/ageofchess/internal/models"
)

// Store persists game sessions. The Postgres and in-memory stores in package database
// implement it.
type Store interface {
	CreateGameSession(ctx context.Context, s *models.GameSession) error
	SaveGameProgress(ctx context.Context, s *models.GameSession) error
	// FinishGameSession writes the final record. When both seats belong to users it also
	// updates their category ratings and fills in the Elo deltas on s.
	FinishGameSession(ctx context.Context, s *models.GameSession) error
	ListUnfinishedSessions(ctx context.Context) ([]*models.GameSession, error)
	GetGameSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
}

// LiveIndex tracks unfinished sessions outside the process.
type LiveIndex interface {
	Add(ctx context.Context, id uuid.UUID) error
	Remove(ctx context.Context, id uuid.UUID) error
	IDs(ctx context.Context) ([]uuid.UUID, error)
}

// PlayerInfo describes who sits in a seat at creation. Anonymous players have no UserID.
type PlayerInfo struct {
	UserID *uuid.UUID
	Elo    *int
	Name   string
}

// CreateOptions are session flags that do not affect play.
type CreateOptions struct {
	Private        bool
	ViaMatchmaking bool
}

// Runtime owns the live sessions and the collaborators they report to.
type Runtime struct {
	Sessions *SessionManager
	Store    Store
	Live     LiveIndex
	Publish  func(ctx context.Context, rec cache.GameActionRecord) error
	Send     SendFunc
	Log      *logrus.Logger
	Now      func() time.Time

	StalemateGoldFloor int
	// DisableFlagTimers leaves flag falls to claim_timeout and the next move.
	DisableFlagTimers bool

	NewGenerator func() *board.Generator
}

// NewRuntime wires a runtime with an empty session manager, redis publishing and a
// clock-seeded map generator per game.
func NewRuntime(store Store, logger *logrus.Logger) *Runtime {
	return &Runtime{
		Sessions: NewSessionManager(),
		Store:    store,
		Live:     cache.LiveSessions{},
		Publish:  cache.PublishGameAction,
		Send:     func(uuid.UUID, GameEvent) {},
		Log:      logger,
		Now:      time.Now,
		NewGenerator: func() *board.Generator {
			return board.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
		},
	}
}

func (rt *Runtime) now() time.Time { return rt.Now() }

// Create validates settings, builds the map, persists the session record and registers
// the live game.
func (rt *Runtime) Create(ctx context.Context, settings Settings, white, black PlayerInfo, opts CreateOptions) (*ServerGame, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	m, err := settings.BuildMap(rt.NewGenerator())
	if err != nil {
		return nil, fmt.Errorf("building map: %w", err)
	}
	if white.Name == "" {
		white.Name = "Player 1"
	}
	if black.Name == "" {
		black.Name = "Player 2"
	}

	g := New(m, rt.gameOptions(settings, white.Name, black.Name))
	sg := newServerGame(rt, uuid.New(), settings, g,
		&Seat{Token: uuid.NewString(), UserID: white.UserID, Elo: white.Elo, Name: white.Name},
		&Seat{Token: uuid.NewString(), UserID: black.UserID, Elo: black.Elo, Name: black.Name},
	)
	sg.Private = opts.Private
	sg.ViaMatchmaking = opts.ViaMatchmaking
	if settings.BiddingEnabled {
		sg.bidding = NewBidding()
	}

	rec := sg.sessionRecord()
	if err := rt.Store.CreateGameSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	rt.Sessions.Add(sg)
	if err := rt.Live.Add(ctx, sg.ID); err != nil {
		sg.log.WithError(err).Warn("could not index live session")
	}
	sg.Mu.Lock()
	sg.logAction(board.NoColor, "game_created", map[string]interface{}{"seed": m.Seed, "bidding": settings.BiddingEnabled})
	sg.Mu.Unlock()
	sg.log.WithField("seed", m.Seed).Info("game created")
	return sg, nil
}

func (rt *Runtime) gameOptions(s Settings, whiteName, blackName string) Options {
	return Options{
		WhiteName:          whiteName,
		BlackName:          blackName,
		TimeControl:        s.TimeControlEnabled,
		StartTime:          s.StartTime(),
		Increment:          s.Increment(),
		StalemateGoldFloor: rt.StalemateGoldFloor,
		Now:                rt.Now,
	}
}

// persistProgress saves a slow game's record. Saves run in their own goroutines, so a
// sequence number keeps an older snapshot from overwriting a newer one.
func (rt *Runtime) persistProgress(g *ServerGame, seq int, rec *models.GameSession) {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	if seq <= g.persistedSeq {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Store.SaveGameProgress(ctx, rec); err != nil {
		g.log.WithError(err).Error("saving game progress")
		return
	}
	g.persistedSeq = seq
}

// persistFinish writes the final record once and drops the session from the live index.
func (rt *Runtime) persistFinish(g *ServerGame, rec *models.GameSession) {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	g.persistedSeq = int(^uint(0) >> 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Store.FinishGameSession(ctx, rec); err != nil {
		g.log.WithError(err).Error("persisting final game state")
	} else if rec.WhiteEloDelta != nil && rec.BlackEloDelta != nil {
		g.log.WithFields(logrus.Fields{
			"whiteDelta": *rec.WhiteEloDelta,
			"blackDelta": *rec.BlackEloDelta,
		}).Info("ratings updated")
	}
	if err := rt.Live.Remove(ctx, g.ID); err != nil {
		g.log.WithError(err).Warn("could not drop live session index")
	}
}
