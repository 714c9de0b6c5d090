package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/models"
)

// SettingsFromRecord recovers the settings a stored session was created with, pinned to
// its map seed.
func SettingsFromRecord(rec *models.GameSession) Settings {
	return Settings{
		BoardSize:            rec.BoardSize,
		TimeControlEnabled:   rec.TimeControlEnabled,
		StartTimeMinutes:     rec.StartTimeMinutes,
		TimeIncrementSeconds: rec.TimeIncrementSeconds,
		BiddingEnabled:       rec.BiddingEnabled,
		MapSeed:              rec.MapSeed,
		MapMode:              board.Mode(rec.MapMode),
	}
}

// Replay rebuilds a stored session's position from its seed and move list. Clocks are not
// replayed; the stored remaining times are applied instead. A stored result that the moves
// themselves do not produce (resignation, flag fall) is stamped at the end.
func (rt *Runtime) Replay(rec *models.GameSession) (*Game, error) {
	m, err := board.FromSeed(rec.MapSeed)
	if err != nil {
		return nil, fmt.Errorf("map seed: %w", err)
	}
	settings := SettingsFromRecord(rec)
	opts := rt.gameOptions(settings, rec.WhiteName, rec.BlackName)
	opts.TimeControl = false
	g := New(m, opts)
	if rec.BlackStartingGold != nil {
		g.Black.Gold = *rec.BlackStartingGold
	}

	for i, n := range rec.Moves {
		if g.Ended {
			return nil, fmt.Errorf("%w: game ended before move %d", ErrReplayDiverged, i+1)
		}
		if err := g.ApplyNotation(n, true); err != nil {
			return nil, fmt.Errorf("move %d %q: %w", i+1, n, err)
		}
	}

	if settings.TimeControlEnabled {
		g.SetTimeControl(true)
		g.increment = settings.Increment()
		g.White.TimeMs = settings.StartTime().Milliseconds()
		g.Black.TimeMs = settings.StartTime().Milliseconds()
		if rec.WhiteMsRemaining != nil {
			g.White.TimeMs = *rec.WhiteMsRemaining
		}
		if rec.BlackMsRemaining != nil {
			g.Black.TimeMs = *rec.BlackMsRemaining
		}
	}
	if r, ok := ParseResult(rec.Result); ok && !g.Ended {
		g.ForceEnd(r)
	}
	return g, nil
}

// ResumeSlowGames reloads unfinished slow games from the store and registers them.
// Records without moves or a settled auction come back waiting for both players to
// rejoin. Records that fail to replay are skipped. Afterwards the live index is pruned
// to the sessions this process holds. It returns how many sessions were restored.
func (rt *Runtime) ResumeSlowGames(ctx context.Context) (int, error) {
	recs, err := rt.Store.ListUnfinishedSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing unfinished sessions: %w", err)
	}
	restored := 0
	for _, rec := range recs {
		if !SettingsFromRecord(rec).IsSlow() || rec.MapSeed == "" {
			continue
		}
		if _, live := rt.Sessions.Get(rec.ID); live {
			continue
		}
		sg, err := rt.resume(rec)
		if err != nil {
			rt.Log.WithError(err).WithField("game", rec.ID).Warn("skipping unrecoverable session")
			continue
		}
		rt.Sessions.Add(sg)
		if err := rt.Live.Add(ctx, sg.ID); err != nil {
			sg.log.WithError(err).Warn("could not index live session")
		}
		restored++
	}
	rt.Log.WithField("restored", restored).Info("slow games resumed")
	rt.pruneLiveIndex(ctx)
	return restored, nil
}

// pruneLiveIndex removes indexed ids that have no session in this process, which is
// what an unclean shutdown leaves behind.
func (rt *Runtime) pruneLiveIndex(ctx context.Context) {
	ids, err := rt.Live.IDs(ctx)
	if err != nil {
		rt.Log.WithError(err).Warn("could not read live session index")
		return
	}
	pruned := 0
	for _, id := range ids {
		if _, ok := rt.Sessions.Get(id); ok {
			continue
		}
		if err := rt.Live.Remove(ctx, id); err != nil {
			rt.Log.WithError(err).WithField("game", id).Warn("could not prune live session")
			continue
		}
		pruned++
	}
	if pruned > 0 {
		rt.Log.WithField("pruned", pruned).Info("stale live sessions removed")
	}
}

// seating reports whether a stored session never reached its first turn.
func seating(rec *models.GameSession) bool {
	return len(rec.Moves) == 0 && rec.BlackStartingGold == nil
}

func (rt *Runtime) resume(rec *models.GameSession) (*ServerGame, error) {
	g, err := rt.Replay(rec)
	if err != nil {
		return nil, err
	}
	if g.Ended {
		return nil, fmt.Errorf("%w: stored moves finish the game", ErrReplayDiverged)
	}
	settings := SettingsFromRecord(rec)
	waiting := seating(rec)
	if !waiting {
		g.Start()
	}

	sg := newServerGame(rt, rec.ID, settings, g,
		&Seat{Token: rec.WhiteToken, UserID: rec.WhiteUserID, Elo: rec.WhiteElo, Name: rec.WhiteName},
		&Seat{Token: rec.BlackToken, UserID: rec.BlackUserID, Elo: rec.BlackElo, Name: rec.BlackName},
	)
	sg.Private = rec.IsPrivate
	sg.ViaMatchmaking = rec.CreatedViaMatchmaking
	sg.CreatedAt = rec.CreatedAt
	sg.blackStartingGold = rec.BlackStartingGold
	sg.started = !waiting
	if waiting && settings.BiddingEnabled {
		sg.bidding = NewBidding()
	}
	sg.Mu.Lock()
	sg.logAction(board.NoColor, "game_resumed", map[string]interface{}{"moves": len(rec.Moves), "started": sg.started})
	if sg.started {
		sg.armFlagTimer()
	}
	sg.Mu.Unlock()
	return sg, nil
}
