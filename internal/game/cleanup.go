package game

import (
	"context"
	"time"
)

// CleanupPolicy sets how long idle sessions stay in memory.
type CleanupPolicy struct {
	// Ended sessions are evicted this long after their last activity.
	Ended time.Duration
	// NeverStarted sessions are evicted this long after creation.
	NeverStarted time.Duration
	// Abandoned timed and untimed games, with nobody connected, are evicted after these.
	AbandonedTimed   time.Duration
	AbandonedUntimed time.Duration
}

// DefaultCleanupPolicy keeps ended games for 15 minutes, unstarted ones for 2 hours and
// abandoned games for a day, or a week when untimed.
var DefaultCleanupPolicy = CleanupPolicy{
	Ended:            15 * time.Minute,
	NeverStarted:     2 * time.Hour,
	AbandonedTimed:   24 * time.Hour,
	AbandonedUntimed: 7 * 24 * time.Hour,
}

// DefaultCleanupInterval is how often RunCleanup sweeps.
const DefaultCleanupInterval = 30 * time.Minute

// evictable decides whether g should be dropped at now.
func (g *ServerGame) evictable(now time.Time, p CleanupPolicy) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch {
	case g.game.Ended:
		return now.Sub(g.lastActivity) >= p.Ended
	case !g.started:
		return now.Sub(g.CreatedAt) >= p.NeverStarted
	case g.seats[0].Connected() || g.seats[1].Connected():
		return false
	case g.Settings.TimeControlEnabled:
		return now.Sub(g.lastActivity) >= p.AbandonedTimed
	default:
		return now.Sub(g.lastActivity) >= p.AbandonedUntimed
	}
}

// shutdown stops timers on an evicted session.
func (g *ServerGame) shutdown() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.flagTimer != nil {
		g.flagTimer.Stop()
		g.flagTimer = nil
	}
}

// Sweep evicts idle sessions and returns how many were removed. Unfinished slow games
// remain in the store and come back on the next resume.
func (rt *Runtime) Sweep(p CleanupPolicy) int {
	now := rt.now()
	evicted := 0
	for _, g := range rt.Sessions.All() {
		if !g.evictable(now, p) {
			continue
		}
		g.shutdown()
		rt.Sessions.Remove(g.ID)
		evicted++
	}
	if evicted > 0 {
		rt.Log.WithField("evicted", evicted).Info("session cleanup")
	}
	return evicted
}

// RunCleanup sweeps on every tick until ctx is done.
func (rt *Runtime) RunCleanup(ctx context.Context, interval time.Duration, p CleanupPolicy) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.Sweep(p)
		}
	}
}
