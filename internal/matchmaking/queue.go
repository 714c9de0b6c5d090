package matchmaking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/game"
)

// DefaultTick is how often the queue is re-evaluated so that waiting players reach the
// wide rating band.
const DefaultTick = 5 * time.Second

// MatchFound is sent privately to each matched player.
type MatchFound struct {
	GameID      uuid.UUID `json:"gameId"`
	PlayerToken string    `json:"playerToken"`
	IsWhite     bool      `json:"isWhite"`
}

// Notifier delivers queue events. Calls are made without the queue lock held and must
// not block.
type Notifier interface {
	MatchFound(connID uuid.UUID, m MatchFound)
	QueueCount(n int)
}

// CreateFunc starts a game for a matched pair and returns its id and both player tokens.
type CreateFunc func(ctx context.Context, s game.Settings, white, black game.PlayerInfo) (id uuid.UUID, whiteToken, blackToken string, err error)

// FromRuntime adapts a game runtime into a CreateFunc for public matchmade games.
func FromRuntime(rt *game.Runtime) CreateFunc {
	return func(ctx context.Context, s game.Settings, white, black game.PlayerInfo) (uuid.UUID, string, string, error) {
		g, err := rt.Create(ctx, s, white, black, game.CreateOptions{ViaMatchmaking: true})
		if err != nil {
			return uuid.Nil, "", "", err
		}
		return g.ID, g.Token(board.White), g.Token(board.Black), nil
	}
}

// Queue pairs waiting players. It is re-evaluated on every join and on every tick.
type Queue struct {
	mu      sync.Mutex
	entries []Entry

	create CreateFunc
	notify Notifier
	log    *logrus.Entry

	Policy EloPolicy
	Now    func() time.Time
}

func NewQueue(create CreateFunc, notify Notifier, logger *logrus.Logger) *Queue {
	return &Queue{
		create: create,
		notify: notify,
		log:    logger.WithField("component", "matchmaking"),
		Policy: DefaultEloPolicy,
		Now:    time.Now,
	}
}

// Len is the number of waiting players.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Join queues e, replacing any earlier entry from the same connection, and tries to
// match immediately.
func (q *Queue) Join(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.QueuedAt = q.Now()

	q.mu.Lock()
	q.removeLocked(e.ConnID)
	q.entries = append(q.entries, e)
	pairs := q.takePairsLocked()
	q.mu.Unlock()

	q.log.WithFields(logrus.Fields{"conn": e.ConnID, "elo": e.Elo}).Debug("player queued")
	q.process(ctx, pairs)
	return nil
}

// Leave removes the connection's entry. It reports whether one was queued.
func (q *Queue) Leave(connID uuid.UUID) bool {
	q.mu.Lock()
	removed := q.removeLocked(connID)
	n := len(q.entries)
	q.mu.Unlock()
	if removed {
		q.notify.QueueCount(n)
	}
	return removed
}

// Tick re-evaluates the queue once.
func (q *Queue) Tick(ctx context.Context) {
	q.mu.Lock()
	pairs := q.takePairsLocked()
	q.mu.Unlock()
	if len(pairs) > 0 {
		q.process(ctx, pairs)
	}
}

// Run ticks until ctx is done.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Tick(ctx)
		}
	}
}

func (q *Queue) removeLocked(connID uuid.UUID) bool {
	for i, e := range q.entries {
		if e.ConnID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

type pair struct{ white, black Entry }

// takePairsLocked scans oldest first, pairs each entry with the first compatible later
// one and removes both from the queue.
func (q *Queue) takePairsLocked() []pair {
	sort.SliceStable(q.entries, func(i, j int) bool { return q.entries[i].QueuedAt.Before(q.entries[j].QueuedAt) })
	now := q.Now()
	matched := make([]bool, len(q.entries))
	var pairs []pair
	for i := range q.entries {
		if matched[i] {
			continue
		}
		for j := i + 1; j < len(q.entries); j++ {
			if matched[j] || !Compatible(q.entries[i], q.entries[j], now, q.Policy) {
				continue
			}
			matched[i], matched[j] = true, true
			pairs = append(pairs, pair{white: q.entries[i], black: q.entries[j]})
			break
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	rest := q.entries[:0]
	for i, e := range q.entries {
		if !matched[i] {
			rest = append(rest, e)
		}
	}
	q.entries = rest
	return pairs
}

// process creates a game per pair and tells both players. A pair whose game could not be
// created goes back into the queue with its original wait time.
func (q *Queue) process(ctx context.Context, pairs []pair) {
	for _, p := range pairs {
		settings := ResolveSettings(p.white, p.black)
		id, wt, bt, err := q.create(ctx, settings, playerInfo(p.white), playerInfo(p.black))
		if err != nil {
			q.log.WithError(err).Error("creating matched game")
			q.mu.Lock()
			q.entries = append(q.entries, p.white, p.black)
			q.mu.Unlock()
			continue
		}
		q.log.WithFields(logrus.Fields{
			"game":  id,
			"white": p.white.ConnID,
			"black": p.black.ConnID,
		}).Info("match found")
		q.notify.MatchFound(p.white.ConnID, MatchFound{GameID: id, PlayerToken: wt, IsWhite: true})
		q.notify.MatchFound(p.black.ConnID, MatchFound{GameID: id, PlayerToken: bt, IsWhite: false})
	}
	q.notify.QueueCount(q.Len())
}

func playerInfo(e Entry) game.PlayerInfo {
	info := game.PlayerInfo{UserID: e.UserID, Name: e.Name}
	if e.UserID != nil {
		elo := e.Elo
		info.Elo = &elo
	}
	return info
}
