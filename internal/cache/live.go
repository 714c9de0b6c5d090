package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// LiveSessions indexes unfinished sessions in a Redis set so other processes (and the next
// start of this one) can see what is still in play.
type LiveSessions struct{}

// Add marks a session as live.
func (LiveSessions) Add(ctx context.Context, id uuid.UUID) error {
	if Rdb == nil {
		return nil
	}
	if err := Rdb.SAdd(ctx, LiveSessionsKey, id.String()).Err(); err != nil {
		return fmt.Errorf("SAdd live session %s: %w", id, err)
	}
	return nil
}

// Remove drops a session from the index. Removing an absent id is not an error.
func (LiveSessions) Remove(ctx context.Context, id uuid.UUID) error {
	if Rdb == nil {
		return nil
	}
	if err := Rdb.SRem(ctx, LiveSessionsKey, id.String()).Err(); err != nil {
		return fmt.Errorf("SRem live session %s: %w", id, err)
	}
	return nil
}

// IDs lists the live sessions. Malformed members are skipped.
func (LiveSessions) IDs(ctx context.Context) ([]uuid.UUID, error) {
	if Rdb == nil {
		return nil, nil
	}
	members, err := Rdb.SMembers(ctx, LiveSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("SMembers live sessions: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if id, err := uuid.Parse(m); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
