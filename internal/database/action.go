package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/ageofchess/internal/cache"
)

// InsertGameActions writes a batch of action records in one transaction. A record already
// stored is skipped, so a failed batch can be retried. Resumed games restart their action
// index, which the timestamp tells apart.
func InsertGameActions(ctx context.Context, recs []cache.GameActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.GameID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorUserID != uuid.Nil {
		actor = &rec.ActorUserID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO game_actions (
			game_id, action_index, actor_color, actor_user_id, action_type, action_payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index, occurred_at) DO NOTHING
	`, rec.GameID, rec.ActionIndex, rec.ActorColor, actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	return err
}
