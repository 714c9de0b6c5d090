package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/ageofchess/internal/models"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("game session not found")

// PGStore persists game sessions in Postgres through the global pool.
type PGStore struct{}

const sessionColumns = `id, board_size, map_mode, map_seed, time_control_enabled, start_time_minutes,
	time_increment_seconds, bidding_enabled, is_private, created_via_matchmaking, white_token,
	black_token, white_user_id, black_user_id, white_name, black_name, white_elo, black_elo,
	black_starting_gold, moves, move_count, white_ms_remaining, black_ms_remaining, result,
	white_elo_delta, black_elo_delta, created_at, ended_at`

// CreateGameSession inserts the initial record. Re-creating an existing id is a no-op.
func (PGStore) CreateGameSession(ctx context.Context, s *models.GameSession) error {
	moves, err := json.Marshal(nonNilMoves(s.Moves))
	if err != nil {
		return err
	}
	q := `INSERT INTO game_sessions (` + sessionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
		ON CONFLICT (id) DO NOTHING`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q,
			s.ID, s.BoardSize, s.MapMode, s.MapSeed, s.TimeControlEnabled, s.StartTimeMinutes,
			s.TimeIncrementSeconds, s.BiddingEnabled, s.IsPrivate, s.CreatedViaMatchmaking, s.WhiteToken,
			s.BlackToken, s.WhiteUserID, s.BlackUserID, s.WhiteName, s.BlackName, s.WhiteElo, s.BlackElo,
			s.BlackStartingGold, moves, s.MoveCount, s.WhiteMsRemaining, s.BlackMsRemaining, s.Result,
			s.WhiteEloDelta, s.BlackEloDelta, s.CreatedAt, s.EndedAt,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("insert game session %s: %w", s.ID, err)
	}
	return nil
}

// SaveGameProgress stores the move list, clocks and seating of a running game. A session
// that already has a result is left alone.
func (PGStore) SaveGameProgress(ctx context.Context, s *models.GameSession) error {
	moves, err := json.Marshal(nonNilMoves(s.Moves))
	if err != nil {
		return err
	}
	q := `UPDATE game_sessions
		SET moves=$2, move_count=$3, white_ms_remaining=$4, black_ms_remaining=$5,
		    white_token=$6, black_token=$7, white_user_id=$8, black_user_id=$9,
		    white_name=$10, black_name=$11, white_elo=$12, black_elo=$13, black_starting_gold=$14
		WHERE id=$1 AND result = ''`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, s.ID, moves, s.MoveCount, s.WhiteMsRemaining, s.BlackMsRemaining,
			s.WhiteToken, s.BlackToken, s.WhiteUserID, s.BlackUserID,
			s.WhiteName, s.BlackName, s.WhiteElo, s.BlackElo, s.BlackStartingGold)
		return e
	})
	if err != nil {
		return fmt.Errorf("save progress %s: %w", s.ID, err)
	}
	return nil
}

// FinishGameSession writes the result and, for games between two users, updates both
// category ratings in the same transaction. A session already finished is not rated twice.
func (PGStore) FinishGameSession(ctx context.Context, s *models.GameSession) error {
	moves, err := json.Marshal(nonNilMoves(s.Moves))
	if err != nil {
		return err
	}
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var prior string
		err := tx.QueryRow(ctx, `SELECT result FROM game_sessions WHERE id=$1 FOR UPDATE`, s.ID).Scan(&prior)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if prior != "" {
			return nil
		}

		if s.WhiteUserID != nil && s.BlackUserID != nil {
			cat := sessionCategory(s)
			wr, err := getRating(ctx, tx, *s.WhiteUserID, cat)
			if err != nil {
				return err
			}
			br, err := getRating(ctx, tx, *s.BlackUserID, cat)
			if err != nil {
				return err
			}
			if nw, nb, rated := settleRatings(s, wr, br); rated {
				if err := upsertRating(ctx, tx, nw); err != nil {
					return err
				}
				if err := upsertRating(ctx, tx, nb); err != nil {
					return err
				}
			}
		}

		_, err = tx.Exec(ctx, `UPDATE game_sessions
			SET moves=$2, move_count=$3, white_ms_remaining=$4, black_ms_remaining=$5, result=$6,
			    white_elo_delta=$7, black_elo_delta=$8, ended_at=$9,
			    white_token=$10, black_token=$11, white_user_id=$12, black_user_id=$13,
			    white_name=$14, black_name=$15, black_starting_gold=$16, white_elo=$17, black_elo=$18
			WHERE id=$1`,
			s.ID, moves, s.MoveCount, s.WhiteMsRemaining, s.BlackMsRemaining, s.Result,
			s.WhiteEloDelta, s.BlackEloDelta, s.EndedAt,
			s.WhiteToken, s.BlackToken, s.WhiteUserID, s.BlackUserID,
			s.WhiteName, s.BlackName, s.BlackStartingGold, s.WhiteElo, s.BlackElo)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish game session %s: %w", s.ID, err)
	}
	return nil
}

// ListUnfinishedSessions returns every session without a result, oldest first.
func (PGStore) ListUnfinishedSessions(ctx context.Context) ([]*models.GameSession, error) {
	rows, err := DB.Query(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE result = '' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list unfinished sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.GameSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetGameSession loads one session by id.
func (PGStore) GetGameSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	s, err := scanSession(DB.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// scanSession reads sessionColumns followed by any extra destinations.
func scanSession(row pgx.Row, extra ...any) (*models.GameSession, error) {
	var s models.GameSession
	var moves []byte
	dest := []any{
		&s.ID, &s.BoardSize, &s.MapMode, &s.MapSeed, &s.TimeControlEnabled, &s.StartTimeMinutes,
		&s.TimeIncrementSeconds, &s.BiddingEnabled, &s.IsPrivate, &s.CreatedViaMatchmaking, &s.WhiteToken,
		&s.BlackToken, &s.WhiteUserID, &s.BlackUserID, &s.WhiteName, &s.BlackName, &s.WhiteElo, &s.BlackElo,
		&s.BlackStartingGold, &moves, &s.MoveCount, &s.WhiteMsRemaining, &s.BlackMsRemaining, &s.Result,
		&s.WhiteEloDelta, &s.BlackEloDelta, &s.CreatedAt, &s.EndedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(moves, &s.Moves); err != nil {
		return nil, fmt.Errorf("session %s moves: %w", s.ID, err)
	}
	return &s, nil
}

func nonNilMoves(m []string) []string {
	if m == nil {
		return []string{}
	}
	return m
}
