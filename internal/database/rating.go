package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// querier is satisfied by the pool and by a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetRating returns the user's rating in cat, or the default for a category without games.
func GetRating(ctx context.Context, userID uuid.UUID, cat rating.Category) (models.Rating, error) {
	return getRating(ctx, DB, userID, cat)
}

func getRating(ctx context.Context, q querier, userID uuid.UUID, cat rating.Category) (models.Rating, error) {
	r := models.Rating{UserID: userID, Category: string(cat), Elo: models.DefaultElo}
	err := q.QueryRow(ctx,
		`SELECT elo, games_played FROM ratings WHERE user_id=$1 AND category=$2`,
		userID, string(cat),
	).Scan(&r.Elo, &r.GamesPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, nil
	}
	if err != nil {
		return r, fmt.Errorf("reading %s rating: %w", cat, err)
	}
	return r, nil
}

// GetRatings lists the user's rating in every category.
func GetRatings(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	out := make([]models.Rating, 0, len(rating.Categories))
	for _, cat := range rating.Categories {
		r, err := GetRating(ctx, userID, cat)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func upsertRating(ctx context.Context, tx pgx.Tx, r models.Rating) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ratings (user_id, category, elo, games_played)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category)
		DO UPDATE SET elo = EXCLUDED.elo, games_played = EXCLUDED.games_played
	`, r.UserID, r.Category, r.Elo, r.GamesPlayed)
	return err
}

// settleRatings computes both players' new ratings for a finished session and records the
// deltas on s. It reports false when the game is not rated.
func settleRatings(s *models.GameSession, white, black models.Rating) (models.Rating, models.Rating, bool) {
	if s.WhiteUserID == nil || s.BlackUserID == nil || len(s.Result) == 0 {
		return white, black, false
	}
	whiteWon := s.Result[0] == 'w'
	nw, nb := rating.Update(
		rating.Player{Elo: white.Elo, GamesPlayed: white.GamesPlayed},
		rating.Player{Elo: black.Elo, GamesPlayed: black.GamesPlayed},
		whiteWon,
	)
	dw, db := nw-white.Elo, nb-black.Elo
	s.WhiteEloDelta, s.BlackEloDelta = &dw, &db

	white.Elo, black.Elo = nw, nb
	white.GamesPlayed++
	black.GamesPlayed++
	return white, black, true
}

func sessionCategory(s *models.GameSession) rating.Category {
	return rating.CategoryFor(s.TimeControlEnabled, s.StartTimeMinutes)
}
