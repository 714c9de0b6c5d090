package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// The account methods below let PGStore serve as the user store for the HTTP layer.

func (PGStore) CreateUser(ctx context.Context, u *models.User) error {
	return CreateUser(ctx, u)
}

func (PGStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return GetUserByEmail(ctx, email)
}

func (PGStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return GetUserByID(ctx, id)
}

func (PGStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return GetUserByUsername(ctx, username)
}

func (PGStore) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	return UpdateDisplayName(ctx, id, name)
}

func (PGStore) Authenticate(ctx context.Context, email, password string) (string, *models.User, error) {
	return AuthenticateUser(ctx, email, password)
}

func (PGStore) Rating(ctx context.Context, userID uuid.UUID, cat rating.Category) (models.Rating, error) {
	return GetRating(ctx, userID, cat)
}

func (PGStore) Ratings(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	return GetRatings(ctx, userID)
}
