package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidDisplayName = errors.New("invalid display name")
)

// MaxDisplayNameLength bounds display names, in characters.
const MaxDisplayNameLength = 32

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// prepareUser assigns an id, normalizes the email and replaces the plain password with its hash.
func prepareUser(user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)
	if user.Email == "" || user.Username == "" {
		return fmt.Errorf("email and username are required")
	}

	hash, err := auth.HashPassword(user.Password, auth.DefaultHashParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash
	return nil
}

func CreateUser(ctx context.Context, user *models.User) error {
	if err := prepareUser(user); err != nil {
		return err
	}

	q := `INSERT INTO users (id, email, password, username, display_name, is_admin)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.DisplayName, user.IsAdmin,
		)
		return execErr
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, password, username, display_name, is_admin`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Username, &u.DisplayName, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(DB.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(DB.QueryRow(ctx, q, id))
}

func GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return scanUser(DB.QueryRow(ctx, q, username))
}

// NormalizeDisplayName trims name. An empty result, or sameAsUsername, clears the display
// name so the username shows instead.
func NormalizeDisplayName(name string, sameAsUsername bool) (string, error) {
	if sameAsUsername {
		return "", nil
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

// UpdateDisplayName stores an already normalized display name and returns the updated user.
func UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	q := `UPDATE users SET display_name=$2 WHERE id=$1 RETURNING ` + userColumns
	return scanUser(DB.QueryRow(ctx, q, id, name))
}

// checkPassword maps a failed lookup or mismatch to ErrInvalidCredentials.
func checkPassword(user *models.User, lookupErr error, password string) (*models.User, error) {
	if errors.Is(lookupErr, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if lookupErr != nil {
		return nil, fmt.Errorf("user lookup: %w", lookupErr)
	}
	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateUser checks the credentials and issues a session token.
func AuthenticateUser(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := GetUserByEmail(ctx, email)
	user, err := checkPassword(u, err, password)
	if err != nil {
		return "", nil, err
	}
	token, err := auth.CreateJWT(user.ID, user.EffectiveName())
	if err != nil {
		return "", nil, fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, user, nil
}
