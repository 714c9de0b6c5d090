package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/database"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/matchmaking"
)

var (
	errBadRequest   = errors.New("bad request")
	errAuthRequired = errors.New("authentication required")
	errRateLimited  = errors.New("rate limited")
	errForbidden    = errors.New("forbidden")
	errUserNotFound = errors.New("user not found")
)

// messageData fills the placeholders some catalog entries carry.
var messageData = map[string]interface{}{
	"Min":     auth.MinPasswordLength,
	"MaxName": database.MaxDisplayNameLength,
}

var errorKeys = []struct {
	err    error
	key    string
	status int
}{
	{game.ErrGameNotFound, "errors.game.not_found", http.StatusNotFound},
	{database.ErrSessionNotFound, "errors.game.not_found", http.StatusNotFound},
	{game.ErrNotYourTurn, "errors.game.not_your_turn", http.StatusConflict},
	{game.ErrIllegalMove, "errors.game.illegal_move", http.StatusUnprocessableEntity},
	{game.ErrIllegalPlacement, "errors.game.illegal_placement", http.StatusUnprocessableEntity},
	{game.ErrUnknownPiece, "errors.game.unknown_piece", http.StatusBadRequest},
	{game.ErrGameEnded, "errors.game.ended", http.StatusGone},
	{game.ErrGameNotStarted, "errors.game.not_started", http.StatusConflict},
	{game.ErrUnknownToken, "errors.game.unknown_token", http.StatusNotFound},
	{game.ErrUnauthorized, "errors.game.unauthorized", http.StatusForbidden},
	{game.ErrOpponentHasTime, "errors.game.opponent_has_time", http.StatusConflict},
	{game.ErrRematchUnavailable, "errors.game.rematch_unavailable", http.StatusConflict},
	{game.ErrInvalidSettings, "errors.game.invalid_settings", http.StatusBadRequest},
	{game.ErrAlreadyBid, "errors.bidding.already_bid", http.StatusConflict},
	{game.ErrBiddingClosed, "errors.bidding.closed", http.StatusConflict},
	{game.ErrInvalidBid, "errors.bidding.invalid", http.StatusBadRequest},
	{board.ErrInvalidDimensions, "errors.board.invalid_dimensions", http.StatusBadRequest},
	{board.ErrInvalidSeed, "errors.board.invalid_seed", http.StatusBadRequest},
	{auth.ErrInvalidToken, "errors.auth.invalid_token", http.StatusUnauthorized},
	{auth.ErrPasswordTooShort, "errors.auth.password_too_short", http.StatusBadRequest},
	{database.ErrInvalidCredentials, "errors.auth.invalid_credentials", http.StatusUnauthorized},
	{database.ErrUserExists, "errors.auth.user_exists", http.StatusConflict},
	{database.ErrUserNotFound, "errors.auth.invalid_token", http.StatusUnauthorized},
	{database.ErrInvalidDisplayName, "errors.user.invalid_display_name", http.StatusBadRequest},
	{errUserNotFound, "errors.user.not_found", http.StatusNotFound},
	{matchmaking.ErrInvalidEntry, "errors.matchmaking.invalid_entry", http.StatusBadRequest},
	{errAuthRequired, "errors.auth.required", http.StatusUnauthorized},
	{errBadRequest, "errors.bad_request", http.StatusBadRequest},
	{errRateLimited, "errors.rate_limited", http.StatusTooManyRequests},
	{errForbidden, "errors.auth.required", http.StatusForbidden},
}

// errorKey maps err to a catalog key and HTTP status. Unknown errors are internal.
func errorKey(err error) (string, int) {
	for _, e := range errorKeys {
		if errors.Is(err, e.err) {
			return e.key, e.status
		}
	}
	return "errors.internal", http.StatusInternalServerError
}
