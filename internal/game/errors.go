package game

import "errors"

// Errors returned by ServerGame actions. The transport maps each one to a message for the caller.
var (
	ErrGameNotFound       = errors.New("game not found")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrIllegalMove        = errors.New("illegal move")
	ErrIllegalPlacement   = errors.New("illegal placement")
	ErrUnknownPiece       = errors.New("unknown piece code")
	ErrGameEnded          = errors.New("game has ended")
	ErrGameNotStarted     = errors.New("game has not started")
	ErrAlreadyBid         = errors.New("bid already submitted")
	ErrBiddingClosed      = errors.New("bidding is not open")
	ErrInvalidBid         = errors.New("invalid bid amount")
	ErrUnknownToken       = errors.New("unknown player token")
	ErrUnauthorized       = errors.New("seat is bound to another user")
	ErrOpponentHasTime    = errors.New("opponent still has time")
	ErrRematchUnavailable = errors.New("rematch unavailable")
	ErrReplayDiverged     = errors.New("stored move could not be replayed")
	ErrBadNotation        = errors.New("malformed move notation")
	ErrInvalidSettings    = errors.New("invalid game settings")
)
