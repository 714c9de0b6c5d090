package game

import "github.com/google/uuid"

// GameEventType names an outbound message on the game socket.
type GameEventType string

const (
	EventGameStarted      GameEventType = "game_started"
	EventStateUpdated     GameEventType = "state_updated"
	EventGameEnded        GameEventType = "game_ended"
	EventBiddingState     GameEventType = "bidding_state"
	EventLegalMoves       GameEventType = "legal_moves"
	EventLegalPlacements  GameEventType = "legal_placements"
	EventRematchRequested GameEventType = "rematch_requested"
	EventRematchCreated   GameEventType = "rematch_created"
	EventError            GameEventType = "error"
	EventPong             GameEventType = "pong"
)

// GameEvent is the envelope for every message sent to a client.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	State   *GameStateDto          `json:"state,omitempty"`
	Bidding *BiddingStateDto       `json:"bidding,omitempty"`
	Squares [][2]int               `json:"squares,omitempty"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// SendFunc delivers ev to one connection. It is called with the game lock held, so it must
// not block; the transport queues the event for the connection's writer.
type SendFunc func(connID uuid.UUID, ev GameEvent)
