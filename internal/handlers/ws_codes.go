// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game and matchmaking sockets.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Auth token missing, invalid or expired.
	SlowConsumerError     websocket.StatusCode = 3004 // Outbox overflowed; the client stopped reading.
)
