// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/middleware"
)

// GameMessage is an inbound message on the game socket. Which fields matter depends on Type.
type GameMessage struct {
	Type        string `json:"type"`
	PlayerToken string `json:"playerToken,omitempty"`

	FromX int `json:"fromX"`
	FromY int `json:"fromY"`
	ToX   int `json:"toX"`
	ToY   int `json:"toY"`

	// X, Y and Piece are used by place, legal_moves and legal_placements.
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Piece string `json:"piece,omitempty"`

	Amount   int  `json:"amount"`
	SameSeed bool `json:"sameSeed"`
}

// gameConn is the per-socket state of a player connection. A socket is attached to at most
// one session at a time; joining another (after a rematch, say) detaches it from the first.
type gameConn struct {
	conn   *Connection
	userID *uuid.UUID
	sg     *game.ServerGame
	token  string
	log    *logrus.Entry
}

// GameWSHandler upgrades to the "game" subprotocol. Identity is optional; a player proves
// their seat with the token in the join message.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	ident, err := identify(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("game websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	if c.Subprotocol() != "game" {
		c.Close(BadSubprotocolError, "client must use the 'game' subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	gc := &gameConn{conn: s.GameHub.register(cancel)}
	gc.log = s.Log.WithField("conn", gc.conn.ID)
	if ident != nil {
		gc.userID = &ident.UserID
		gc.log = gc.log.WithField("user", ident.UserID)
	}

	go writePump(ctx, c, gc.conn, gc.log)

	limiter := s.newLimiter()
	var readErr error
	for {
		var data []byte
		_, data, readErr = c.Read(ctx)
		if readErr != nil {
			break
		}
		if !limiter.Allow() {
			s.sendGameError(gc, errRateLimited)
			continue
		}
		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendGameError(gc, errBadRequest)
			continue
		}
		s.handleGameMessage(ctx, gc, msg)
	}

	if gc.sg != nil {
		gc.sg.Disconnect(gc.conn.ID)
	}
	s.GameHub.unregister(gc.conn.ID)
	if errors.Is(readErr, context.Canceled) {
		c.Close(SlowConsumerError, "connection closed by server")
	}
	if websocket.CloseStatus(readErr) == websocket.StatusNormalClosure {
		readErr = nil
	}
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, readErr)
}

func (s *Server) handleGameMessage(ctx context.Context, gc *gameConn, msg GameMessage) {
	if msg.Type == "ping" {
		s.GameHub.Send(gc.conn.ID, game.GameEvent{Type: game.EventPong})
		return
	}
	if msg.Type == "join" {
		s.joinGame(gc, msg.PlayerToken)
		return
	}

	if gc.sg == nil {
		s.sendGameError(gc, game.ErrUnknownToken)
		return
	}
	sg, token := gc.sg, gc.token

	var err error
	switch msg.Type {
	case "move":
		err = sg.Move(token, msg.FromX, msg.FromY, msg.ToX, msg.ToY)
	case "place":
		err = sg.Place(token, msg.X, msg.Y, msg.Piece)
	case "bid":
		err = sg.Bid(token, msg.Amount)
	case "resign":
		err = sg.Resign(token)
	case "claim_timeout":
		err = sg.ClaimTimeout(token)
	case "rematch":
		err = sg.RequestRematch(ctx, token, msg.SameSeed)
	case "legal_moves":
		var squares [][2]int
		if squares, err = sg.LegalMoves(token, msg.X, msg.Y); err == nil {
			s.GameHub.Send(gc.conn.ID, game.GameEvent{Type: game.EventLegalMoves, Squares: squares})
		}
	case "legal_placements":
		var squares [][2]int
		if squares, err = sg.LegalPlacements(token, msg.Piece); err == nil {
			s.GameHub.Send(gc.conn.ID, game.GameEvent{Type: game.EventLegalPlacements, Squares: squares})
		}
	default:
		s.GameHub.Send(gc.conn.ID, game.GameEvent{
			Type:    game.EventError,
			Message: s.Messages.Text("errors.unknown_action", map[string]interface{}{"Action": msg.Type}),
		})
		return
	}
	if err != nil {
		gc.log.WithError(err).WithField("action", msg.Type).Debug("action rejected")
		s.sendGameError(gc, err)
	}
}

func (s *Server) joinGame(gc *gameConn, token string) {
	sg, ok := s.Runtime.Sessions.GetByToken(token)
	if !ok {
		s.sendGameError(gc, game.ErrUnknownToken)
		return
	}
	if gc.sg != nil && gc.sg != sg {
		gc.sg.Disconnect(gc.conn.ID)
	}
	if _, err := sg.Join(token, gc.conn.ID, gc.userID); err != nil {
		s.sendGameError(gc, err)
		return
	}
	gc.sg, gc.token = sg, token
	gc.log = gc.log.WithField("game_id", sg.ID)
}

// sendGameError answers only the caller. Internal failures are logged and reported generically.
func (s *Server) sendGameError(gc *gameConn, err error) {
	key, status := errorKey(err)
	if status >= http.StatusInternalServerError {
		gc.log.WithError(err).Error("game action failed")
	}
	s.GameHub.Send(gc.conn.ID, game.GameEvent{Type: game.EventError, Message: s.message(key)})
}
