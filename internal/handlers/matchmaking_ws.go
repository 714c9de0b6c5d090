package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/matchmaking"
	"github.com/jason-s-yu/ageofchess/internal/middleware"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// QueueMessage is an inbound message on the matchmaking socket.
type QueueMessage struct {
	Type string `json:"type"`

	BoardSizeMin int `json:"boardSizeMin"`
	BoardSizeMax int `json:"boardSizeMax"`
	// TimeControl picks a concrete clock. Without it, Category names the accepted bucket
	// and an empty or "any" category accepts every clock.
	TimeControl *matchmaking.TimeControl `json:"timeControl,omitempty"`
	Category    string                   `json:"category,omitempty"`
	Bidding     string                   `json:"bidding,omitempty"`
	MapMode     string                   `json:"mapMode,omitempty"`
}

type queueEvent struct {
	Type    string `json:"type"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// matchNotifier pushes queue events through the matchmaking hub.
type matchNotifier struct{ hub *Hub }

func (n matchNotifier) MatchFound(connID uuid.UUID, m matchmaking.MatchFound) {
	n.hub.Send(connID, struct {
		Type string `json:"type"`
		matchmaking.MatchFound
	}{Type: "match_found", MatchFound: m})
}

func (n matchNotifier) QueueCount(count int) {
	n.hub.Broadcast(queueEvent{Type: "queue_count", Count: &count})
}

// MatchmakingWSHandler upgrades to the "matchmaking" subprotocol. Queueing is rated, so
// the caller must present a valid token.
func (s *Server) MatchmakingWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"matchmaking"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("matchmaking websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	if c.Subprotocol() != "matchmaking" {
		c.Close(BadSubprotocolError, "client must use the 'matchmaking' subprotocol")
		return
	}
	ident, err := identify(r)
	if err != nil || ident == nil {
		c.Close(InvalidAuthTokenError, "authentication required")
		return
	}
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := s.MatchHub.register(cancel)
	log := s.Log.WithFields(logrus.Fields{"conn": conn.ID, "user": ident.UserID})
	go writePump(ctx, c, conn, log)

	limiter := s.newLimiter()
	var readErr error
	for {
		var data []byte
		_, data, readErr = c.Read(ctx)
		if readErr != nil {
			break
		}
		if !limiter.Allow() {
			s.sendQueueError(conn.ID, errRateLimited)
			continue
		}
		var msg QueueMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendQueueError(conn.ID, errBadRequest)
			continue
		}

		switch msg.Type {
		case "join_queue":
			entry, err := s.queueEntry(ctx, conn.ID, *ident, msg)
			if err == nil {
				err = s.Queue.Join(ctx, entry)
			}
			if err != nil {
				log.WithError(err).Debug("join_queue rejected")
				s.sendQueueError(conn.ID, err)
			}
		case "leave_queue":
			s.Queue.Leave(conn.ID)
		case "ping":
			s.MatchHub.Send(conn.ID, queueEvent{Type: "pong"})
		default:
			s.MatchHub.Send(conn.ID, queueEvent{
				Type:    "error",
				Message: s.Messages.Text("errors.unknown_action", map[string]interface{}{"Action": msg.Type}),
			})
		}
	}

	s.Queue.Leave(conn.ID)
	s.MatchHub.unregister(conn.ID)
	if websocket.CloseStatus(readErr) == websocket.StatusNormalClosure {
		readErr = nil
	}
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, readErr)
}

// queueEntry turns a join_queue message into an entry rated in the bucket it plays in.
func (s *Server) queueEntry(ctx context.Context, connID uuid.UUID, ident auth.Identity, msg QueueMessage) (matchmaking.Entry, error) {
	uid := ident.UserID
	e := matchmaking.Entry{
		ConnID:       connID,
		UserID:       &uid,
		Name:         ident.Name,
		Specific:     msg.TimeControl,
		BoardSizeMin: msg.BoardSizeMin,
		BoardSizeMax: msg.BoardSizeMax,
		Bidding:      matchmaking.ParseBiddingPreference(msg.Bidding),
		MapMode:      matchmaking.ParseMapModePreference(msg.MapMode),
	}
	if e.Specific == nil {
		if cat, ok := rating.ParseCategory(msg.Category); ok {
			e.Category = &cat
		}
	}
	if err := e.Validate(); err != nil {
		return e, err
	}
	r, err := s.Users.Rating(ctx, uid, e.RatingCategory())
	if err != nil {
		return e, err
	}
	e.Elo = r.Elo
	return e, nil
}

func (s *Server) sendQueueError(connID uuid.UUID, err error) {
	key, _ := errorKey(err)
	s.MatchHub.Send(connID, queueEvent{Type: "error", Message: s.message(key)})
}
