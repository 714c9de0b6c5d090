package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/matchmaking"
	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/msgcat"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// UserStore is the account surface the handlers need. database.PGStore and
// database.MemoryStore implement it.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (string, *models.User, error)
	Rating(ctx context.Context, userID uuid.UUID, cat rating.Category) (models.Rating, error)
	Ratings(ctx context.Context, userID uuid.UUID) ([]models.Rating, error)
	CategoryRecords(ctx context.Context, userID uuid.UUID) ([]models.CategoryRecord, error)
	ListFinishedGamesByUser(ctx context.Context, userID uuid.UUID, q models.HistoryQuery) (models.HistoryPage, error)
}

// Server holds everything the HTTP and websocket handlers share.
type Server struct {
	Runtime  *game.Runtime
	Queue    *matchmaking.Queue
	Users    UserStore
	Messages *msgcat.Catalog
	Log      *logrus.Logger

	GameHub  *Hub
	MatchHub *Hub

	// ActionRate and ActionBurst limit inbound socket messages per connection.
	ActionRate  rate.Limit
	ActionBurst int

	// SandboxBulkToken guards bulk map generation. Empty disables the endpoint.
	SandboxBulkToken string
	// TokenTTL sets the auth cookie lifetime.
	TokenTTL time.Duration
}

// NewServer wires the game runtime's sends through the game hub and builds the
// matchmaking queue on top of the matchmaking hub.
func NewServer(rt *game.Runtime, users UserStore, msgs *msgcat.Catalog, logger *logrus.Logger) *Server {
	s := &Server{
		Runtime:     rt,
		Users:       users,
		Messages:    msgs,
		Log:         logger,
		GameHub:     NewHub(logger, "game"),
		MatchHub:    NewHub(logger, "matchmaking"),
		ActionRate:  rate.Limit(20),
		ActionBurst: 40,
		TokenTTL:    7 * 24 * time.Hour,
	}
	rt.Send = func(connID uuid.UUID, ev game.GameEvent) { s.GameHub.Send(connID, ev) }
	s.Queue = matchmaking.NewQueue(matchmaking.FromRuntime(rt), matchNotifier{hub: s.MatchHub}, logger)
	return s
}

// Routes registers every endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.RegisterHandler)
	mux.HandleFunc("POST /api/auth/login", s.LoginHandler)
	mux.HandleFunc("GET /api/users/me", s.MeHandler)
	mux.HandleFunc("PUT /api/users/me/settings", s.UpdateSettingsHandler)
	mux.HandleFunc("GET /api/users/{username}", s.ProfileHandler)

	mux.HandleFunc("POST /api/game", s.CreateGameHandler)
	mux.HandleFunc("POST /api/game/{id}/join", s.JoinGameHandler)
	mux.HandleFunc("GET /api/game/{id}", s.GetGameHandler)

	mux.HandleFunc("POST /api/sandbox/board", s.SandboxBoardHandler)
	mux.HandleFunc("POST /api/sandbox/bulk", s.SandboxBulkHandler)
	mux.HandleFunc("GET /api/sandbox/preview.png", s.PreviewHandler)

	mux.HandleFunc("GET /game/ws", s.GameWSHandler)
	mux.HandleFunc("GET /matchmaking/ws", s.MatchmakingWSHandler)

	mux.HandleFunc("GET /healthz", s.HealthHandler)
	return mux
}

// HealthHandler reports liveness plus a few gauges.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"games":       s.Runtime.Sessions.Count(),
		"queued":      s.Queue.Len(),
		"gameSockets": s.GameHub.Len(),
	})
}

func (s *Server) newLimiter() *rate.Limiter {
	return rate.NewLimiter(s.ActionRate, s.ActionBurst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": message} with the status and message the error maps to.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	key, status := errorKey(err)
	if status >= http.StatusInternalServerError {
		s.Log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": s.message(key)})
}

func (s *Server) message(key string) string {
	return s.Messages.Text(key, messageData)
}
