package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/game"
)

// createGameRequest overlays the default settings. Omitted fields keep their defaults.
type createGameRequest struct {
	game.Settings
	Private    bool   `json:"private"`
	PlayerName string `json:"playerName"`
}

type createGameResponse struct {
	GameID      uuid.UUID `json:"gameId"`
	PlayerToken string    `json:"playerToken"`
	InviteToken string    `json:"inviteToken"`
	MapSeed     string    `json:"mapSeed"`
}

type joinGameRequest struct {
	InviteToken string `json:"inviteToken"`
	PlayerName  string `json:"playerName"`
}

type joinGameResponse struct {
	GameID      uuid.UUID `json:"gameId"`
	PlayerToken string    `json:"playerToken"`
	MapSeed     string    `json:"mapSeed"`
}

// CreateGameHandler starts an invite game. The creator takes White; the invite token is
// the Black seat and is handed to whoever the creator shares it with.
func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	ident, err := identify(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	req := createGameRequest{Settings: game.DefaultSettings()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, errBadRequest)
		return
	}

	creator := s.playerInfo(r, ident, req.PlayerName, req.Settings)
	sg, err := s.Runtime.Create(r.Context(), req.Settings, creator, game.PlayerInfo{}, game.CreateOptions{Private: req.Private})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{
		GameID:      sg.ID,
		PlayerToken: sg.Token(board.White),
		InviteToken: sg.InviteToken(),
		MapSeed:     sg.Seed(),
	})
}

// JoinGameHandler hands out the Black seat of an invite game. Public games give it to
// anyone who knows the id; private games need the invite token. Matchmade games cannot
// be joined this way.
func (s *Server) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, game.ErrGameNotFound)
		return
	}
	ident, err := identify(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, errBadRequest)
		return
	}

	sg, ok := s.Runtime.Sessions.Get(id)
	if !ok {
		s.writeError(w, game.ErrGameNotFound)
		return
	}
	if sg.ViaMatchmaking || (sg.Private && req.InviteToken != sg.InviteToken()) {
		s.writeError(w, errForbidden)
		return
	}

	token := sg.InviteToken()
	if err := sg.ClaimSeat(token, s.playerInfo(r, ident, req.PlayerName, sg.Settings)); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinGameResponse{GameID: sg.ID, PlayerToken: token, MapSeed: sg.Seed()})
}

// GetGameHandler returns the live state of a running session, or the stored record of
// one that is no longer in memory so clients can replay it from seed and moves.
func (s *Server) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, game.ErrGameNotFound)
		return
	}
	if sg, ok := s.Runtime.Sessions.Get(id); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"live": true, "state": sg.State()})
		return
	}
	rec, err := s.Runtime.Store.GetGameSession(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"live": false, "session": rec})
}

// playerInfo describes the caller for a seat. Signed-in callers bring their user id and
// their rating in the game's category.
func (s *Server) playerInfo(r *http.Request, ident *auth.Identity, name string, settings game.Settings) game.PlayerInfo {
	info := game.PlayerInfo{Name: name}
	if ident == nil {
		return info
	}
	uid := ident.UserID
	info.UserID = &uid
	if info.Name == "" {
		info.Name = ident.Name
	}
	rt, err := s.Users.Rating(r.Context(), uid, settings.Category())
	if err != nil {
		s.Log.WithError(err).WithField("user", uid).Warn("could not load rating")
		return info
	}
	elo := rt.Elo
	info.Elo = &elo
	return info
}
