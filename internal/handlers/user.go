package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/database"
	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// RegisterHandler creates an account and signs the new user in.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password",
//	  "username": "someone"
//	}
//
// Responds 201 with the user and a token; 409 if the email or username is taken.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errBadRequest)
		return
	}
	// "me" would be shadowed by /api/users/me.
	if req.Email == "" || req.Username == "" || strings.EqualFold(strings.TrimSpace(req.Username), "me") {
		s.writeError(w, errBadRequest)
		return
	}

	user := models.User{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	}
	if err := s.Users.CreateUser(r.Context(), &user); err != nil {
		s.writeError(w, err)
		return
	}

	token, err := auth.CreateJWT(user.ID, user.EffectiveName())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.setAuthCookie(w, token)
	user.Password = ""
	writeJSON(w, http.StatusCreated, map[string]interface{}{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler exchanges email and password for a token. The token is also set as the
// auth_token cookie so browser sockets pick it up.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errBadRequest)
		return
	}

	token, user, err := s.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.Log.WithField("email", req.Email).Debugf("failed to authenticate user: %v", err)
		s.writeError(w, err)
		return
	}
	s.setAuthCookie(w, token)
	user.Password = ""
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// MeHandler returns the signed-in user with a rating per category.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	ident, err := identify(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ident == nil {
		s.writeError(w, errAuthRequired)
		return
	}
	user, err := s.Users.GetUserByID(r.Context(), ident.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ratings, err := s.Users.Ratings(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user, "ratings": ratings})
}

type settingsRequest struct {
	DisplayName               string `json:"displayName"`
	DisplayNameSameAsUsername bool   `json:"displayNameSameAsUsername"`
}

// UpdateSettingsHandler changes the signed-in user's display name. A blank name, or
// displayNameSameAsUsername, goes back to showing the username.
func (s *Server) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	ident, err := identify(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ident == nil {
		s.writeError(w, errAuthRequired)
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errBadRequest)
		return
	}
	name, err := database.NormalizeDisplayName(req.DisplayName, req.DisplayNameSameAsUsername)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.Users.UpdateDisplayName(r.Context(), ident.UserID, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.WithField("user", user.ID).Debug("display name updated")
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

type categoryStats struct {
	Elo         int `json:"elo"`
	GamesPlayed int `json:"gamesPlayed"`
	Games       int `json:"games"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`
}

type historyGame struct {
	GameID               uuid.UUID  `json:"gameId"`
	EndedAt              *time.Time `json:"endedAt"`
	BoardSize            int        `json:"boardSize"`
	MapMode              string     `json:"mapMode"`
	TimeControlEnabled   bool       `json:"timeControlEnabled"`
	StartTimeMinutes     int        `json:"startTimeMinutes"`
	TimeIncrementSeconds int        `json:"timeIncrementSeconds"`
	Category             string     `json:"category"`
	Color                string     `json:"color"`
	OpponentName         string     `json:"opponentName"`
	OpponentUsername     string     `json:"opponentUsername,omitempty"`
	OpponentEloAtGame    *int       `json:"opponentEloAtGame"`
	MyEloAtGame          *int       `json:"myEloAtGame"`
	EloDelta             *int       `json:"eloDelta"`
	Result               string     `json:"result"`
	ResultCode           string     `json:"resultCode"`
	MoveCount            int        `json:"moveCount"`
}

type profileResponse struct {
	Username    string                   `json:"username"`
	DisplayName string                   `json:"displayName"`
	Stats       map[string]categoryStats `json:"stats"`
	Games       []historyGame            `json:"games"`
	TotalGames  int                      `json:"totalGames"`
}

// historyQuery reads startIndex, sortCol, sortDir and category. Unknown values are
// rejected rather than silently replaced.
func historyQuery(r *http.Request) (models.HistoryQuery, error) {
	q := models.HistoryQuery{Sort: models.SortEndedAt, Limit: models.HistoryPageSize}
	v := r.URL.Query()

	if raw := v.Get("startIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, errBadRequest
		}
		q.Offset = n
	}
	if raw := v.Get("sortCol"); raw != "" {
		q.Sort = models.HistorySort(raw)
		known := false
		for _, col := range models.HistorySorts {
			known = known || col == q.Sort
		}
		if !known {
			return q, errBadRequest
		}
	}
	switch v.Get("sortDir") {
	case "", "desc":
	case "asc":
		q.Asc = true
	default:
		return q, errBadRequest
	}
	if raw := v.Get("category"); raw != "" && raw != "all" {
		cat, ok := rating.ParseCategory(raw)
		if !ok {
			return q, errBadRequest
		}
		q.Category = string(cat)
	}
	return q, nil
}

// ProfileHandler is the public profile: per-category rating and record plus one page
// of finished games, 50 at a time.
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	q, err := historyQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()
	user, err := s.Users.GetUserByUsername(ctx, r.PathValue("username"))
	if errors.Is(err, database.ErrUserNotFound) {
		s.writeError(w, errUserNotFound)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	ratings, err := s.Users.Ratings(ctx, user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	records, err := s.Users.CategoryRecords(ctx, user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page, err := s.Users.ListFinishedGamesByUser(ctx, user.ID, q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := profileResponse{
		Username:    user.Username,
		DisplayName: user.EffectiveName(),
		Stats:       make(map[string]categoryStats, len(ratings)),
		Games:       make([]historyGame, 0, len(page.Games)),
		TotalGames:  page.Total,
	}
	for _, rt := range ratings {
		st := resp.Stats[rt.Category]
		st.Elo, st.GamesPlayed = rt.Elo, rt.GamesPlayed
		resp.Stats[rt.Category] = st
	}
	for _, rec := range records {
		st := resp.Stats[rec.Category]
		st.Games, st.Wins, st.Losses, st.Draws = rec.Games, rec.Wins, rec.Losses, rec.Draws
		resp.Stats[rec.Category] = st
	}
	for _, e := range page.Games {
		resp.Games = append(resp.Games, toHistoryGame(&e.Session, e.OpponentUsername, user.ID))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toHistoryGame(g *models.GameSession, oppUsername string, userID uuid.UUID) historyGame {
	white := g.IsWhite(userID)
	mine, theirs, color := g.BlackElo, g.WhiteElo, "black"
	if white {
		mine, theirs, color = g.WhiteElo, g.BlackElo, "white"
	}
	return historyGame{
		GameID:               g.ID,
		EndedAt:              g.EndedAt,
		BoardSize:            g.BoardSize,
		MapMode:              g.MapMode,
		TimeControlEnabled:   g.TimeControlEnabled,
		StartTimeMinutes:     g.StartTimeMinutes,
		TimeIncrementSeconds: g.TimeIncrementSeconds,
		Category:             string(rating.CategoryFor(g.TimeControlEnabled, g.StartTimeMinutes)),
		Color:                color,
		OpponentName:         g.OpponentName(userID),
		OpponentUsername:     oppUsername,
		OpponentEloAtGame:    theirs,
		MyEloAtGame:          mine,
		EloDelta:             g.EloDeltaFor(userID),
		Result:               g.Outcome(userID),
		ResultCode:           g.Result,
		MoveCount:            g.MoveCount,
	}
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(s.TokenTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
