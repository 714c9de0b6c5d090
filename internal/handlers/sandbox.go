package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/board"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/render"
)

// maxBulkMaps caps one bulk request.
const maxBulkMaps = 100

type sandboxBoardRequest struct {
	Size     int    `json:"size"`
	IsRandom bool   `json:"isRandom"`
	Seed     string `json:"seed"`
}

type sandboxBulkRequest struct {
	Size     int    `json:"size"`
	IsRandom bool   `json:"isRandom"`
	Amount   int    `json:"amount"`
	Token    string `json:"token"`
}

type bulkSquare struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Type        string  `json:"type"`
	HasTreasure bool    `json:"hasTreasure"`
	PieceType   *string `json:"pieceType"`
	IsWhite     *bool   `json:"isWhite"`
}

// clampSize forces a requested board size into the legal range and makes it even.
func clampSize(n int) int {
	if n < board.MinSize {
		n = board.MinSize
	}
	if n > board.MaxSize {
		n = board.MaxSize
	}
	if n%2 != 0 {
		n--
	}
	return n
}

func newGenerator() *board.Generator {
	return board.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func sandboxMode(random bool) board.Mode {
	if random {
		return board.ModeRandom
	}
	return board.ModeMirrored
}

// SandboxBoardHandler generates a map, or parses the given seed, without opening a session.
func (s *Server) SandboxBoardHandler(w http.ResponseWriter, r *http.Request) {
	req := sandboxBoardRequest{Size: 12, IsRandom: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, errBadRequest)
		return
	}

	var (
		m   *board.Map
		err error
	)
	if seed := strings.TrimSpace(req.Seed); seed != "" {
		m, err = board.FromSeed(seed)
	} else {
		size := clampSize(req.Size)
		m, err = newGenerator().Generate(sandboxMode(req.IsRandom), size, size)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	g := game.New(m, game.Options{WhiteName: "White", BlackName: "Black"})
	dto := game.BuildStateDto(uuid.Nil, g, false)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mapSeed": dto.MapSeed,
		"mapSize": m.Width,
		"squares": dto.Squares,
	})
}

// SandboxBulkHandler generates many maps in one call. It requires the configured token.
func (s *Server) SandboxBulkHandler(w http.ResponseWriter, r *http.Request) {
	req := sandboxBulkRequest{Size: 10, IsRandom: true, Amount: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, errBadRequest)
		return
	}
	if s.SandboxBulkToken == "" || req.Token != s.SandboxBulkToken {
		s.writeError(w, errForbidden)
		return
	}
	if req.Amount < 1 {
		req.Amount = 1
	}
	if req.Amount > maxBulkMaps {
		req.Amount = maxBulkMaps
	}

	gen := newGenerator()
	out := make([]map[string]interface{}, 0, req.Amount)
	for i := 0; i < req.Amount; i++ {
		m, err := gen.Generate(sandboxMode(req.IsRandom), req.Size, req.Size)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, map[string]interface{}{"mapSeed": m.Seed, "squares": bulkSquares(m)})
	}
	writeJSON(w, http.StatusOK, out)
}

func bulkSquares(m *board.Map) []bulkSquare {
	out := make([]bulkSquare, len(m.Squares))
	for i := range m.Squares {
		sq := &m.Squares[i]
		bs := bulkSquare{X: sq.X, Y: sq.Y, Type: sq.Type.String(), HasTreasure: sq.Occupant.Kind == board.Treasure}
		if sq.Occupant.Kind == board.King {
			k, white := "k", sq.Occupant.Color == board.White
			bs.PieceType, bs.IsWhite = &k, &white
		}
		out[i] = bs
	}
	return out
}

// PreviewHandler renders the map of ?seed= as a PNG.
func (s *Server) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	m, err := board.FromSeed(strings.TrimSpace(r.URL.Query().Get("seed")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	img, err := render.PNG(r.Context(), m, render.DefaultOptions)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(img)
}
