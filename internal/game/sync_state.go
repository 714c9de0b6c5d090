// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/board"
)

// PieceDto describes whatever stands on a square. Gaia objects report isWhite false.
type PieceDto struct {
	Type    string `json:"type"`
	IsWhite bool   `json:"isWhite"`
}

// SquareDto is one square of the board snapshot.
type SquareDto struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Highlight string    `json:"highlight"`
	MineOwner string    `json:"mineOwner,omitempty"`
	Piece     *PieceDto `json:"piece"`
}

// PlayerDto is one side's public state.
type PlayerDto struct {
	Name            string `json:"name"`
	Gold            int    `json:"gold"`
	TimeMsRemaining int64  `json:"timeMsRemaining"`
	IsActive        bool   `json:"isActive"`
}

// GameStateDto is the full snapshot pushed to both clients after every change. It carries
// everything needed to draw the board.
type GameStateDto struct {
	SessionID       uuid.UUID   `json:"sessionId"`
	MapSeed         string      `json:"mapSeed"`
	Squares         []SquareDto `json:"squares"`
	White           PlayerDto   `json:"white"`
	Black           PlayerDto   `json:"black"`
	Moves           []string    `json:"moves"`
	Result          *string     `json:"result"`
	GameEnded       bool        `json:"gameEnded"`
	TurnStartedAtMs int64       `json:"turnStartedAtMs,omitempty"`
	Bidding         bool        `json:"bidding"`
}

// BiddingStateDto is the auction snapshot. Revealed bids are nil until both sides have bid.
type BiddingStateDto struct {
	StartedAtUnixMs    int64 `json:"startedAtUnixMs"`
	InitialMs          int64 `json:"initialMs"`
	CreatorBidPlaced   bool  `json:"creatorBidPlaced"`
	CreatorMs          int64 `json:"creatorMs"`
	JoinerBidPlaced    bool  `json:"joinerBidPlaced"`
	JoinerMs           int64 `json:"joinerMs"`
	RevealedCreatorBid *int  `json:"revealedCreatorBid"`
	RevealedJoinerBid  *int  `json:"revealedJoinerBid"`
}

// BuildStateDto snapshots g. Clock values are the stored ones; clients count down from
// TurnStartedAtMs.
func BuildStateDto(id uuid.UUID, g *Game, bidding bool) GameStateDto {
	dto := GameStateDto{
		SessionID: id,
		MapSeed:   g.Map.Seed,
		Squares:   make([]SquareDto, len(g.Map.Squares)),
		White:     playerDto(g.White),
		Black:     playerDto(g.Black),
		Moves:     g.Notations(),
		GameEnded: g.Ended,
		Bidding:   bidding,
	}
	if g.Result != "" {
		r := string(g.Result)
		dto.Result = &r
	}
	if !g.TurnStartedAt.IsZero() {
		dto.TurnStartedAtMs = g.TurnStartedAt.UnixMilli()
	}
	for i := range g.Map.Squares {
		sq := &g.Map.Squares[i]
		s := SquareDto{
			X:         sq.X,
			Y:         sq.Y,
			ID:        sq.ID,
			Type:      sq.Type.String(),
			Highlight: sq.Highlight.String(),
		}
		if sq.Type.IsMine() && sq.MineOwner != board.NoColor {
			s.MineOwner = sq.MineOwner.String()
		}
		if !sq.Occupant.IsEmpty() {
			s.Piece = &PieceDto{Type: sq.Occupant.Kind.String(), IsWhite: sq.Occupant.Color == board.White}
		}
		dto.Squares[i] = s
	}
	return dto
}

func playerDto(p *PlayerColor) PlayerDto {
	return PlayerDto{Name: p.Name, Gold: p.Gold, TimeMsRemaining: p.TimeMs, IsActive: p.IsActive}
}
