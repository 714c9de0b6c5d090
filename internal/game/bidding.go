package game

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/ageofchess/internal/rules"
)

// Bidder identifies a side of the auction. The creator holds the white token when the
// game is made and wins ties.
type Bidder int

const (
	Creator Bidder = iota
	Joiner
)

// BiddingPhase is the auction state.
type BiddingPhase int

const (
	BiddingNotStarted BiddingPhase = iota
	BiddingOpen
	BiddingResolved
)

// Bidding is the pre-game auction for color and Black's starting gold. Each side runs down
// a shared budget until it submits; its remaining time is then frozen.
type Bidding struct {
	StartedAt time.Time
	InitialMs int64

	bids   [2]*int
	frozen [2]int64
	phase  BiddingPhase
}

// BidOutcome is the resolved auction.
type BidOutcome struct {
	CreatorWins bool
	WinningBid  int
	WinnerMs    int64
	LoserMs     int64
}

// NewBidding returns an auction that has not opened yet.
func NewBidding() *Bidding {
	return &Bidding{}
}

// Start opens the window with 110% of the base clock.
func (b *Bidding) Start(baseTime time.Duration, now time.Time) {
	if b.phase != BiddingNotStarted {
		return
	}
	b.StartedAt = now
	b.InitialMs = baseTime.Milliseconds() * 11 / 10
	b.phase = BiddingOpen
}

func (b *Bidding) Phase() BiddingPhase { return b.phase }

// HasBid reports whether who has submitted.
func (b *Bidding) HasBid(who Bidder) bool { return b.bids[who] != nil }

// BothBid reports whether the auction can resolve.
func (b *Bidding) BothBid() bool { return b.bids[Creator] != nil && b.bids[Joiner] != nil }

// RemainingMs is who's frozen time once it has bid, otherwise the budget minus elapsed time.
func (b *Bidding) RemainingMs(who Bidder, now time.Time) int64 {
	if b.bids[who] != nil {
		return b.frozen[who]
	}
	if b.phase == BiddingNotStarted {
		return b.InitialMs
	}
	left := b.InitialMs - now.Sub(b.StartedAt).Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}

// Submit records who's bid and freezes its clock. It returns true when this bid resolved
// the auction; exactly one of the two submissions can do so.
func (b *Bidding) Submit(who Bidder, amount int, now time.Time) (bool, error) {
	if b.phase != BiddingOpen {
		return false, ErrBiddingClosed
	}
	if b.bids[who] != nil {
		return false, ErrAlreadyBid
	}
	if amount < 0 || amount >= rules.GoldVictoryThreshold {
		return false, fmt.Errorf("%w: %d", ErrInvalidBid, amount)
	}
	b.frozen[who] = b.RemainingMs(who, now)
	b.bids[who] = &amount
	if b.BothBid() {
		b.phase = BiddingResolved
		return true, nil
	}
	return false, nil
}

// Outcome is valid once both sides have bid. The higher bid wins and ties go to the creator.
func (b *Bidding) Outcome() BidOutcome {
	c, j := *b.bids[Creator], *b.bids[Joiner]
	if c >= j {
		return BidOutcome{CreatorWins: true, WinningBid: c, WinnerMs: b.frozen[Creator], LoserMs: b.frozen[Joiner]}
	}
	return BidOutcome{CreatorWins: false, WinningBid: j, WinnerMs: b.frozen[Joiner], LoserMs: b.frozen[Creator]}
}

// Snapshot builds the client view. Bid amounts stay hidden until both are in.
func (b *Bidding) Snapshot(now time.Time) *BiddingStateDto {
	dto := &BiddingStateDto{
		InitialMs:        b.InitialMs,
		CreatorBidPlaced: b.bids[Creator] != nil,
		JoinerBidPlaced:  b.bids[Joiner] != nil,
		CreatorMs:        b.RemainingMs(Creator, now),
		JoinerMs:         b.RemainingMs(Joiner, now),
	}
	if !b.StartedAt.IsZero() {
		dto.StartedAtUnixMs = b.StartedAt.UnixMilli()
	}
	if b.BothBid() {
		c, j := *b.bids[Creator], *b.bids[Joiner]
		dto.RevealedCreatorBid = &c
		dto.RevealedJoinerBid = &j
	}
	return dto
}
