package game

import (
	"github.com/lox/holdemd/internal/deck"
)

// Snapshot is the client view of a game. SnapshotFor masks hole cards;
// Snapshot (the omniscient form) is for persistence only and must never
// be sent to a client.
type Snapshot struct {
	GameID     string `json:"game_id"`
	TableName  string `json:"table_name"`
	Status     Status `json:"status"`
	Phase      Phase  `json:"phase"`
	HandNumber int    `json:"hand_number"`

	DealerSeat int `json:"dealer_seat"`
	TurnSeat   int `json:"turn_seat"`

	Pot        int64 `json:"pot"`
	CurrentBet int64 `json:"current_bet"`
	// MinRaiseTo is the lowest legal raise total while a bet is live.
	MinRaiseTo int64 `json:"min_raise_to,omitempty"`

	CommunityCards []string       `json:"community_cards"`
	Seats          []SeatSnapshot `json:"seats"`

	Winner  *WinnerInfo `json:"winner,omitempty"`
	Summary *Summary    `json:"summary,omitempty"`
}

// SeatSnapshot is one seat's public state. HoleCards is empty unless the
// viewer owns the seat or the cards were shown at showdown.
type SeatSnapshot struct {
	Index      int      `json:"index"`
	PlayerID   string   `json:"player_id"`
	Stack      int64    `json:"stack"`
	CurrentBet int64    `json:"current_bet"`
	TotalBet   int64    `json:"total_bet"`
	HoleCards  []string `json:"hole_cards"`
	InHand     bool     `json:"in_hand"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	Ready      bool     `json:"ready"`
	CashedOut  bool     `json:"cashed_out"`
	FinalStack int64    `json:"final_stack,omitempty"`
}

// Pot is the chips committed to the current hand across all seats.
func (g *Game) Pot() int64 {
	var pot int64
	for _, s := range g.seats {
		pot += s.TotalBet
	}
	return pot
}

// SnapshotFor renders the game as seen by viewer. An empty viewer sees
// only public information; a seated viewer additionally sees their own
// hole cards. Cards shown at showdown are visible to everyone until the
// next hand is dealt.
func (g *Game) SnapshotFor(viewer string) Snapshot {
	snap := g.baseSnapshot()
	for i, s := range g.seats {
		if s.PlayerID == viewer || s.Shown {
			snap.Seats[i].HoleCards = deck.Strings(s.HoleCards)
		}
	}
	return snap
}

// Snapshot renders the full unmasked state, for persistence.
func (g *Game) Snapshot() Snapshot {
	snap := g.baseSnapshot()
	for i, s := range g.seats {
		snap.Seats[i].HoleCards = deck.Strings(s.HoleCards)
	}
	return snap
}

func (g *Game) baseSnapshot() Snapshot {
	snap := Snapshot{
		GameID:         g.ID,
		TableName:      g.Table.Name,
		Status:         g.Status,
		Phase:          g.Phase,
		HandNumber:     g.HandNumber,
		DealerSeat:     g.DealerSeat,
		TurnSeat:       g.TurnSeat,
		Pot:            g.Pot(),
		CurrentBet:     g.CurrentBet,
		CommunityCards: deck.Strings(g.Board),
		Seats:          make([]SeatSnapshot, len(g.seats)),
		Winner:         g.Winner,
		Summary:        g.Summary,
	}
	if g.CurrentBet > 0 && bettingPhase(g.Phase) {
		snap.MinRaiseTo = g.CurrentBet + g.lastRaise
	}
	for i, s := range g.seats {
		snap.Seats[i] = SeatSnapshot{
			Index:      s.Index,
			PlayerID:   s.PlayerID,
			HoleCards:  []string{},
			Stack:      s.Stack,
			CurrentBet: s.CurrentBet,
			TotalBet:   s.TotalBet,
			InHand:     s.InHand,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			Ready:      s.Ready && s.ReadyHand == g.HandNumber,
			CashedOut:  s.CashedOut,
			FinalStack: s.FinalStack,
		}
	}
	return snap
}
