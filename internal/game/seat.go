package game

import (
	"github.com/lox/holdemd/internal/deck"
)

// Seat is one position at the table. Seats are identified by their stable
// index; clockwise order is ascending index with wraparound.
type Seat struct {
	Index    int
	PlayerID string

	// Stack is the seat's live chips. All money is int64 minor units.
	Stack int64

	// CurrentBet is the seat's contribution to the street in progress;
	// TotalBet is its contribution to the whole hand. Both reset when the
	// pot is awarded.
	CurrentBet int64
	TotalBet   int64

	HoleCards []deck.Card

	// InHand means the seat was dealt into the current hand; Folded
	// removes it from contention without clearing InHand.
	InHand bool
	Folded bool
	AllIn  bool

	// Shown marks hole cards revealed at the last showdown. Cleared when
	// the next hand is dealt.
	Shown bool

	CashedOut bool
	// FinalStack is the stack frozen at cash-out, credited to the
	// bankroll when the player leaves or buys back in.
	FinalStack int64

	// Ready applies to ReadyHand only, which makes repeated ready calls
	// for the same inter-hand break idempotent.
	Ready     bool
	ReadyHand int

	// Invested is total chips bought in, Banked is total returned to the
	// bankroll. Win/loss for the game summary is
	// (FinalStack + Banked) - Invested.
	Invested int64
	Banked   int64

	// acted is set once the seat has acted at the current bet level; a
	// full raise clears it for everyone else, a short all-in does not.
	acted bool

	// reboughtHand makes repeated buy-back calls during one break no-ops.
	reboughtHand int
}

// Contesting reports whether the seat is still in contention for the
// current hand.
func (s *Seat) Contesting() bool {
	return s.InHand && !s.Folded
}

// CanAct reports whether the seat can take a betting action.
func (s *Seat) CanAct() bool {
	return s.Contesting() && !s.AllIn
}

// put moves n chips from the stack into the current bet, flagging all-in
// when the stack empties. Callers validate n <= Stack first.
func (s *Seat) put(n int64) {
	s.Stack -= n
	s.CurrentBet += n
	s.TotalBet += n
	if s.Stack == 0 {
		s.AllIn = true
	}
}

// resetForHand prepares the seat for a new hand.
func (s *Seat) resetForHand(inHand bool) {
	s.CurrentBet = 0
	s.TotalBet = 0
	s.HoleCards = nil
	s.InHand = inHand
	s.Folded = false
	s.AllIn = false
	s.Shown = false
	s.Ready = false
	s.acted = false
}
