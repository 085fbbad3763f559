// Package game implements the no-limit hold'em cash game: seating and
// buy-ins, blind posting, betting rounds with min-raise and big-blind
// option rules, side pots, showdown, and the cash-out lifecycle through
// to the final game summary.
//
// A Game is a plain state machine with no locking; the coordinator owns
// one and feeds it commands from a single goroutine. Every operation
// validates fully before mutating, so a returned error always means the
// state is unchanged.
package game

import (
	"sort"
	"time"

	"github.com/lox/holdemd/internal/deck"
	"github.com/lox/holdemd/internal/evaluator"
)

// Status is the coarse game lifecycle.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

// Phase is the fine-grained position within a hand.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhasePreflop           Phase = "PREFLOP"
	PhaseFlop              Phase = "FLOP"
	PhaseTurn              Phase = "TURN"
	PhaseRiver             Phase = "RIVER"
	PhaseShowdown          Phase = "SHOWDOWN"
)

// bettingPhase reports whether seats act during the phase.
func bettingPhase(p Phase) bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// Game is one cash game at one table.
type Game struct {
	ID    string
	Table TableConfig

	Status Status
	Phase  Phase

	HandNumber int
	DealerSeat int
	// TurnSeat is the seat whose action is pending, -1 when none.
	TurnSeat int

	Board []deck.Card

	// CurrentBet is the street's bet level; lastRaise the size of the
	// last full raise increment, which sets the minimum for the next.
	CurrentBet    int64
	lastRaise     int64
	lastAggressor int
	bbSeat        int
	// bbOption is set while the big blind is still owed its preflop
	// option to raise an unraised pot.
	bbOption bool

	DeckSeed int64

	Actions   []ActionRecord
	Histories []HandHistory

	Winner  *WinnerInfo
	Summary *Summary

	seats    []*Seat
	departed []SummaryEntry
	deck     *deck.Deck

	summarySent bool
	now         func() time.Time
}

// New creates a game in the WAITING state.
func New(id string, table TableConfig) *Game {
	return &Game{
		ID:            id,
		Table:         table,
		Status:        StatusWaiting,
		Phase:         PhaseWaitingForPlayers,
		DealerSeat:    -1,
		TurnSeat:      -1,
		lastAggressor: -1,
		bbSeat:        -1,
		now:           time.Now,
	}
}

// SetNow overrides the timestamp source, for tests.
func (g *Game) SetNow(fn func() time.Time) {
	g.now = fn
}

// Seats returns the occupied seats in index order.
func (g *Game) Seats() []*Seat {
	return g.seats
}

// SeatOf returns the seat held by playerID, or nil.
func (g *Game) SeatOf(playerID string) *Seat {
	for _, s := range g.seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func (g *Game) seatAt(index int) *Seat {
	for _, s := range g.seats {
		if s.Index == index {
			return s
		}
	}
	return nil
}

func funded(s *Seat) bool {
	return !s.CashedOut && s.Stack > 0
}

// FundedSeats counts seats able to play the next hand.
func (g *Game) FundedSeats() int {
	n := 0
	for _, s := range g.seats {
		if funded(s) {
			n++
		}
	}
	return n
}

// nextSeat scans clockwise from (and excluding) seat index `from`,
// wrapping around, and returns the first occupied seat matching ok. The
// scan includes `from` itself as the final candidate.
func (g *Game) nextSeat(from int, ok func(*Seat) bool) *Seat {
	for i := 1; i <= g.Table.MaxSeats; i++ {
		idx := (from + i) % g.Table.MaxSeats
		if s := g.seatAt(idx); s != nil && ok(s) {
			return s
		}
	}
	return nil
}

// clockwiseFrom returns occupied seats matching ok, ordered clockwise
// starting left of `from`, with `from` itself last.
func (g *Game) clockwiseFrom(from int, ok func(*Seat) bool) []*Seat {
	var out []*Seat
	for i := 1; i <= g.Table.MaxSeats; i++ {
		idx := (from + i) % g.Table.MaxSeats
		if s := g.seatAt(idx); s != nil && ok(s) {
			out = append(out, s)
		}
	}
	return out
}

// Join seats a player with a buy-in. Joining mid-hand is allowed; the
// seat sits out until the next deal.
func (g *Game) Join(playerID string, buyIn int64) (*Seat, error) {
	if g.Status == StatusFinished {
		return nil, newError(KindGameNotWaiting, "game is finished")
	}
	if g.SeatOf(playerID) != nil {
		return nil, newError(KindInvalidAction, "player %s is already seated", playerID)
	}
	if len(g.seats) >= g.Table.MaxSeats {
		return nil, newError(KindTableFull, "table %s is full", g.Table.Name)
	}
	if buyIn < g.Table.MinBuyIn || buyIn > g.Table.MaxBuyIn {
		return nil, newError(KindBuyInOutOfRange, "buy-in %d outside %d-%d", buyIn, g.Table.MinBuyIn, g.Table.MaxBuyIn)
	}

	index := 0
	for _, s := range g.seats {
		if s.Index != index {
			break
		}
		index++
	}

	seat := &Seat{
		Index:        index,
		PlayerID:     playerID,
		Stack:        buyIn,
		Invested:     buyIn,
		ReadyHand:    -1,
		reboughtHand: -1,
	}
	g.seats = append(g.seats, seat)
	sort.Slice(g.seats, func(i, j int) bool { return g.seats[i].Index < g.seats[j].Index })
	return seat, nil
}

// Start deals the first hand. Only valid while the game is WAITING with
// at least two funded seats.
func (g *Game) Start(d *deck.Deck) error {
	if g.Status != StatusWaiting {
		return newError(KindGameNotWaiting, "game is %s", g.Status)
	}
	if g.FundedSeats() < 2 {
		return newError(KindGameNotWaiting, "need at least 2 funded seats, have %d", g.FundedSeats())
	}
	g.Status = StatusPlaying
	g.beginHand(d)
	return nil
}

// NextHand deals the next hand during an inter-hand break.
func (g *Game) NextHand(d *deck.Deck) error {
	if g.Status != StatusPlaying || g.Phase != PhaseWaitingForPlayers {
		return newError(KindGameNotWaiting, "no hand break in progress")
	}
	if g.FundedSeats() < 2 {
		return newError(KindGameNotWaiting, "need at least 2 funded seats, have %d", g.FundedSeats())
	}
	g.beginHand(d)
	return nil
}

// CanDeal reports whether the next hand should start: all seated players
// ready during a break with two or more funded seats.
func (g *Game) CanDeal() bool {
	return g.Status == StatusPlaying &&
		g.Phase == PhaseWaitingForPlayers &&
		g.FundedSeats() >= 2 &&
		g.AllReady()
}

// beginHand rotates the button, posts blinds, deals hole cards and opens
// the preflop round. Callers have verified at least two funded seats.
func (g *Game) beginHand(d *deck.Deck) {
	g.HandNumber++
	g.deck = d
	g.DeckSeed = d.Seed()
	g.Board = nil
	g.Winner = nil

	if g.DealerSeat < 0 {
		// first hand: lowest funded seat takes the button
		for _, s := range g.seats {
			if funded(s) {
				g.DealerSeat = s.Index
				break
			}
		}
	} else {
		g.DealerSeat = g.nextSeat(g.DealerSeat, funded).Index
	}

	for _, s := range g.seats {
		s.resetForHand(funded(s))
	}

	players := g.clockwiseFrom(g.DealerSeat, func(s *Seat) bool { return s.InHand })
	for _, s := range players {
		cards, err := g.deck.Deal(2)
		if err != nil {
			panic("game: deck exhausted dealing hole cards")
		}
		s.HoleCards = cards
	}

	// Heads-up the button posts the small blind and acts first preflop.
	var sb, bb *Seat
	if len(players) == 2 {
		sb, bb = players[1], players[0]
	} else {
		sb, bb = players[0], players[1]
	}
	sb.put(min64(g.Table.SmallBlind, sb.Stack))
	bb.put(min64(g.Table.BigBlind, bb.Stack))

	g.Phase = PhasePreflop
	// the bet to match is the full big blind even when posted short
	g.CurrentBet = g.Table.BigBlind
	g.lastRaise = g.Table.BigBlind
	g.lastAggressor = bb.Index
	g.bbSeat = bb.Index
	g.bbOption = true

	if g.roundComplete() {
		g.TurnSeat = -1
		g.closeRound()
		return
	}
	g.TurnSeat = g.nextSeat(g.bbSeat, (*Seat).CanAct).Index
}

// Apply validates and executes a betting action for the player whose
// turn it is, then advances the hand as far as it can go without further
// input (street deals, all-in run-outs, showdown).
func (g *Game) Apply(playerID string, action ActionType, amount int64) error {
	seat := g.SeatOf(playerID)
	if seat == nil {
		return newError(KindInvalidAction, "player %s is not seated", playerID)
	}
	if seat.CashedOut {
		return newError(KindAlreadyCashedOut, "player %s has cashed out", playerID)
	}
	if g.Status != StatusPlaying || !bettingPhase(g.Phase) {
		return newError(KindInvalidAction, "no betting round in progress")
	}
	if g.TurnSeat != seat.Index {
		return newError(KindNotYourTurn, "seat %d to act, not seat %d", g.TurnSeat, seat.Index)
	}

	var moved int64
	switch action {
	case ActionFold:
		seat.Folded = true
		seat.acted = true

	case ActionCheck:
		if g.CurrentBet > seat.CurrentBet {
			return newError(KindCheckFacingBet, "facing a bet of %d", g.CurrentBet)
		}
		seat.acted = true

	case ActionCall:
		n, err := g.validateCall(seat)
		if err != nil {
			return err
		}
		seat.put(n)
		seat.acted = true
		moved = n

	case ActionBet:
		if err := g.validateBet(seat, amount); err != nil {
			return err
		}
		seat.put(amount)
		g.applyAggression(seat, seat.CurrentBet, true)
		moved = amount

	case ActionRaise:
		n, full, err := g.validateRaise(seat, amount)
		if err != nil {
			return err
		}
		seat.put(n)
		g.applyAggression(seat, amount, full)
		moved = n

	case ActionAllIn:
		n, aggressive, full, err := g.validateAllIn(seat)
		if err != nil {
			return err
		}
		seat.put(n)
		if aggressive {
			g.applyAggression(seat, seat.CurrentBet, full)
		} else {
			seat.acted = true
		}
		moved = n

	default:
		return newError(KindInvalidAction, "unknown action %q", action)
	}

	if g.Phase == PhasePreflop && seat.Index == g.bbSeat {
		g.bbOption = false
	}

	g.Actions = append(g.Actions, ActionRecord{
		Seq:        len(g.Actions) + 1,
		HandNumber: g.HandNumber,
		Seat:       seat.Index,
		PlayerID:   seat.PlayerID,
		Action:     action,
		Amount:     moved,
		Phase:      g.Phase,
		At:         g.now(),
	})

	g.advance(seat.Index)
	return nil
}

func (g *Game) validateCall(seat *Seat) (int64, error) {
	if g.CurrentBet <= seat.CurrentBet {
		return 0, newError(KindInvalidAction, "nothing to call, check instead")
	}
	// calling short of the full amount puts the seat all-in
	return min64(g.CurrentBet-seat.CurrentBet, seat.Stack), nil
}

func (g *Game) validateBet(seat *Seat, amount int64) error {
	if g.CurrentBet != 0 {
		return newError(KindInvalidAction, "facing a bet of %d, raise instead", g.CurrentBet)
	}
	if amount < g.Table.BigBlind {
		return newError(KindBetBelowMin, "bet %d below minimum %d", amount, g.Table.BigBlind)
	}
	if amount > seat.Stack {
		return newError(KindInsufficientStack, "bet %d exceeds stack %d", amount, seat.Stack)
	}
	return nil
}

// validateRaise checks a raise to the given total street amount and
// returns the chips to move plus whether the raise is full-sized. An
// all-in short of the minimum raise is legal but does not reopen the
// betting, and a seat the betting was never reopened for cannot raise.
func (g *Game) validateRaise(seat *Seat, to int64) (int64, bool, error) {
	if g.CurrentBet == 0 {
		return 0, false, newError(KindInvalidAction, "no bet to raise, bet instead")
	}
	if seat.acted {
		return 0, false, newError(KindInvalidAction, "betting was not reopened for seat %d", seat.Index)
	}
	if to <= g.CurrentBet {
		return 0, false, newError(KindRaiseBelowMin, "raise to %d must exceed current bet %d", to, g.CurrentBet)
	}
	need := to - seat.CurrentBet
	if need > seat.Stack {
		return 0, false, newError(KindInsufficientStack, "raise to %d needs %d, stack is %d", to, need, seat.Stack)
	}
	minTo := g.CurrentBet + g.lastRaise
	if to < minTo {
		if need < seat.Stack {
			return 0, false, newError(KindRaiseBelowMin, "raise to %d below minimum %d", to, minTo)
		}
		// undersized all-in raise
		return need, false, nil
	}
	return need, true, nil
}

// validateAllIn resolves the ALL_IN shorthand into a bet, raise or call
// for the whole stack.
func (g *Game) validateAllIn(seat *Seat) (n int64, aggressive, full bool, err error) {
	if g.CurrentBet == 0 {
		if err := g.validateBet(seat, seat.Stack); err != nil {
			return 0, false, false, err
		}
		return seat.Stack, true, true, nil
	}
	to := seat.CurrentBet + seat.Stack
	if to <= g.CurrentBet {
		// short call for the rest of the stack
		return seat.Stack, false, false, nil
	}
	n, full, err = g.validateRaise(seat, to)
	if err != nil {
		return 0, false, false, err
	}
	return n, true, full, nil
}

// applyAggression records a bet or raise to the given street total. A
// full raise resets everyone else's acted flag, reopening the betting;
// an undersized all-in raise only lifts the bet level.
func (g *Game) applyAggression(seat *Seat, to int64, full bool) {
	if full {
		g.lastRaise = to - g.CurrentBet
		g.lastAggressor = seat.Index
		for _, s := range g.seats {
			if s != seat {
				s.acted = false
			}
		}
	}
	g.CurrentBet = to
	g.bbOption = false
	seat.acted = true
}

// advance moves the hand forward after an accepted action.
func (g *Game) advance(actedSeat int) {
	contesting := 0
	for _, s := range g.seats {
		if s.Contesting() {
			contesting++
		}
	}
	if contesting == 1 {
		g.settleFoldWin()
		return
	}
	if g.roundComplete() {
		g.closeRound()
		return
	}
	g.TurnSeat = g.nextSeat(actedSeat, (*Seat).CanAct).Index
}

// roundComplete reports whether the street's betting is settled: every
// seat able to act has matched the bet level and acted since the last
// full raise, and the big blind has had its preflop option.
func (g *Game) roundComplete() bool {
	if g.Phase == PhasePreflop && g.bbOption {
		if bb := g.seatAt(g.bbSeat); bb != nil && bb.CanAct() {
			return false
		}
	}
	for _, s := range g.seats {
		if !s.CanAct() {
			continue
		}
		if s.CurrentBet < g.CurrentBet || !s.acted {
			return false
		}
	}
	return true
}

// closeRound sweeps street bets and deals forward. When fewer than two
// seats can still act the remaining streets run out without betting.
func (g *Game) closeRound() {
	for {
		for _, s := range g.seats {
			s.CurrentBet = 0
			s.acted = false
		}
		g.CurrentBet = 0
		g.lastRaise = g.Table.BigBlind
		g.lastAggressor = -1
		g.bbOption = false

		if g.Phase == PhaseRiver {
			g.settleShowdown()
			return
		}

		if err := g.deck.Burn(); err != nil {
			panic("game: deck exhausted burning")
		}
		n := 1
		next := PhaseTurn
		switch g.Phase {
		case PhasePreflop:
			n, next = 3, PhaseFlop
		case PhaseFlop:
			next = PhaseTurn
		case PhaseTurn:
			next = PhaseRiver
		}
		cards, err := g.deck.Deal(n)
		if err != nil {
			panic("game: deck exhausted dealing board")
		}
		g.Board = append(g.Board, cards...)
		g.Phase = next

		actors := 0
		for _, s := range g.seats {
			if s.CanAct() {
				actors++
			}
		}
		if actors >= 2 {
			g.TurnSeat = g.nextSeat(g.DealerSeat, (*Seat).CanAct).Index
			return
		}
		g.TurnSeat = -1
	}
}

// settleFoldWin awards the pot to the last seat standing. Nothing is
// revealed.
func (g *Game) settleFoldWin() {
	var winner *Seat
	for _, s := range g.seats {
		if s.Contesting() {
			winner = s
		}
	}

	uncalledSeat, refund := returnUncalled(g.seats)

	var pot int64
	for _, s := range g.seats {
		pot += s.TotalBet
	}
	winner.Stack += pot

	g.Winner = &WinnerInfo{
		Reason:     WinReasonAllFolded,
		HandNumber: g.HandNumber,
		Board:      append([]deck.Card(nil), g.Board...),
		Pots:       []PotResult{{Amount: pot, Winners: []int{winner.Index}}},
		Winners: []SeatWin{{
			Seat:     winner.Index,
			PlayerID: winner.PlayerID,
			Amount:   pot,
		}},
	}
	if refund > 0 {
		g.Winner.UncalledSeat = uncalledSeat
		g.Winner.UncalledAmount = refund
	}
	g.finishHand(map[int]int64{winner.Index: pot})
}

// settleShowdown evaluates the contesting hands, builds the pots and
// pays them out.
func (g *Game) settleShowdown() {
	g.Phase = PhaseShowdown

	uncalledSeat, refund := returnUncalled(g.seats)

	values := make(map[int]evaluator.HandValue)
	for _, s := range g.seats {
		if s.Contesting() {
			s.Shown = true
			values[s.Index] = evaluator.Evaluate(append(append([]deck.Card(nil), s.HoleCards...), g.Board...))
		}
	}

	pots := buildPots(g.seats)
	payouts := make(map[int]int64)
	potResults := make([]PotResult, 0, len(pots))
	for _, pot := range pots {
		var winners []int
		var best evaluator.HandValue
		for _, idx := range pot.Eligible {
			v := values[idx]
			switch {
			case len(winners) == 0:
				best, winners = v, []int{idx}
			default:
				if c := evaluator.Compare(v, best); c > 0 {
					best, winners = v, []int{idx}
				} else if c == 0 {
					winners = append(winners, idx)
				}
			}
		}
		for seatIdx, amt := range splitPot(pot.Amount, winners, g.DealerSeat, g.Table.MaxSeats) {
			payouts[seatIdx] += amt
			g.seatAt(seatIdx).Stack += amt
		}
		potResults = append(potResults, PotResult{Amount: pot.Amount, Winners: winners})
	}

	wins := make([]SeatWin, 0, len(payouts))
	for idx, amt := range payouts {
		seat := g.seatAt(idx)
		wins = append(wins, SeatWin{
			Seat:      idx,
			PlayerID:  seat.PlayerID,
			Amount:    amt,
			HandName:  values[idx].Category.String(),
			BestFive:  values[idx].Best,
			HoleCards: seat.HoleCards,
		})
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i].Seat < wins[j].Seat })

	g.Winner = &WinnerInfo{
		Reason:     WinReasonShowdown,
		HandNumber: g.HandNumber,
		Board:      append([]deck.Card(nil), g.Board...),
		Pots:       potResults,
		Winners:    wins,
	}
	if refund > 0 {
		g.Winner.UncalledSeat = uncalledSeat
		g.Winner.UncalledAmount = refund
	}
	g.finishHand(payouts)
}

// finishHand records the hand history and returns the table to the
// inter-hand break. Hole cards shown at showdown stay visible until the
// next deal.
func (g *Game) finishHand(payouts map[int]int64) {
	contributions := make(map[int]int64)
	for _, s := range g.seats {
		if s.TotalBet > 0 {
			contributions[s.Index] = s.TotalBet
		}
	}

	g.Histories = append(g.Histories, HandHistory{
		HandNumber:    g.HandNumber,
		DealerSeat:    g.DealerSeat,
		DeckSeed:      g.DeckSeed,
		Board:         append([]deck.Card(nil), g.Board...),
		Contributions: contributions,
		Payouts:       payouts,
		Winner:        *g.Winner,
		PlayedAt:      g.now(),
	})

	for _, s := range g.seats {
		s.CurrentBet = 0
		s.TotalBet = 0
		s.acted = false
	}
	g.CurrentBet = 0
	g.lastAggressor = -1
	g.TurnSeat = -1
	g.Phase = PhaseWaitingForPlayers
}

// Ready marks a seat ready for the next hand. Repeated calls during the
// same break are no-ops. The bool reports whether anything changed.
func (g *Game) Ready(playerID string) (bool, error) {
	seat := g.SeatOf(playerID)
	if seat == nil {
		return false, newError(KindInvalidAction, "player %s is not seated", playerID)
	}
	if seat.CashedOut {
		return false, newError(KindAlreadyCashedOut, "player %s has cashed out", playerID)
	}
	if g.Status != StatusPlaying || g.Phase != PhaseWaitingForPlayers {
		return false, newError(KindInvalidAction, "no hand break in progress")
	}
	if seat.Ready && seat.ReadyHand == g.HandNumber {
		return false, nil
	}
	seat.Ready = true
	seat.ReadyHand = g.HandNumber
	return true, nil
}

// AllReady reports whether every seat still in the game is ready for the
// next hand.
func (g *Game) AllReady() bool {
	any := false
	for _, s := range g.seats {
		if s.CashedOut {
			continue
		}
		any = true
		if !s.Ready || s.ReadyHand != g.HandNumber {
			return false
		}
	}
	return any
}

// ForceReady readies every remaining seat, used when the break timer
// expires. Returns whether anything changed.
func (g *Game) ForceReady() bool {
	if g.Status != StatusPlaying || g.Phase != PhaseWaitingForPlayers {
		return false
	}
	changed := false
	for _, s := range g.seats {
		if s.CashedOut {
			continue
		}
		if !s.Ready || s.ReadyHand != g.HandNumber {
			s.Ready = true
			s.ReadyHand = g.HandNumber
			changed = true
		}
	}
	return changed
}

// CashOut freezes the seat's stack and turns the player into a
// spectator. Disallowed while the seat is contesting a hand. Repeated
// calls are no-ops; the bool reports whether anything changed.
func (g *Game) CashOut(playerID string) (bool, error) {
	seat := g.SeatOf(playerID)
	if seat == nil {
		return false, newError(KindInvalidAction, "player %s is not seated", playerID)
	}
	if seat.CashedOut {
		return false, nil
	}
	if seat.Contesting() && bettingPhase(g.Phase) {
		return false, newError(KindCashOutDuringHand, "hand %d is in progress", g.HandNumber)
	}

	seat.CashedOut = true
	seat.FinalStack = seat.Stack
	seat.Stack = 0
	seat.Ready = false

	if g.allCashedOut() {
		g.finishGame()
	}
	return true, nil
}

// BuyBackIn returns a cashed-out player to active play with a fresh
// buy-in. The frozen final stack is released to the bankroll; the
// coordinator applies the credit and the new debit together.
func (g *Game) BuyBackIn(playerID string, amount int64) (released int64, err error) {
	seat := g.SeatOf(playerID)
	if seat == nil {
		return 0, newError(KindInvalidAction, "player %s is not seated", playerID)
	}
	if !seat.CashedOut {
		if seat.reboughtHand == g.HandNumber {
			// repeat of a buy-back this break
			return 0, nil
		}
		return 0, newError(KindNotCashedOut, "player %s has not cashed out", playerID)
	}
	if g.Status == StatusFinished {
		return 0, newError(KindGameNotWaiting, "game is finished")
	}
	if amount < g.Table.MinBuyIn || amount > g.Table.MaxBuyIn {
		return 0, newError(KindBuyInOutOfRange, "buy-in %d outside %d-%d", amount, g.Table.MinBuyIn, g.Table.MaxBuyIn)
	}

	released = seat.FinalStack
	seat.Banked += seat.FinalStack
	seat.FinalStack = 0
	seat.Invested += amount
	seat.Stack = amount
	seat.CashedOut = false
	seat.Ready = false
	seat.reboughtHand = g.HandNumber
	return released, nil
}

// Leave releases the seat. Only legal while cashed out; the returned
// amount is the frozen stack to credit back to the player's bankroll.
func (g *Game) Leave(playerID string) (int64, error) {
	seat := g.SeatOf(playerID)
	if seat == nil {
		return 0, newError(KindInvalidAction, "player %s is not seated", playerID)
	}
	if !seat.CashedOut {
		return 0, newError(KindNotCashedOut, "cash out before leaving")
	}

	credit := seat.FinalStack
	seat.Banked += seat.FinalStack
	seat.FinalStack = 0

	g.departed = append(g.departed, SummaryEntry{
		Seat:     seat.Index,
		PlayerID: seat.PlayerID,
		Invested: seat.Invested,
		Returned: seat.Banked,
		WinLoss:  seat.Banked - seat.Invested,
	})

	for i, s := range g.seats {
		if s == seat {
			g.seats = append(g.seats[:i], g.seats[i+1:]...)
			break
		}
	}
	return credit, nil
}

func (g *Game) allCashedOut() bool {
	if len(g.seats) == 0 {
		return false
	}
	for _, s := range g.seats {
		if !s.CashedOut {
			return false
		}
	}
	return true
}

// finishGame computes the final accounting. Entries cover departed
// players too and sum to zero by construction.
func (g *Game) finishGame() {
	g.Status = StatusFinished

	entries := append([]SummaryEntry(nil), g.departed...)
	for _, s := range g.seats {
		returned := s.FinalStack + s.Banked
		entries = append(entries, SummaryEntry{
			Seat:     s.Index,
			PlayerID: s.PlayerID,
			Invested: s.Invested,
			Returned: returned,
			WinLoss:  returned - s.Invested,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WinLoss != entries[j].WinLoss {
			return entries[i].WinLoss > entries[j].WinLoss
		}
		return entries[i].Seat < entries[j].Seat
	})

	g.Summary = &Summary{GameID: g.ID, Entries: entries}
}

// SummaryPending reports whether the final summary still needs to be
// broadcast.
func (g *Game) SummaryPending() bool {
	return g.Summary != nil && !g.summarySent
}

// MarkSummarySent records that the summary notification went out.
func (g *Game) MarkSummarySent() {
	g.summarySent = true
}
