package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/internal/deck"
)

func TestJoinValidation(t *testing.T) {
	g := New("g-join", testConfig())

	_, err := g.Join("p0", 10)
	assert.Equal(t, KindBuyInOutOfRange, KindOf(err))
	_, err = g.Join("p0", 501)
	assert.Equal(t, KindBuyInOutOfRange, KindOf(err))

	_, err = g.Join("p0", 100)
	require.NoError(t, err)
	_, err = g.Join("p0", 100)
	assert.Equal(t, KindInvalidAction, KindOf(err), "double join")

	for i := 1; i < 6; i++ {
		_, err = g.Join(fmt.Sprintf("p%d", i), 100)
		require.NoError(t, err)
	}
	_, err = g.Join("p6", 100)
	assert.Equal(t, KindTableFull, KindOf(err))
}

func TestJoinTakesLowestFreeSeat(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(31)))
	mustApply(t, g, "p0", ActionFold, 0)
	mustApply(t, g, "p1", ActionFold, 0)

	// p1 cashes out and leaves; the next player takes seat 1
	_, err := g.CashOut("p1")
	require.NoError(t, err)
	_, err = g.Leave("p1")
	require.NoError(t, err)

	seat, err := g.Join("p3", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Index)
}

func TestStartRequirements(t *testing.T) {
	g := New("g-start", testConfig())
	err := g.Start(deck.New(1))
	assert.Equal(t, KindGameNotWaiting, KindOf(err), "no seats")

	_, err = g.Join("p0", 100)
	require.NoError(t, err)
	err = g.Start(deck.New(1))
	assert.Equal(t, KindGameNotWaiting, KindOf(err), "one funded seat is not enough")

	_, err = g.Join("p1", 100)
	require.NoError(t, err)
	require.NoError(t, g.Start(deck.New(1)))

	err = g.Start(deck.New(1))
	assert.Equal(t, KindGameNotWaiting, KindOf(err), "already started")
}

func TestJoinMidHandSitsOut(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(33)))

	seat, err := g.Join("p2", 100)
	require.NoError(t, err)
	assert.False(t, seat.InHand)
	assert.Empty(t, seat.HoleCards)

	mustApply(t, g, "p0", ActionFold, 0)

	// everyone must ready up, including the new seat
	for _, p := range []string{"p0", "p1", "p2"} {
		_, err := g.Ready(p)
		require.NoError(t, err)
	}
	require.True(t, g.CanDeal())
	require.NoError(t, g.NextHand(deck.New(34)))
	assert.True(t, g.SeatOf("p2").InHand)
	assert.Len(t, g.SeatOf("p2").HoleCards, 2)
}

func TestReadyIdempotent(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(35)))
	mustApply(t, g, "p0", ActionFold, 0)

	changed, err := g.Ready("p0")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = g.Ready("p0")
	require.NoError(t, err)
	assert.False(t, changed, "second ready in the same break is a no-op")

	assert.False(t, g.AllReady())
	_, err = g.Ready("p1")
	require.NoError(t, err)
	assert.True(t, g.AllReady())

	// readiness does not leak into the next break
	require.NoError(t, g.NextHand(deck.New(36)))
	mustApply(t, g, "p1", ActionFold, 0)
	assert.False(t, g.AllReady())
}

func TestReadyOutsideBreak(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(37)))

	_, err := g.Ready("p0")
	assert.Equal(t, KindInvalidAction, KindOf(err), "no ready during a hand")
}

func TestForceReady(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(38)))
	mustApply(t, g, "p0", ActionFold, 0)
	mustApply(t, g, "p1", ActionFold, 0)

	_, err := g.Ready("p0")
	require.NoError(t, err)
	require.False(t, g.CanDeal())

	assert.True(t, g.ForceReady())
	assert.True(t, g.CanDeal())
	assert.False(t, g.ForceReady(), "nothing left to force")
}

func TestCashOutDuringHandRejected(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(39)))

	_, err := g.CashOut("p0")
	assert.Equal(t, KindCashOutDuringHand, KindOf(err))

	// a folded seat has no stake in the hand and may cash out while the
	// other two play on
	mustApply(t, g, "p0", ActionFold, 0)
	require.Equal(t, PhasePreflop, g.Phase)
	changed, err := g.CashOut("p0")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestCashOutIdempotent(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(40)))
	mustApply(t, g, "p0", ActionFold, 0)

	changed, err := g.CashOut("p0")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(99), g.SeatOf("p0").FinalStack)
	assert.Zero(t, g.SeatOf("p0").Stack)

	changed, err = g.CashOut("p0")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(99), g.SeatOf("p0").FinalStack, "no double effect")
}

func TestCashedOutSeatCannotAct(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(41)))
	mustApply(t, g, "p0", ActionFold, 0)
	mustApply(t, g, "p1", ActionFold, 0)

	_, err := g.CashOut("p0")
	require.NoError(t, err)

	err = g.Apply("p0", ActionFold, 0)
	assert.Equal(t, KindAlreadyCashedOut, KindOf(err))
	_, err = g.Ready("p0")
	assert.Equal(t, KindAlreadyCashedOut, KindOf(err))

	// the remaining seats play on without the spectator
	_, err = g.Ready("p1")
	require.NoError(t, err)
	_, err = g.Ready("p2")
	require.NoError(t, err)
	assert.True(t, g.CanDeal())
}

func TestBuyBackIn(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(42)))
	mustApply(t, g, "p0", ActionFold, 0)

	_, err := g.BuyBackIn("p0", 100)
	assert.Equal(t, KindNotCashedOut, KindOf(err))

	_, err = g.CashOut("p0")
	require.NoError(t, err)

	_, err = g.BuyBackIn("p0", 10)
	assert.Equal(t, KindBuyInOutOfRange, KindOf(err))

	released, err := g.BuyBackIn("p0", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(99), released, "frozen stack releases to the bankroll")

	seat := g.SeatOf("p0")
	assert.False(t, seat.CashedOut)
	assert.Equal(t, int64(150), seat.Stack)
	assert.Equal(t, int64(250), seat.Invested)
	assert.Equal(t, int64(99), seat.Banked)

	// repeating the buy-back during the same break is a no-op
	released, err = g.BuyBackIn("p0", 150)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, int64(150), seat.Stack)
}

func TestLeaveRequiresCashOut(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(43)))
	mustApply(t, g, "p0", ActionFold, 0)

	_, err := g.Leave("p0")
	assert.Equal(t, KindNotCashedOut, KindOf(err))

	_, err = g.CashOut("p0")
	require.NoError(t, err)
	credit, err := g.Leave("p0")
	require.NoError(t, err)
	assert.Equal(t, int64(99), credit)
	assert.Nil(t, g.SeatOf("p0"))
}

// Scenario: three players buy in for 100; after the hand they cash out
// with 150/80/70 and the summary reconciles to zero.
func TestCashOutSummary(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(stacked("2C 3D 8C 9D AS AD 4C AH KD 5S 4D JC 4H QS")))

	mustApply(t, g, "p0", ActionRaise, 20)
	mustApply(t, g, "p1", ActionCall, 0)
	mustApply(t, g, "p2", ActionCall, 0)
	require.Equal(t, PhaseFlop, g.Phase)

	mustApply(t, g, "p1", ActionCheck, 0)
	mustApply(t, g, "p2", ActionBet, 10)
	mustApply(t, g, "p0", ActionCall, 0)
	mustApply(t, g, "p1", ActionFold, 0)

	for _, phase := range []Phase{PhaseRiver, PhaseWaitingForPlayers} {
		mustApply(t, g, "p2", ActionCheck, 0)
		mustApply(t, g, "p0", ActionCheck, 0)
		require.Equal(t, phase, g.Phase)
	}

	require.Equal(t, int64(150), stackOf(t, g, "p0"))
	require.Equal(t, int64(80), stackOf(t, g, "p1"))
	require.Equal(t, int64(70), stackOf(t, g, "p2"))

	for _, p := range []string{"p0", "p1", "p2"} {
		_, err := g.CashOut(p)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusFinished, g.Status)
	require.NotNil(t, g.Summary)
	require.Len(t, g.Summary.Entries, 3)

	assert.Equal(t, []SummaryEntry{
		{Seat: 0, PlayerID: "p0", Invested: 100, Returned: 150, WinLoss: 50},
		{Seat: 1, PlayerID: "p1", Invested: 100, Returned: 80, WinLoss: -20},
		{Seat: 2, PlayerID: "p2", Invested: 100, Returned: 70, WinLoss: -30},
	}, g.Summary.Entries, "ordered by win/loss descending")

	var total int64
	for _, e := range g.Summary.Entries {
		total += e.WinLoss
	}
	assert.Zero(t, total)

	assert.True(t, g.SummaryPending())
	g.MarkSummarySent()
	assert.False(t, g.SummaryPending())
}

func TestSummaryIncludesDepartedPlayers(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(44)))
	mustApply(t, g, "p0", ActionFold, 0)
	mustApply(t, g, "p1", ActionFold, 0)

	_, err := g.CashOut("p0")
	require.NoError(t, err)
	_, err = g.Leave("p0")
	require.NoError(t, err)

	_, err = g.CashOut("p1")
	require.NoError(t, err)
	_, err = g.CashOut("p2")
	require.NoError(t, err)

	require.Equal(t, StatusFinished, g.Status)
	require.NotNil(t, g.Summary)
	require.Len(t, g.Summary.Entries, 3, "departed players stay in the accounting")

	var total int64
	for _, e := range g.Summary.Entries {
		total += e.WinLoss
	}
	assert.Zero(t, total)
}

func TestJoinAfterFinishRejected(t *testing.T) {
	g := newTestGame(t, 100, 100)
	_, err := g.CashOut("p0")
	require.NoError(t, err)
	_, err = g.CashOut("p1")
	require.NoError(t, err)
	require.Equal(t, StatusFinished, g.Status)

	_, err = g.Join("p2", 100)
	assert.Equal(t, KindGameNotWaiting, KindOf(err))
}

func TestSnapshotMasksHoleCards(t *testing.T) {
	g := newTestGame(t, 100, 100)
	require.NoError(t, g.Start(deck.New(45)))

	snap := g.SnapshotFor("p0")
	require.Len(t, snap.Seats, 2)
	assert.Len(t, snap.Seats[0].HoleCards, 2, "viewer sees own cards")
	assert.Empty(t, snap.Seats[1].HoleCards, "opponent cards are masked")

	spectator := g.SnapshotFor("nobody")
	assert.Empty(t, spectator.Seats[0].HoleCards)
	assert.Empty(t, spectator.Seats[1].HoleCards)

	full := g.Snapshot()
	assert.Len(t, full.Seats[0].HoleCards, 2)
	assert.Len(t, full.Seats[1].HoleCards, 2)
}

func TestShowdownRevealsContestingSeats(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(46)))

	mustApply(t, g, "p0", ActionFold, 0)
	mustApply(t, g, "p1", ActionCall, 0)
	mustApply(t, g, "p2", ActionCheck, 0)
	for i := 0; i < 3; i++ {
		mustApply(t, g, "p1", ActionCheck, 0)
		mustApply(t, g, "p2", ActionCheck, 0)
	}
	require.Equal(t, PhaseWaitingForPlayers, g.Phase)

	snap := g.SnapshotFor("nobody")
	bySeat := map[int]SeatSnapshot{}
	for _, s := range snap.Seats {
		bySeat[s.Index] = s
	}
	assert.Empty(t, bySeat[0].HoleCards, "folded seat stays hidden at showdown")
	assert.Len(t, bySeat[1].HoleCards, 2, "showdown hands stay visible until the next deal")
	assert.Len(t, bySeat[2].HoleCards, 2)

	// new hand hides everything again
	for _, p := range []string{"p0", "p1", "p2"} {
		_, err := g.Ready(p)
		require.NoError(t, err)
	}
	require.NoError(t, g.NextHand(deck.New(47)))
	snap = g.SnapshotFor("nobody")
	for _, s := range snap.Seats {
		assert.Empty(t, s.HoleCards)
	}
}

func TestSnapshotPotMatchesContributions(t *testing.T) {
	g := newTestGame(t, 100, 100, 100)
	require.NoError(t, g.Start(deck.New(48)))

	mustApply(t, g, "p0", ActionCall, 0)
	snap := g.SnapshotFor("")
	var total int64
	for _, s := range snap.Seats {
		total += s.TotalBet
	}
	assert.Equal(t, snap.Pot, total)
	assert.Equal(t, int64(5), snap.Pot)
}
