package server

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/gameid"
	"github.com/lox/holdemd/internal/store"
)

func testTableConfig() game.TableConfig {
	return game.TableConfig{
		Name:       "main",
		MaxSeats:   6,
		SmallBlind: 1,
		BigBlind:   2,
		MinBuyIn:   20,
		MaxBuyIn:   500,
	}
}

// newTestCoordinator returns a running coordinator over a temp store
// and a mocked clock.
func newTestCoordinator(t *testing.T) (*Coordinator, *quartz.Mock) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "holdemd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard)
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(logger, metrics)
	mock := quartz.NewMock(t)

	g := game.New(gameid.New(), testTableConfig())
	coord := NewCoordinator(g, st, hub, logger, mock, metrics, 30*time.Second, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go coord.Run(ctx)

	return coord, mock
}

func TestJoinDebitsBankroll(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	snap, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	assert.Len(t, snap.Seats, 1)

	balance, err := coord.store.Bankroll("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestJoinRejectedBeyondBankroll(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	coord.defaultBankroll = 50
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.True(t, game.IsKind(err, game.KindBuyInOutOfRange), "got %v", err)

	// the failed join must not have debited anything
	balance, err := coord.store.Bankroll("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestStartAndFoldHand(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)

	snap, err := coord.Start(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusPlaying, snap.Status)
	assert.Equal(t, game.PhasePreflop, snap.Phase)

	// heads-up: the dealer posted the small blind and acts first
	snap, err = coord.Action(ctx, "p1", game.ActionFold, 0)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseWaitingForPlayers, snap.Phase)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, game.WinReasonAllFolded, snap.Winner.Reason)
}

func TestReadyDealsWhenEveryoneAgrees(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)
	_, err = coord.Start(ctx, "p1")
	require.NoError(t, err)
	_, err = coord.Action(ctx, "p1", game.ActionFold, 0)
	require.NoError(t, err)

	_, err = coord.Ready(ctx, "p1")
	require.NoError(t, err)
	snap, err := coord.Ready(ctx, "p2")
	require.NoError(t, err)

	assert.Equal(t, 2, snap.HandNumber, "second ready deals the next hand")
	assert.Equal(t, game.PhasePreflop, snap.Phase)
}

func TestReadyTimeoutForcesNextHand(t *testing.T) {
	coord, mock := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)
	_, err = coord.Start(ctx, "p1")
	require.NoError(t, err)
	_, err = coord.Action(ctx, "p1", game.ActionFold, 0)
	require.NoError(t, err)

	// only one seat readies; the timer covers the rest
	_, err = coord.Ready(ctx, "p1")
	require.NoError(t, err)

	mock.Advance(30 * time.Second).MustWait(ctx)

	snap, err := coord.Snapshot(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.HandNumber)
	assert.Equal(t, game.PhasePreflop, snap.Phase)
}

func TestBuyBackInMovesBankrollOnce(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)

	_, err = coord.CashOut(ctx, "p1")
	require.NoError(t, err)

	// frozen 100 comes back to the bankroll, 50 goes onto the table
	_, err = coord.BuyBackIn(ctx, "p1", 50)
	require.NoError(t, err)
	balance, err := coord.store.Bankroll("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(950), balance)

	// a repeated buy-back this break must not move money again
	_, err = coord.BuyBackIn(ctx, "p1", 50)
	require.NoError(t, err)
	balance, err = coord.store.Bankroll("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(950), balance)
}

func TestLeaveCreditsBankroll(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)

	_, err = coord.Leave(ctx, "p1")
	require.Error(t, err, "leave requires a prior cash-out")

	_, err = coord.CashOut(ctx, "p1")
	require.NoError(t, err)
	snap, err := coord.Leave(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, snap.Seats, 1)

	balance, err := coord.store.Bankroll("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestFinishMarksSummarySent(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)

	_, err = coord.CashOut(ctx, "p1")
	require.NoError(t, err)
	snap, err := coord.CashOut(ctx, "p2")
	require.NoError(t, err)

	assert.Equal(t, game.StatusFinished, snap.Status)
	require.NotNil(t, snap.Summary)
	assert.False(t, coord.game.SummaryPending(), "summary broadcast exactly once")
}

func TestQueueOverflowRejectedBusy(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "holdemd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard)
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(logger, metrics)

	g := game.New(gameid.New(), testTableConfig())
	// not running: the queue fills and stays full
	coord := NewCoordinator(g, st, hub, logger, quartz.NewMock(t), metrics, 30*time.Second, 1000)
	for i := 0; i < commandQueueSize; i++ {
		coord.cmds <- &command{kind: cmdSnapshot}
	}

	_, err = coord.Snapshot(context.Background(), "")
	assert.True(t, game.IsKind(err, game.KindTableBusy))
}

func TestPersistFailureHaltsTable(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.Join(ctx, "p1", 100)
	require.NoError(t, err)
	_, err = coord.Join(ctx, "p2", 100)
	require.NoError(t, err)
	_, err = coord.Start(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, coord.store.Close())

	_, err = coord.Action(ctx, "p1", game.ActionFold, 0)
	require.Error(t, err)
	assert.Equal(t, game.ErrorKind(""), game.KindOf(err), "persistence failure is not an engine rejection")

	_, err = coord.Ready(ctx, "p1")
	assert.True(t, game.IsKind(err, game.KindTableBusy), "halted table rejects further commands")
}
