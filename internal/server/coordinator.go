package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemd/internal/deck"
	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/store"
)

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdStart
	cmdAction
	cmdReady
	cmdCashOut
	cmdBuyBackIn
	cmdLeave
	cmdSnapshot
	cmdForceReady
)

type command struct {
	kind     commandKind
	playerID string
	action   game.ActionType
	amount   int64
	viewer   string
	reply    chan result
}

type result struct {
	snap game.Snapshot
	err  error
}

// commandQueueSize bounds the per-table command queue; overflow is
// rejected with TABLE_BUSY rather than queueing unboundedly.
const commandQueueSize = 32

// Coordinator owns one game and is its single writer. All mutations
// flow through a bounded command channel drained by Run; each accepted
// command validates, mutates, persists and broadcasts before the next
// one is looked at. Reads go through the same channel so a snapshot is
// never torn.
type Coordinator struct {
	game    *game.Game
	store   *store.Store
	hub     *Hub
	logger  *log.Logger
	clock   quartz.Clock
	metrics *Metrics
	newDeck func() *deck.Deck

	readyTimeout    time.Duration
	defaultBankroll int64

	cmds chan *command
	done chan struct{}

	// state below is only touched from the Run goroutine
	readyTimer         *quartz.Timer
	persistedActions   int
	persistedHistories int
	halted             bool
}

// NewCoordinator wires a coordinator around a fresh game.
func NewCoordinator(g *game.Game, st *store.Store, hub *Hub, logger *log.Logger, clock quartz.Clock, metrics *Metrics, readyTimeout time.Duration, defaultBankroll int64) *Coordinator {
	return &Coordinator{
		game:            g,
		store:           st,
		hub:             hub,
		logger:          logger.WithPrefix("coordinator").With("game", g.ID, "table", g.Table.Name),
		clock:           clock,
		metrics:         metrics,
		newDeck:         deck.NewShuffled,
		readyTimeout:    readyTimeout,
		defaultBankroll: defaultBankroll,
		cmds:            make(chan *command, commandQueueSize),
		done:            make(chan struct{}),
	}
}

// GameID returns the coordinated game's identifier.
func (c *Coordinator) GameID() string {
	return c.game.ID
}

// TableName returns the table this coordinator runs.
func (c *Coordinator) TableName() string {
	return c.game.Table.Name
}

// Run drains the command queue until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	defer c.stopReadyTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmds:
			c.handle(cmd)
		}
	}
}

// Join seats a player, debiting their bankroll for the buy-in.
func (c *Coordinator) Join(ctx context.Context, playerID string, buyIn int64) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdJoin, playerID: playerID, amount: buyIn})
}

// Start deals the first hand.
func (c *Coordinator) Start(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdStart, playerID: playerID})
}

// Action applies a betting action.
func (c *Coordinator) Action(ctx context.Context, playerID string, action game.ActionType, amount int64) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdAction, playerID: playerID, action: action, amount: amount})
}

// Ready marks the player ready for the next hand.
func (c *Coordinator) Ready(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdReady, playerID: playerID})
}

// CashOut freezes the player's stack.
func (c *Coordinator) CashOut(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdCashOut, playerID: playerID})
}

// BuyBackIn returns a cashed-out player to play.
func (c *Coordinator) BuyBackIn(ctx context.Context, playerID string, amount int64) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdBuyBackIn, playerID: playerID, amount: amount})
}

// Leave releases the player's seat and credits their bankroll.
func (c *Coordinator) Leave(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdLeave, playerID: playerID})
}

// Snapshot returns the game as seen by viewer.
func (c *Coordinator) Snapshot(ctx context.Context, viewer string) (game.Snapshot, error) {
	return c.submit(ctx, &command{kind: cmdSnapshot, viewer: viewer})
}

// IsMember reports whether the player holds a seat, for stream
// authorization.
func (c *Coordinator) IsMember(ctx context.Context, playerID string) (bool, error) {
	snap, err := c.Snapshot(ctx, "")
	if err != nil {
		return false, err
	}
	for _, s := range snap.Seats {
		if s.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (c *Coordinator) submit(ctx context.Context, cmd *command) (game.Snapshot, error) {
	cmd.reply = make(chan result, 1)
	select {
	case c.cmds <- cmd:
	default:
		c.metrics.CommandsRejected.WithLabelValues(string(game.KindTableBusy)).Inc()
		return game.Snapshot{}, &game.Error{Kind: game.KindTableBusy, Message: "table command queue is full"}
	}

	select {
	case r := <-cmd.reply:
		return r.snap, r.err
	case <-c.done:
		return game.Snapshot{}, &game.Error{Kind: game.KindTableBusy, Message: "table is shutting down"}
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) handle(cmd *command) {
	if cmd.kind == cmdSnapshot {
		c.reply(cmd, c.game.SnapshotFor(cmd.viewer), nil)
		return
	}
	if c.halted {
		c.reply(cmd, game.Snapshot{}, &game.Error{Kind: game.KindTableBusy, Message: "table halted pending operator intervention"})
		return
	}

	var deltas []store.BankrollDelta
	var err error

	switch cmd.kind {
	case cmdJoin:
		deltas, err = c.handleJoin(cmd)

	case cmdStart:
		err = c.game.Start(c.newDeck())
		if err == nil {
			c.stopReadyTimer()
			c.logger.Info("game started", "hand", c.game.HandNumber, "player", cmd.playerID)
		}

	case cmdAction:
		err = c.game.Apply(cmd.playerID, cmd.action, cmd.amount)
		if err == nil {
			c.metrics.ActionsTotal.WithLabelValues(c.game.Table.Name).Inc()
		}

	case cmdReady:
		var changed bool
		changed, err = c.game.Ready(cmd.playerID)
		if err == nil && changed && !c.game.AllReady() && c.readyTimer == nil {
			c.startReadyTimer()
		}

	case cmdForceReady:
		if !c.game.ForceReady() {
			return
		}
		c.readyTimer = nil
		c.logger.Info("ready timeout expired, forcing remaining seats ready", "hand", c.game.HandNumber)

	case cmdCashOut:
		_, err = c.game.CashOut(cmd.playerID)

	case cmdBuyBackIn:
		deltas, err = c.handleBuyBackIn(cmd)

	case cmdLeave:
		var credit int64
		credit, err = c.game.Leave(cmd.playerID)
		if err == nil && credit > 0 {
			deltas = append(deltas, store.BankrollDelta{PlayerID: cmd.playerID, Amount: credit})
		}
	}

	if err != nil {
		if kind := game.KindOf(err); kind != "" {
			c.metrics.CommandsRejected.WithLabelValues(string(kind)).Inc()
		}
		c.reply(cmd, game.Snapshot{}, err)
		return
	}

	// a ready or cash-out may have made the table dealable
	if c.game.CanDeal() {
		c.stopReadyTimer()
		if dealErr := c.game.NextHand(c.newDeck()); dealErr != nil {
			c.logger.Error("failed to deal next hand", "error", dealErr)
		} else {
			c.logger.Info("dealt next hand", "hand", c.game.HandNumber)
		}
	}
	if c.game.Status == game.StatusFinished {
		c.stopReadyTimer()
	}

	if persistErr := c.persist(deltas); persistErr != nil {
		c.halted = true
		c.logger.Error("persistence failed, halting table", "error", persistErr)
		c.reply(cmd, game.Snapshot{}, persistErr)
		return
	}

	c.hub.BroadcastUpdate(c.game.ID, func(viewer string) any {
		return c.game.SnapshotFor(viewer)
	})
	if c.game.SummaryPending() {
		c.hub.BroadcastSummary(c.game.ID, c.game.Summary)
		c.game.MarkSummarySent()
		c.logger.Info("game finished, summary broadcast", "hands", c.game.HandNumber)
	}

	c.reply(cmd, c.game.SnapshotFor(cmd.playerID), nil)
}

func (c *Coordinator) handleJoin(cmd *command) ([]store.BankrollDelta, error) {
	if err := c.store.EnsurePlayer(cmd.playerID, c.defaultBankroll); err != nil {
		return nil, err
	}
	balance, err := c.store.Bankroll(cmd.playerID)
	if err != nil {
		return nil, err
	}
	if balance < cmd.amount {
		return nil, &game.Error{Kind: game.KindBuyInOutOfRange, Message: "buy-in exceeds bankroll"}
	}
	if _, err := c.game.Join(cmd.playerID, cmd.amount); err != nil {
		return nil, err
	}
	c.logger.Info("player joined", "player", cmd.playerID, "buy_in", cmd.amount)
	return []store.BankrollDelta{{PlayerID: cmd.playerID, Amount: -cmd.amount}}, nil
}

func (c *Coordinator) handleBuyBackIn(cmd *command) ([]store.BankrollDelta, error) {
	seat := c.game.SeatOf(cmd.playerID)
	applies := seat != nil && seat.CashedOut
	if applies {
		balance, err := c.store.Bankroll(cmd.playerID)
		if err != nil {
			return nil, err
		}
		// the frozen stack is credited back as part of the rebuy
		if balance+seat.FinalStack < cmd.amount {
			return nil, &game.Error{Kind: game.KindBuyInOutOfRange, Message: "buy-in exceeds bankroll"}
		}
	}

	released, err := c.game.BuyBackIn(cmd.playerID, cmd.amount)
	if err != nil {
		return nil, err
	}
	if !applies {
		// repeat of an already-applied buy-back, money has moved once
		return nil, nil
	}
	return []store.BankrollDelta{
		{PlayerID: cmd.playerID, Amount: released},
		{PlayerID: cmd.playerID, Amount: -cmd.amount},
	}, nil
}

// persist commits the snapshot plus anything appended since the last
// successful commit.
func (c *Coordinator) persist(deltas []store.BankrollDelta) error {
	newActions := c.game.Actions[c.persistedActions:]
	newHistories := c.game.Histories[c.persistedHistories:]

	if err := c.store.CommitCommand(c.game.Snapshot(), deltas, newActions, newHistories); err != nil {
		return err
	}

	c.persistedActions = len(c.game.Actions)
	if n := len(newHistories); n > 0 {
		c.metrics.HandsTotal.WithLabelValues(c.game.Table.Name).Add(float64(n))
	}
	c.persistedHistories = len(c.game.Histories)
	return nil
}

func (c *Coordinator) startReadyTimer() {
	c.readyTimer = c.clock.AfterFunc(c.readyTimeout, func() {
		cmd := &command{kind: cmdForceReady}
		select {
		case c.cmds <- cmd:
		case <-c.done:
		}
	})
}

func (c *Coordinator) stopReadyTimer() {
	if c.readyTimer != nil {
		c.readyTimer.Stop()
		c.readyTimer = nil
	}
}

func (c *Coordinator) reply(cmd *command, snap game.Snapshot, err error) {
	if cmd.reply == nil {
		return
	}
	cmd.reply <- result{snap: snap, err: err}
}
