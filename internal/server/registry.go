package server

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemd/internal/game"
	"github.com/lox/holdemd/internal/gameid"
	"github.com/lox/holdemd/internal/store"
)

// Registry tracks every live game and which one each configured table
// is currently running. A table always has exactly one current game;
// when that game finishes, the next join rotates in a fresh one.
// Finished games stay addressable until the process exits so clients
// can still fetch summaries and hand histories.
type Registry struct {
	cfg     Config
	store   *store.Store
	hub     *Hub
	logger  *log.Logger
	clock   quartz.Clock
	metrics *Metrics

	ctx context.Context
	wg  sync.WaitGroup

	mu      sync.Mutex
	byGame  map[string]*Coordinator
	byTable map[string]*Coordinator
}

// NewRegistry builds a registry for the configured tables.
func NewRegistry(cfg Config, st *store.Store, hub *Hub, logger *log.Logger, clock quartz.Clock, metrics *Metrics) *Registry {
	return &Registry{
		cfg:     cfg,
		store:   st,
		hub:     hub,
		logger:  logger,
		clock:   clock,
		metrics: metrics,
		byGame:  make(map[string]*Coordinator),
		byTable: make(map[string]*Coordinator),
	}
}

// Start spins up one game per configured table. Coordinators run until
// ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	r.ctx = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.cfg.Tables {
		r.spawnLocked(t)
	}
}

// Wait blocks until every coordinator has stopped.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// spawnLocked creates a fresh game for the table and starts its
// coordinator. Caller holds r.mu.
func (r *Registry) spawnLocked(t TableConfig) *Coordinator {
	id := gameid.New()
	g := game.New(id, t.GameConfig())
	coord := NewCoordinator(g, r.store, r.hub, r.logger, r.clock, r.metrics,
		r.cfg.Server.ReadyTimeout(), r.cfg.Server.StartingBankroll)

	r.byGame[id] = coord
	r.byTable[t.Name] = coord

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		coord.Run(r.ctx)
	}()

	r.logger.Info("table opened", "table", t.Name, "game", id)
	return coord
}

// Game looks up a coordinator by game id.
func (r *Registry) Game(gameID string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coord, ok := r.byGame[gameID]
	return coord, ok
}

// Current returns the table's current coordinator.
func (r *Registry) Current(table string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coord, ok := r.byTable[table]
	return coord, ok
}

// JoinTable seats the player at the table's current game, rotating in
// a fresh game first if the current one has finished.
func (r *Registry) JoinTable(ctx context.Context, table, playerID string, buyIn int64) (game.Snapshot, error) {
	coord, err := r.currentOrRotate(ctx, table)
	if err != nil {
		return game.Snapshot{}, err
	}
	return coord.Join(ctx, playerID, buyIn)
}

func (r *Registry) currentOrRotate(ctx context.Context, table string) (*Coordinator, error) {
	r.mu.Lock()
	coord, ok := r.byTable[table]
	r.mu.Unlock()
	if !ok {
		return nil, &game.Error{Kind: game.KindGameNotFound, Message: "no such table"}
	}

	snap, err := coord.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	if snap.Status != game.StatusFinished {
		return coord, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another join may have rotated while we were unlocked
	if current := r.byTable[table]; current != coord {
		return current, nil
	}
	var tc TableConfig
	for _, t := range r.cfg.Tables {
		if t.Name == table {
			tc = t
			break
		}
	}
	return r.spawnLocked(tc), nil
}

// TableInfo is the listing row for one configured table.
type TableInfo struct {
	Name       string `json:"name"`
	GameID     string `json:"game_id"`
	Status     string `json:"status"`
	Players    int    `json:"players"`
	MaxSeats   int    `json:"max_seats"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
	MinBuyIn   int64  `json:"min_buy_in"`
	MaxBuyIn   int64  `json:"max_buy_in"`
}

// Tables describes every configured table and its current game.
func (r *Registry) Tables(ctx context.Context) ([]TableInfo, error) {
	out := make([]TableInfo, 0, len(r.cfg.Tables))
	for _, t := range r.cfg.Tables {
		coord, ok := r.Current(t.Name)
		if !ok {
			continue
		}
		snap, err := coord.Snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, TableInfo{
			Name:       t.Name,
			GameID:     snap.GameID,
			Status:     string(snap.Status),
			Players:    len(snap.Seats),
			MaxSeats:   t.MaxSeats,
			SmallBlind: t.SmallBlind,
			BigBlind:   t.BigBlind,
			MinBuyIn:   t.MinBuyIn,
			MaxBuyIn:   t.MaxBuyIn,
		})
	}
	return out, nil
}
