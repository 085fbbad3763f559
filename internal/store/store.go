// Package store persists games, action logs, hand histories and player
// bankrolls in SQLite. Every accepted command commits its snapshot,
// appended records and bankroll movements in a single transaction, so
// the last committed snapshot is always a consistent view.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/holdemd/internal/game"
)

// ErrInsufficientBankroll indicates a debit larger than the player's
// bankroll.
var ErrInsufficientBankroll = errors.New("store: insufficient bankroll")

// Store wraps the SQLite database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id       TEXT PRIMARY KEY,
		bankroll INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS games (
		id         TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		status     TEXT NOT NULL,
		hand_count INTEGER NOT NULL DEFAULT 0,
		snapshot   TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_games_table ON games(table_name);
	CREATE TABLE IF NOT EXISTS game_actions (
		game_id     TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		hand_number INTEGER NOT NULL,
		seat        INTEGER NOT NULL,
		player_id   TEXT NOT NULL,
		action      TEXT NOT NULL,
		amount      INTEGER NOT NULL,
		phase       TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (game_id, seq)
	);
	CREATE TABLE IF NOT EXISTS hand_histories (
		game_id     TEXT NOT NULL,
		hand_number INTEGER NOT NULL,
		payload     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (game_id, hand_number)
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// EnsurePlayer creates the player row with the given starting bankroll
// if it does not already exist.
func (s *Store) EnsurePlayer(id string, startingBankroll int64) error {
	_, err := s.db.Exec(
		`INSERT INTO players (id, bankroll) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, startingBankroll)
	if err != nil {
		return fmt.Errorf("ensuring player %s: %w", id, err)
	}
	return nil
}

// Bankroll returns the player's bankroll balance.
func (s *Store) Bankroll(id string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT bankroll FROM players WHERE id = ?`, id).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unknown player %s", id)
	}
	if err != nil {
		return 0, fmt.Errorf("reading bankroll for %s: %w", id, err)
	}
	return balance, nil
}

// BankrollDelta moves chips between a player's bankroll and the table.
// Negative amounts are debits (buy-ins), positive are credits.
type BankrollDelta struct {
	PlayerID string
	Amount   int64
}

// CommitCommand writes the effects of one accepted coordinator command
// atomically: bankroll movements, the authoritative snapshot, and any
// newly appended actions and hand histories.
func (s *Store) CommitCommand(snap game.Snapshot, deltas []BankrollDelta, actions []game.ActionRecord, histories []game.HandHistory) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		if err := applyDelta(tx, d); err != nil {
			return err
		}
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO games (id, table_name, status, hand_count, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			hand_count = excluded.hand_count,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		snap.GameID, snap.TableName, string(snap.Status), snap.HandNumber, string(snapJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving game %s: %w", snap.GameID, err)
	}

	for _, a := range actions {
		_, err = tx.Exec(`
			INSERT INTO game_actions (game_id, seq, hand_number, seat, player_id, action, amount, phase, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.GameID, a.Seq, a.HandNumber, a.Seat, a.PlayerID, string(a.Action), a.Amount, string(a.Phase), a.At.UTC())
		if err != nil {
			return fmt.Errorf("appending action %d for game %s: %w", a.Seq, snap.GameID, err)
		}
	}

	for _, hh := range histories {
		payload, err := json.Marshal(hh)
		if err != nil {
			return fmt.Errorf("encoding hand history: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO hand_histories (game_id, hand_number, payload, created_at)
			VALUES (?, ?, ?, ?)`,
			snap.GameID, hh.HandNumber, string(payload), hh.PlayedAt.UTC())
		if err != nil {
			return fmt.Errorf("inserting hand history %d for game %s: %w", hh.HandNumber, snap.GameID, err)
		}
	}

	return tx.Commit()
}

func applyDelta(tx *sql.Tx, d BankrollDelta) error {
	if d.Amount < 0 {
		res, err := tx.Exec(
			`UPDATE players SET bankroll = bankroll + ? WHERE id = ? AND bankroll >= ?`,
			d.Amount, d.PlayerID, -d.Amount)
		if err != nil {
			return fmt.Errorf("debiting %s: %w", d.PlayerID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debiting %s: %w", d.PlayerID, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: player %s needs %d", ErrInsufficientBankroll, d.PlayerID, -d.Amount)
		}
		return nil
	}

	res, err := tx.Exec(`UPDATE players SET bankroll = bankroll + ? WHERE id = ?`, d.Amount, d.PlayerID)
	if err != nil {
		return fmt.Errorf("crediting %s: %w", d.PlayerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("crediting %s: %w", d.PlayerID, err)
	}
	if n == 0 {
		return fmt.Errorf("crediting %s: unknown player", d.PlayerID)
	}
	return nil
}

// LoadSnapshot returns the last committed snapshot for a game, or false
// if the game was never persisted.
func (s *Store) LoadSnapshot(gameID string) (game.Snapshot, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT snapshot FROM games WHERE id = ?`, gameID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, fmt.Errorf("loading game %s: %w", gameID, err)
	}
	var snap game.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return game.Snapshot{}, false, fmt.Errorf("decoding snapshot for %s: %w", gameID, err)
	}
	return snap, true, nil
}

// HandHistories returns a game's hand histories, newest first.
func (s *Store) HandHistories(gameID string) ([]game.HandHistory, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM hand_histories WHERE game_id = ? ORDER BY hand_number DESC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading hand histories for %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []game.HandHistory
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning hand history: %w", err)
		}
		var hh game.HandHistory
		if err := json.Unmarshal([]byte(raw), &hh); err != nil {
			return nil, fmt.Errorf("decoding hand history: %w", err)
		}
		out = append(out, hh)
	}
	return out, rows.Err()
}

// Actions returns a game's action log in sequence order.
func (s *Store) Actions(gameID string) ([]game.ActionRecord, error) {
	rows, err := s.db.Query(`
		SELECT seq, hand_number, seat, player_id, action, amount, phase, created_at
		FROM game_actions WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading actions for %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []game.ActionRecord
	for rows.Next() {
		var a game.ActionRecord
		var action, phase string
		if err := rows.Scan(&a.Seq, &a.HandNumber, &a.Seat, &a.PlayerID, &action, &a.Amount, &phase, &a.At); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		a.Action = game.ActionType(action)
		a.Phase = game.Phase(phase)
		out = append(out, a)
	}
	return out, rows.Err()
}
