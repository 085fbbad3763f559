package game

import (
	"time"
)

// ActionType is a betting action submitted by a seat.
type ActionType string

const (
	ActionFold  ActionType = "FOLD"
	ActionCheck ActionType = "CHECK"
	ActionCall  ActionType = "CALL"
	ActionBet   ActionType = "BET"
	ActionRaise ActionType = "RAISE"
	ActionAllIn ActionType = "ALL_IN"
)

// ParseActionType validates a wire-format action name.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn:
		return ActionType(s), nil
	}
	return "", newError(KindInvalidAction, "unknown action %q", s)
}

// ActionRecord is one accepted betting action, appended to the game's
// ordered log. Seq is contiguous from 1 across the whole game.
type ActionRecord struct {
	Seq        int        `json:"seq"`
	HandNumber int        `json:"hand_number"`
	Seat       int        `json:"seat"`
	PlayerID   string     `json:"player_id"`
	Action     ActionType `json:"action"`
	// Amount is the chips moved into the pot by this action (not the
	// to-level). Zero for folds and checks.
	Amount int64     `json:"amount"`
	Phase  Phase     `json:"phase"`
	At     time.Time `json:"at"`
}
