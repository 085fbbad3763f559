package game

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable machine-readable rejection code. Kinds are part of
// the API contract: clients switch on them and they never change meaning.
type ErrorKind string

const (
	KindNotYourTurn       ErrorKind = "NOT_YOUR_TURN"
	KindInvalidAction     ErrorKind = "INVALID_ACTION"
	KindInsufficientStack ErrorKind = "INSUFFICIENT_STACK"
	KindBetBelowMin       ErrorKind = "BET_BELOW_MIN"
	KindRaiseBelowMin     ErrorKind = "RAISE_BELOW_MIN"
	KindCheckFacingBet    ErrorKind = "CHECK_WHEN_FACING_BET"
	KindCashOutDuringHand ErrorKind = "CASH_OUT_DURING_HAND"
	KindAlreadyCashedOut  ErrorKind = "ALREADY_CASHED_OUT"
	KindNotCashedOut      ErrorKind = "NOT_CASHED_OUT"
	KindBuyInOutOfRange   ErrorKind = "BUY_IN_OUT_OF_RANGE"
	KindGameNotWaiting    ErrorKind = "GAME_NOT_WAITING"
	KindTableFull         ErrorKind = "TABLE_FULL"
	KindTableBusy         ErrorKind = "TABLE_BUSY"
	KindGameNotFound      ErrorKind = "GAME_NOT_FOUND"
	KindDeckExhausted     ErrorKind = "DECK_EXHAUSTED"
	KindBadCard           ErrorKind = "BAD_CARD"
)

// Error is a rejected operation. State is never mutated when one is
// returned.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, or "" if the error did not
// originate in the engine.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
