package game

import (
	"time"

	"github.com/lox/holdemd/internal/deck"
)

// Win reasons carried in WinnerInfo.
const (
	WinReasonShowdown  = "showdown"
	WinReasonAllFolded = "all_folded"
)

// SeatWin is one seat's winnings for a hand. Hand details are only
// populated when the hand reached showdown; a fold-win reveals nothing.
type SeatWin struct {
	Seat      int         `json:"seat"`
	PlayerID  string      `json:"player_id"`
	Amount    int64       `json:"amount"`
	HandName  string      `json:"hand_name,omitempty"`
	BestFive  []deck.Card `json:"best_five,omitempty"`
	HoleCards []deck.Card `json:"hole_cards,omitempty"`
}

// PotResult records how one pot was awarded.
type PotResult struct {
	Amount  int64 `json:"amount"`
	Winners []int `json:"winners"`
}

// WinnerInfo describes the outcome of the most recent hand.
type WinnerInfo struct {
	Reason         string      `json:"reason"`
	HandNumber     int         `json:"hand_number"`
	Board          []deck.Card `json:"board"`
	Pots           []PotResult `json:"pots"`
	Winners        []SeatWin   `json:"winners"`
	UncalledSeat   int         `json:"uncalled_seat,omitempty"`
	UncalledAmount int64       `json:"uncalled_amount,omitempty"`
}

// HandHistory is the immutable record of a completed hand.
// Contributions and payouts are per seat index and always sum to the
// same total.
type HandHistory struct {
	HandNumber    int           `json:"hand_number"`
	DealerSeat    int           `json:"dealer_seat"`
	DeckSeed      int64         `json:"deck_seed"`
	Board         []deck.Card   `json:"board"`
	Contributions map[int]int64 `json:"contributions"`
	Payouts       map[int]int64 `json:"payouts"`
	Winner        WinnerInfo    `json:"winner"`
	PlayedAt      time.Time     `json:"played_at"`
}

// SummaryEntry is one player's final accounting line. Returned covers
// everything that came back to the player: the frozen final stack plus
// anything already credited to their bankroll.
type SummaryEntry struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Invested int64  `json:"invested"`
	Returned int64  `json:"returned"`
	WinLoss  int64  `json:"win_loss"`
}

// Summary is the end-of-game accounting, produced exactly once when the
// last seat cashes out. Entries are ordered by win/loss descending and
// always sum to zero.
type Summary struct {
	GameID  string         `json:"game_id"`
	Entries []SummaryEntry `json:"entries"`
}
