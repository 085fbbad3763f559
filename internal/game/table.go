package game

import (
	"fmt"
)

// TableConfig fixes the stakes and seating of a table. Values are
// validated once at construction and never change for the life of a game.
type TableConfig struct {
	Name       string
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
}

// Validate checks the stake structure. The minimum buy-in floor of ten
// big blinds keeps seats deep enough to post both blinds for a few orbits.
func (c TableConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("table %s: max_seats must be 2-10, got %d", c.Name, c.MaxSeats)
	}
	if c.SmallBlind <= 0 {
		return fmt.Errorf("table %s: small_blind must be positive", c.Name)
	}
	if c.BigBlind < c.SmallBlind {
		return fmt.Errorf("table %s: big_blind %d below small_blind %d", c.Name, c.BigBlind, c.SmallBlind)
	}
	if c.MinBuyIn < 10*c.BigBlind {
		return fmt.Errorf("table %s: min_buy_in %d below ten big blinds", c.Name, c.MinBuyIn)
	}
	if c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("table %s: max_buy_in %d below min_buy_in %d", c.Name, c.MaxBuyIn, c.MinBuyIn)
	}
	return nil
}
