package game

import (
	"sort"
)

// Pot is a main or side pot: an amount and the seat indexes still in
// contention for it.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

// buildPots carves the seats' total contributions into a main pot and
// side pots. Contributions are sliced at each distinct all-in level;
// a seat is eligible for a slice if it contributed up to that level and
// has not folded. Folded chips stay in the pots but the folder is never
// eligible. Consecutive slices with identical eligibility merge.
//
// Conservation: the summed pot amounts always equal the summed
// contributions of every seat dealt into the hand.
func buildPots(seats []*Seat) []Pot {
	levels := make([]int64, 0, len(seats))
	seen := make(map[int64]bool)
	for _, s := range seats {
		if s.TotalBet > 0 && !seen[s.TotalBet] {
			seen[s.TotalBet] = true
			levels = append(levels, s.TotalBet)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var prev int64
	for _, level := range levels {
		var amount int64
		var eligible []int
		for _, s := range seats {
			if s.TotalBet > prev {
				contribution := min64(s.TotalBet, level) - prev
				amount += contribution
			}
			if s.Contesting() && s.TotalBet >= level {
				eligible = append(eligible, s.Index)
			}
		}
		prev = level
		if amount == 0 {
			continue
		}
		if n := len(pots); n > 0 && equalInts(pots[n-1].Eligible, eligible) {
			pots[n-1].Amount += amount
			continue
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}
	return pots
}

// returnUncalled refunds the portion of the highest contribution no other
// seat matched. Run before pots are built so an uncalled raise never
// counts as winnings.
func returnUncalled(seats []*Seat) (seatIndex int, refund int64) {
	var top, second int64
	var topSeat *Seat
	topCount := 0
	for _, s := range seats {
		if s.TotalBet > top {
			second = top
			top = s.TotalBet
			topSeat = s
			topCount = 1
		} else if s.TotalBet == top && top > 0 {
			topCount++
		} else if s.TotalBet > second {
			second = s.TotalBet
		}
	}
	if topSeat == nil || topCount > 1 || top == second {
		return -1, 0
	}

	refund = top - second
	topSeat.Stack += refund
	topSeat.TotalBet -= refund
	if topSeat.CurrentBet > refund {
		topSeat.CurrentBet -= refund
	} else {
		topSeat.CurrentBet = 0
	}
	if topSeat.Stack > 0 {
		topSeat.AllIn = false
	}
	return topSeat.Index, refund
}

// splitPot divides amount among the winning seats, handing any odd chips
// one each to the winners earliest in clockwise order from the seat left
// of the dealer.
func splitPot(amount int64, winners []int, dealer, maxSeats int) map[int]int64 {
	share := amount / int64(len(winners))
	remainder := amount % int64(len(winners))

	ordered := make([]int, len(winners))
	copy(ordered, winners)
	sort.Slice(ordered, func(i, j int) bool {
		return clockwiseDistance(dealer, ordered[i], maxSeats) < clockwiseDistance(dealer, ordered[j], maxSeats)
	})

	payouts := make(map[int]int64, len(winners))
	for i, seat := range ordered {
		payouts[seat] = share
		if int64(i) < remainder {
			payouts[seat]++
		}
	}
	return payouts
}

// clockwiseDistance counts seats strictly clockwise from the dealer, so
// dealer+1 is closest and the dealer itself is furthest.
func clockwiseDistance(dealer, seat, maxSeats int) int {
	d := (seat - dealer) % maxSeats
	if d <= 0 {
		d += maxSeats
	}
	return d
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
