// Package evaluator ranks poker hands. Evaluate accepts five to seven
// cards and returns the strongest five-card hand they contain, together
// with enough tiebreak information to totally order any two hands.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/lox/holdemd/internal/deck"
)

// Category is a hand category, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = map[Category]string{
	HighCard:      "High Card",
	OnePair:       "One Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// HandValue is the evaluated strength of a hand. Tiebreak holds ranks in
// descending order of significance for the category, so two values of the
// same category compare lexicographically. Best is the winning five cards.
type HandValue struct {
	Category Category
	Tiebreak []deck.Rank
	Best     []deck.Card
}

// Evaluate returns the best five-card hand within cards. It requires
// between five and seven cards and panics otherwise; callers deal fixed
// hand shapes so a bad length is a programming error, not input.
func Evaluate(cards []deck.Card) HandValue {
	if len(cards) < 5 || len(cards) > 7 {
		panic(fmt.Sprintf("evaluator: expected 5-7 cards, got %d", len(cards)))
	}

	best := HandValue{Category: -1}
	combo := make([]deck.Card, 5)
	var pick func(start, n int)
	pick = func(start, n int) {
		if n == 5 {
			v := evaluate5(combo)
			if best.Category < 0 || Compare(v, best) > 0 {
				best = v
			}
			return
		}
		for i := start; i <= len(cards)-(5-n); i++ {
			combo[n] = cards[i]
			pick(i+1, n+1)
		}
	}
	pick(0, 0)
	return best
}

// Compare returns -1, 0 or 1 as a is weaker than, equal to, or stronger
// than b. Equal means the hands split a pot.
func Compare(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := range a.Tiebreak {
		if i >= len(b.Tiebreak) {
			break
		}
		if a.Tiebreak[i] != b.Tiebreak[i] {
			if a.Tiebreak[i] < b.Tiebreak[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// evaluate5 ranks exactly five cards.
func evaluate5(cards []deck.Card) HandValue {
	sorted := make([]deck.Card, 5)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	straightHigh, straight := straightHighCard(sorted)

	counts := map[deck.Rank]int{}
	for _, c := range sorted {
		counts[c.Rank]++
	}
	// Group ranks by multiplicity, then by rank, both descending. The
	// grouped order is exactly the tiebreak order for count-based hands.
	ranks := make([]deck.Rank, 0, len(counts))
	for r := range counts {
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if counts[ranks[i]] != counts[ranks[j]] {
			return counts[ranks[i]] > counts[ranks[j]]
		}
		return ranks[i] > ranks[j]
	})

	v := HandValue{Best: sorted}

	switch {
	case straight && flush:
		v.Category = StraightFlush
		v.Tiebreak = []deck.Rank{straightHigh}
		v.Best = straightOrder(sorted, straightHigh)
	case counts[ranks[0]] == 4:
		v.Category = FourOfAKind
		v.Tiebreak = ranks
		v.Best = groupOrder(sorted, ranks)
	case counts[ranks[0]] == 3 && counts[ranks[1]] == 2:
		v.Category = FullHouse
		v.Tiebreak = ranks
		v.Best = groupOrder(sorted, ranks)
	case flush:
		v.Category = Flush
		v.Tiebreak = rankList(sorted)
	case straight:
		v.Category = Straight
		v.Tiebreak = []deck.Rank{straightHigh}
		v.Best = straightOrder(sorted, straightHigh)
	case counts[ranks[0]] == 3:
		v.Category = ThreeOfAKind
		v.Tiebreak = ranks
		v.Best = groupOrder(sorted, ranks)
	case counts[ranks[0]] == 2 && counts[ranks[1]] == 2:
		v.Category = TwoPair
		v.Tiebreak = ranks
		v.Best = groupOrder(sorted, ranks)
	case counts[ranks[0]] == 2:
		v.Category = OnePair
		v.Tiebreak = ranks
		v.Best = groupOrder(sorted, ranks)
	default:
		v.Category = HighCard
		v.Tiebreak = rankList(sorted)
	}

	return v
}

// straightHighCard reports whether the five descending-sorted cards form a
// straight and returns its high card. The wheel (A-5-4-3-2) ranks as
// five-high; straights never wrap around.
func straightHighCard(sorted []deck.Card) (deck.Rank, bool) {
	run := true
	for i := 1; i < 5; i++ {
		if sorted[i].Rank != sorted[i-1].Rank-1 {
			run = false
			break
		}
	}
	if run {
		return sorted[0].Rank, true
	}

	if sorted[0].Rank == deck.Ace &&
		sorted[1].Rank == deck.Five &&
		sorted[2].Rank == deck.Four &&
		sorted[3].Rank == deck.Three &&
		sorted[4].Rank == deck.Two {
		return deck.Five, true
	}
	return 0, false
}

func rankList(cards []deck.Card) []deck.Rank {
	out := make([]deck.Rank, len(cards))
	for i, c := range cards {
		out[i] = c.Rank
	}
	return out
}

// groupOrder reorders the five cards so the highest-multiplicity group
// comes first, e.g. quads before the kicker, trips before the pair.
func groupOrder(sorted []deck.Card, ranks []deck.Rank) []deck.Card {
	out := make([]deck.Card, 0, 5)
	for _, r := range ranks {
		for _, c := range sorted {
			if c.Rank == r {
				out = append(out, c)
			}
		}
	}
	return out
}

// straightOrder puts the straight's cards high to low, with the ace last
// when it plays low in the wheel.
func straightOrder(sorted []deck.Card, high deck.Rank) []deck.Card {
	if high == deck.Five && sorted[0].Rank == deck.Ace {
		out := make([]deck.Card, 5)
		copy(out, sorted[1:])
		out[4] = sorted[0]
		return out
	}
	return sorted
}
