package deck

import (
	"errors"
	"fmt"

	"github.com/lox/holdemd/internal/randutil"
)

// ErrExhausted indicates a deal or burn past the 52nd card.
var ErrExhausted = errors.New("deck: exhausted")

// Size is the number of cards in a standard deck
const Size = 52

// Deck is a shuffled 52-card deck with a deal cursor. It is not safe for
// concurrent use; each hand owns its own deck.
type Deck struct {
	cards  [Size]Card
	cursor int
	seed   int64
}

// New returns a deck shuffled deterministically from seed using
// Fisher-Yates over a PCG stream. The same seed always yields the same
// card order, which is what hand replay relies on.
func New(seed int64) *Deck {
	d := &Deck{seed: seed}
	i := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = Card{Rank: rank, Suit: suit}
			i++
		}
	}

	rng := randutil.New(seed)
	for i := Size - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

// NewShuffled returns a deck shuffled from a CSPRNG-drawn seed.
func NewShuffled() *Deck {
	return New(randutil.CryptoSeed())
}

// NewStacked returns a deck that deals the given cards first, in order,
// followed by the rest of the 52 in canonical order. Duplicates panic.
// Used by tests and replays that need known boards.
func NewStacked(top ...Card) *Deck {
	d := &Deck{}
	seen := make(map[Card]bool, len(top))
	i := 0
	for _, c := range top {
		if seen[c] {
			panic(fmt.Sprintf("deck: duplicate stacked card %s", c))
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := Card{Rank: rank, Suit: suit}
			if !seen[c] {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}

// Seed returns the seed the deck was shuffled from. Zero for stacked decks.
func (d *Deck) Seed() int64 {
	return d.seed
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return Size - d.cursor
}

// Deal removes and returns the next n cards
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || d.cursor+n > Size {
		return nil, fmt.Errorf("%w: %d requested, %d remaining", ErrExhausted, n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.cursor:d.cursor+n])
	d.cursor += n
	return cards, nil
}

// DealOne removes and returns the next card
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Burn discards the next card unseen
func (d *Deck) Burn() error {
	if d.cursor >= Size {
		return fmt.Errorf("%w: burn with %d remaining", ErrExhausted, d.Remaining())
	}
	d.cursor++
	return nil
}
