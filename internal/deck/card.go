package deck

import (
	"errors"
	"fmt"
)

// ErrBadCard indicates a card string that does not parse as "<rank><suit>".
var ErrBadCard = errors.New("deck: bad card")

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the canonical single-letter suit code
func (s Suit) String() string {
	switch s {
	case Spades:
		return "S"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	default:
		return "?"
	}
}

// Rank represents a card rank, Two (2) through Ace (14)
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the canonical single-letter rank code (Ten is "T")
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Card represents a playing card. The zero value is not a valid card.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the canonical text form, e.g. "AS" or "TD"
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// MarshalText implements encoding.TextMarshaler so cards serialize as "AS"
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse converts the canonical text form back to a Card. Both "T" and "10"
// are accepted for tens; everything else follows the single-letter codes.
func Parse(s string) (Card, error) {
	if len(s) < 2 || len(s) > 3 {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCard, s)
	}

	rankStr, suitStr := s[:len(s)-1], s[len(s)-1:]

	var rank Rank
	switch rankStr {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		rank = Rank(rankStr[0] - '0')
	case "T", "10":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		return Card{}, fmt.Errorf("%w: unknown rank %q", ErrBadCard, rankStr)
	}

	var suit Suit
	switch suitStr {
	case "S":
		suit = Spades
	case "H":
		suit = Hearts
	case "D":
		suit = Diamonds
	case "C":
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("%w: unknown suit %q", ErrBadCard, suitStr)
	}

	return Card{Rank: rank, Suit: suit}, nil
}

// MustParse is Parse for test fixtures and stacked decks; it panics on error.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Strings formats a slice of cards in canonical text form.
func Strings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
