package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainsAllCards(t *testing.T) {
	d := New(42)
	cards, err := d.Deal(Size)
	require.NoError(t, err)

	seen := make(map[Card]bool)
	for _, c := range cards {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, Size)
}

func TestNewIsDeterministic(t *testing.T) {
	a, err := New(1234).Deal(Size)
	require.NoError(t, err)
	b, err := New(1234).Deal(Size)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := New(1235).Deal(Size)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDealExhaustion(t *testing.T) {
	d := New(7)
	_, err := d.Deal(50)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining())

	_, err = d.Deal(3)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, d.Remaining(), "failed deal must not consume cards")

	_, err = d.Deal(2)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Remaining())

	_, err = d.DealOne()
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, d.Burn(), ErrExhausted)
}

func TestBurnConsumesOneCard(t *testing.T) {
	d := New(99)
	full, err := New(99).Deal(3)
	require.NoError(t, err)

	require.NoError(t, d.Burn())
	next, err := d.DealOne()
	require.NoError(t, err)
	assert.Equal(t, full[1], next, "burn should skip exactly one card")
	assert.Equal(t, Size-2, d.Remaining())
}

func TestNewStacked(t *testing.T) {
	top := []Card{MustParse("AS"), MustParse("KD"), MustParse("2C")}
	d := NewStacked(top...)

	dealt, err := d.Deal(3)
	require.NoError(t, err)
	assert.Equal(t, top, dealt)

	rest, err := d.Deal(Size - 3)
	require.NoError(t, err)

	seen := map[Card]bool{top[0]: true, top[1]: true, top[2]: true}
	for _, c := range rest {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, Size)
}

func TestNewStackedDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewStacked(MustParse("AS"), MustParse("AS"))
	})
}
