package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_KnownTiers(t *testing.T) {
	assert.Equal(t, 2, For(Silver).MaxOffers)
	assert.Equal(t, 10, For(Gold).MaxOffers)
	assert.Equal(t, 30, For(Platinum).MaxOffers)
}

func TestFor_UnknownFallsBackToEntry(t *testing.T) {
	for _, name := range []string{"", "Diamond", "gold", "free"} {
		p := For(name)
		assert.Equal(t, Entry, p.Name, "name=%q", name)
		assert.Equal(t, 2, p.MaxOffers, "name=%q", name)
	}
}

func TestAll_StrictlyIncreasingQuotas(t *testing.T) {
	plans := All()
	assert.Len(t, plans, 3)
	for i := 1; i < len(plans); i++ {
		assert.Greater(t, plans[i].MaxOffers, plans[i-1].MaxOffers)
	}
}

func TestBillingFor(t *testing.T) {
	gold, ok := BillingFor(Gold)
	assert.True(t, ok)
	assert.Equal(t, int64(50000), gold.Amount)
	assert.Equal(t, "INR", gold.Currency)

	platinum, ok := BillingFor(Platinum)
	assert.True(t, ok)
	assert.Equal(t, int64(150000), platinum.Amount)

	_, ok = BillingFor(Silver)
	assert.False(t, ok, "entry tier is not purchasable")

	_, ok = BillingFor("Diamond")
	assert.False(t, ok)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(Gold))
	assert.False(t, Known("gold"))
}
