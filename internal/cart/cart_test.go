package cart

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

var (
	latte = domain.Product{ID: "1", Name: "Latte", Price: decimal.RequireFromString("3.50")}
	mocha = domain.Product{ID: "2", Name: "Mocha", Price: decimal.RequireFromString("5.00")}
	chai  = domain.Product{ID: "3", Name: "Chai", Price: decimal.RequireFromString("4.25")}
)

func TestCart_Add(t *testing.T) {
	t.Run("same product twice yields one line", func(t *testing.T) {
		c := New()
		c.Add(latte)
		c.Add(latte)

		lines := c.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, 2, c.QuantityOf(latte.ID))
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		c := New()
		c.Add(mocha)
		c.Add(latte)
		c.Add(mocha)

		lines := c.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, mocha.ID, lines[0].Product.ID)
		assert.Equal(t, latte.ID, lines[1].Product.ID)
	})
}

func TestCart_Remove(t *testing.T) {
	t.Run("decrements above one", func(t *testing.T) {
		c := New()
		c.Add(latte)
		c.Add(latte)
		c.Remove(latte)

		assert.Equal(t, 1, c.QuantityOf(latte.ID))
	})

	t.Run("drops the line at one", func(t *testing.T) {
		c := New()
		c.Add(latte)
		c.Add(mocha)
		c.Remove(latte)

		assert.Equal(t, 0, c.QuantityOf(latte.ID))
		lines := c.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, mocha.ID, lines[0].Product.ID)
	})

	t.Run("absent product is a no-op", func(t *testing.T) {
		c := New()
		c.Add(latte)
		before := c.Snapshot()

		c.Remove(mocha)

		assert.Equal(t, before, c.Snapshot())
	})

	t.Run("empty cart is a no-op", func(t *testing.T) {
		c := New()
		c.Remove(latte)
		c.Remove(latte)

		assert.True(t, c.IsEmpty())
		assert.Equal(t, 0, c.Totals().Quantity)
	})

	t.Run("reindexes lines after a removal", func(t *testing.T) {
		c := New()
		c.Add(latte)
		c.Add(mocha)
		c.Add(chai)
		c.Remove(latte)
		c.Add(chai)

		assert.Equal(t, 1, c.QuantityOf(mocha.ID))
		assert.Equal(t, 2, c.QuantityOf(chai.ID))
	})
}

func TestCart_AddThenRemoveRestoresState(t *testing.T) {
	for _, p := range []domain.Product{latte, mocha} {
		c := New()
		c.Add(latte)
		c.Add(chai)
		before := c.Snapshot()

		c.Add(p)
		c.Remove(p)

		assert.Equal(t, before, c.Snapshot(), "product %s", p.ID)
	}
}

func TestCart_Totals(t *testing.T) {
	c := New()
	c.Add(latte)
	c.Add(latte)
	c.Add(mocha)

	totals := c.Totals()
	assert.Equal(t, 3, totals.Quantity)
	assert.True(t, decimal.RequireFromString("12.00").Equal(totals.Price), "got %s", totals.Price)

	c.Clear()

	totals = c.Totals()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, totals.Quantity)
	assert.True(t, decimal.Zero.Equal(totals.Price))
}

func TestCart_RandomSequencesKeepTotalsConsistent(t *testing.T) {
	products := []domain.Product{latte, mocha, chai}
	rng := rand.New(rand.NewSource(1))

	c := New()
	for i := 0; i < 2000; i++ {
		p := products[rng.Intn(len(products))]
		if rng.Intn(2) == 0 {
			c.Add(p)
		} else {
			c.Remove(p)
		}

		sum := 0
		seen := make(map[domain.ID]bool)
		for _, l := range c.Lines() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			require.False(t, seen[l.Product.ID], "duplicate line for %s", l.Product.ID)
			seen[l.Product.ID] = true
			sum += l.Quantity
		}
		require.Equal(t, sum, c.Totals().Quantity)
		require.GreaterOrEqual(t, c.Totals().Quantity, 0)
	}
}

func TestCart_SnapshotIsDetached(t *testing.T) {
	c := New()
	c.Add(latte)
	snap := c.Snapshot()

	c.Add(latte)
	c.Add(mocha)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 1, snap.Lines[0].Quantity)
	assert.Equal(t, 1, snap.Totals.Quantity)
	assert.Len(t, snap.LineItems(), 1)
}

func TestCart_ConcurrentAdds(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(latte)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.QuantityOf(latte.ID))
	assert.Equal(t, 1, c.Len())
}
