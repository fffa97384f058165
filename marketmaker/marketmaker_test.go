package marketmaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		TickSize:        1,
		HalfSpreadTicks: 2,
		WidenPerUnit:    0.1,
		SkewPerUnit:     0.05,
		QuoteQty:        10,
	}
}

func TestQuoteWidensWithInventory(t *testing.T) {
	mm := New(testConfig(), "MM")

	bidFlat, askFlat, _ := mm.Quote(1000)
	flatSpread := askFlat - bidFlat

	mm.Inventory = 50
	bidLong, askLong, _ := mm.Quote(1000)
	longSpread := askLong - bidLong

	assert.Greater(t, longSpread, flatSpread)
}

func TestQuoteSkewsAwayFromInventory(t *testing.T) {
	mm := New(testConfig(), "MM")
	mm.Inventory = 50 // long, so the maker should lean its quotes lower to sell

	bid, ask, _ := mm.Quote(1000)
	assert.Less(t, (bid+ask)/2, int64(1000))
}

func TestOnFillTracksAverageEntryAndRealizedPnL(t *testing.T) {
	mm := New(testConfig(), "MM")

	mm.OnFill(10, 100) // buys 10 @ 100
	assert.Equal(t, int64(10), mm.Inventory)
	assert.Equal(t, 100.0, mm.AvgEntryPrice)

	mm.OnFill(10, 110) // buys 10 more @ 110, averaging up
	assert.Equal(t, int64(20), mm.Inventory)
	assert.InDelta(t, 105.0, mm.AvgEntryPrice, 0.001)

	mm.OnFill(-15, 120) // sells 15 @ 120, closing part of the position
	assert.Equal(t, int64(5), mm.Inventory)
	assert.InDelta(t, 225.0, mm.RealizedPnL, 0.001) // 15 * (120 - 105)
}

// Scenario 4 from spec.md §8: ref=100, inventory +3, alpha=1, beta=1,
// h_base=1 -> half-spread=4, skew=-3, bid at 100-3-4=93, ask at 100-3+4=101.
func TestScenarioQuoteRefreshWithInventory(t *testing.T) {
	mm := New(Config{
		TickSize:        1,
		HalfSpreadTicks: 1,
		WidenPerUnit:    1,
		SkewPerUnit:     1,
		QuoteQty:        5,
	}, "MM")
	mm.Inventory = 3

	bid, ask, qty := mm.Quote(100)
	assert.Equal(t, int64(93), bid)
	assert.Equal(t, int64(101), ask)
	assert.Equal(t, int64(5), qty)
}

func TestOnFillFlipPastFlatResetsEntryPrice(t *testing.T) {
	mm := New(testConfig(), "MM")

	mm.OnFill(10, 100)
	mm.OnFill(-15, 110) // closes the long and opens a 5-unit short

	assert.Equal(t, int64(-5), mm.Inventory)
	assert.Equal(t, 110.0, mm.AvgEntryPrice)
}
