package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertRejectsCrossedRest(t *testing.T) {
	book := NewBook()
	require.NoError(t, book.Insert(&Order{ID: "a1", OwnerID: "alice", Side: Bid, Price: 100, Qty: 5}))

	err := book.Insert(&Order{ID: "a2", OwnerID: "bob", Side: Ask, Price: 100, Qty: 5})
	assert.ErrorIs(t, err, ErrCrossedRest)
}

func TestFIFOWithinPriceLevel(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "maker-1", OwnerID: "alice", Side: Bid, Price: 100, Qty: 10}))
	require.NoError(t, book.Insert(&Order{ID: "maker-2", OwnerID: "bob", Side: Bid, Price: 100, Qty: 10}))

	trades, _ := engine.Apply(Event{
		Kind: EventMarket, OrderID: "taker-1", OwnerID: "carol", Side: Ask, Qty: 15,
	}, 1)

	require.Len(t, trades, 2)
	assert.Equal(t, "maker-1", trades[0].MakerOrderID)
	assert.Equal(t, int64(10), trades[0].Qty)
	assert.Equal(t, "maker-2", trades[1].MakerOrderID)
	assert.Equal(t, int64(5), trades[1].Qty)
}

// Self-trade prevention is keyed on order id, not owner: ids are globally
// unique to a resting order, so an incoming order from the same owner as a
// resting maker still matches against it in FIFO order. This mirrors
// original_source/src/lob/book.py's _match, which performs no owner check.
func TestSameOwnerOrdersStillMatchByFIFO(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "maker-first", OwnerID: "carol", Side: Bid, Price: 100, Qty: 10}))
	require.NoError(t, book.Insert(&Order{ID: "maker-second", OwnerID: "bob", Side: Bid, Price: 100, Qty: 10}))

	trades, _ := engine.Apply(Event{
		Kind: EventMarket, OrderID: "taker-1", OwnerID: "carol", Side: Ask, Qty: 5,
	}, 1)

	require.Len(t, trades, 1)
	assert.Equal(t, "maker-first", trades[0].MakerOrderID)
	assert.True(t, book.Exists("maker-second"))
}

// When every resting order at the best level shares the taker's owner, the
// level is still fully matchable: self-trade prevention is by order id
// (a practical no-op), not by owner, so this must not be mistaken for book
// exhaustion.
func TestWholeLevelOwnedByAggressorStillMatches(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "maker-1", OwnerID: "FLOW", Side: Ask, Price: 100, Qty: 4}))
	require.NoError(t, book.Insert(&Order{ID: "maker-2", OwnerID: "FLOW", Side: Ask, Price: 100, Qty: 4}))

	trades, _ := engine.Apply(Event{
		Kind: EventMarket, OrderID: "taker-1", OwnerID: "FLOW", Side: Bid, Qty: 6,
	}, 1)

	require.Len(t, trades, 2)
	assert.Equal(t, int64(4), trades[0].Qty)
	assert.Equal(t, int64(2), trades[1].Qty)
	assert.Equal(t, int64(0), engine.ExhaustedBookCount)
}

func TestMarketableLimitRestsRemainderAtOwnPrice(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "maker-1", OwnerID: "alice", Side: Ask, Price: 100, Qty: 4}))

	trades, _ := engine.Apply(Event{
		Kind: EventLimit, OrderID: "taker-1", OwnerID: "bob", Side: Bid, Price: 101, Qty: 10,
	}, 1)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(100), trades[0].Price)

	bidPrice, bidSize, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(101), bidPrice)
	assert.Equal(t, int64(6), bidSize)
}

func TestMarketOrderExhaustsBook(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "maker-1", OwnerID: "alice", Side: Ask, Price: 100, Qty: 3}))

	trades, snap := engine.Apply(Event{
		Kind: EventMarket, OrderID: "taker-1", OwnerID: "bob", Side: Bid, Qty: 10,
	}, 1)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(3), trades[0].Qty)
	assert.Equal(t, int64(1), engine.ExhaustedBookCount)
	assert.False(t, snap.HasAsk)
}

func TestCancelUnknownIDIsIdempotentNoOp(t *testing.T) {
	book := NewBook()
	err := book.Cancel("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteRefreshSkipsCrossingSideButPostsTheOther(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "resting-ask", OwnerID: "alice", Side: Ask, Price: 99, Qty: 5}))

	_, _ = engine.Apply(Event{
		Kind:         EventQuoteRefresh,
		NewBidID:     "mm-bid-1",
		NewAskID:     "mm-ask-1",
		BidPrice:     100, // crosses the resting ask at 99
		AskPrice:     105,
		QuoteQty:     10,
		QuoteOwnerID: "MM",
	}, 1)

	assert.False(t, book.Exists("mm-bid-1"))
	assert.True(t, book.Exists("mm-ask-1"))
	assert.Equal(t, int64(1), engine.CrossedQuoteCount)
}

// Scenario 1 from spec.md §8: empty book, single limit bid 100@10.
func TestScenarioEmptyBookSingleLimitBid(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	trades, _ := engine.Apply(Event{
		Kind: EventLimit, OrderID: "b1", OwnerID: "alice", Side: Bid, Price: 100, Qty: 10,
	}, 1)

	assert.Empty(t, trades)
	price, size, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(100), price)
	assert.Equal(t, int64(10), size)
}

// Scenario 2 from spec.md §8: two asks at 101 (A size 5 first, B size 5),
// incoming market buy size 7 fills A fully then B partially; B's residual
// is 3 and ExhaustedBook is not triggered.
func TestScenarioMarketBuyAcrossTwoMakersAtSameLevel(t *testing.T) {
	book := NewBook()
	engine := NewMatchingEngine(book)

	require.NoError(t, book.Insert(&Order{ID: "A", OwnerID: "alice", Side: Ask, Price: 101, Qty: 5}))
	require.NoError(t, book.Insert(&Order{ID: "B", OwnerID: "bob", Side: Ask, Price: 101, Qty: 5}))

	trades, _ := engine.Apply(Event{
		Kind: EventMarket, OrderID: "taker-1", OwnerID: "carol", Side: Bid, Qty: 7,
	}, 1)

	require.Len(t, trades, 2)
	assert.Equal(t, "A", trades[0].MakerOrderID)
	assert.Equal(t, int64(5), trades[0].Qty)
	assert.Equal(t, "B", trades[1].MakerOrderID)
	assert.Equal(t, int64(2), trades[1].Qty)
	assert.Equal(t, int64(3), book.Depth(Ask, 101))
	assert.Equal(t, int64(0), engine.ExhaustedBookCount)
}

// Round-trip property from spec.md §8: insert then cancel on the same id
// with no intervening match returns depth to its prior value.
func TestRoundTripInsertCancelRestoresDepth(t *testing.T) {
	book := NewBook()
	require.NoError(t, book.Insert(&Order{ID: "x1", OwnerID: "alice", Side: Bid, Price: 100, Qty: 5}))
	before := book.Depth(Bid, 100)

	require.NoError(t, book.Insert(&Order{ID: "x2", OwnerID: "bob", Side: Bid, Price: 100, Qty: 7}))
	require.NoError(t, book.Cancel("x2"))

	assert.Equal(t, before, book.Depth(Bid, 100))
}

func TestStickyMidCarriesForwardWhenOneSideEmpties(t *testing.T) {
	book := NewBook()
	require.NoError(t, book.Insert(&Order{ID: "b1", OwnerID: "alice", Side: Bid, Price: 99, Qty: 5}))
	require.NoError(t, book.Insert(&Order{ID: "a1", OwnerID: "bob", Side: Ask, Price: 101, Qty: 5}))

	snap := book.Snapshot()
	require.True(t, snap.HasMid)
	assert.Equal(t, 100.0, snap.Mid)

	require.NoError(t, book.Cancel("a1"))
	snap = book.Snapshot()
	assert.True(t, snap.HasMid)
	assert.False(t, snap.HasAsk)
	assert.Equal(t, 100.0, snap.Mid)
}
