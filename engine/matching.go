package engine

import "container/heap"

// MatchingEngine applies incoming events to a Book and produces the trades
// and post-event snapshot those events generate. State machine per event:
// Received -> Validated -> {Matched(trades) | Rested | Cancelled | Rejected},
// terminal in one transition.
type MatchingEngine struct {
	Book *Book

	tradeSeq int64

	// Diagnostic counters. All runtime conditions here are recoverable; the
	// simulation never aborts mid-run over them (see package sim).
	ExhaustedBookCount  int64
	CrossedQuoteCount   int64
	CancelNotFoundCount int64
}

// NewMatchingEngine wraps book in a matching engine.
func NewMatchingEngine(book *Book) *MatchingEngine {
	return &MatchingEngine{Book: book}
}

// Apply dispatches ev to the matching engine and returns the trades it
// produced, in the order makers were consumed, plus the resulting
// top-of-book snapshot.
func (e *MatchingEngine) Apply(ev Event, now int64) ([]Trade, BookSnapshot) {
	var trades []Trade

	switch ev.Kind {
	case EventLimit:
		trades = e.applyLimit(ev, now)
	case EventMarket:
		trades = e.applyMarket(ev, now)
	case EventCancel:
		if err := e.Book.Cancel(ev.CancelID); err != nil {
			e.CancelNotFoundCount++
		}
	case EventQuoteRefresh:
		trades = e.applyQuoteRefresh(ev, now)
	}

	return trades, e.Book.Snapshot()
}

// applyLimit implements marketable-limit semantics: walk the opposite side
// while it crosses, then rest any remainder at the aggressor's own limit
// price (Open Question (a), resolved this way per SPEC_FULL.md).
func (e *MatchingEngine) applyLimit(ev Event, now int64) []Trade {
	order := &Order{ID: ev.OrderID, OwnerID: ev.OwnerID, Side: ev.Side, Price: ev.Price, Qty: ev.Qty, Remaining: ev.Qty}
	trades := e.walk(order, now, true)
	if order.Remaining > 0 {
		order.Qty = order.Remaining
		e.Book.insertUnchecked(order)
	}
	return trades
}

// applyMarket implements market-order semantics: walk ignoring price caps;
// if the opposing book empties before the order fills, the residual is
// dropped and ExhaustedBookCount is incremented.
func (e *MatchingEngine) applyMarket(ev Event, now int64) []Trade {
	order := &Order{ID: ev.OrderID, OwnerID: ev.OwnerID, Side: ev.Side, Qty: ev.Qty, Remaining: ev.Qty}
	trades := e.walk(order, now, false)
	if order.Remaining > 0 {
		e.ExhaustedBookCount++
	}
	return trades
}

// walk consumes resting orders from the opposite side of order.Side,
// strictly from the head of each level's FIFO queue, until order is filled,
// the opposing side no longer crosses (when limited is true), or the book
// on that side is exhausted. Self-trade is prevented by order id, per spec:
// an incoming order can never share its id with a resting one, so this is
// a no-op in practice rather than a filter on the agent that owns the book.
func (e *MatchingEngine) walk(order *Order, now int64, limited bool) []Trade {
	var trades []Trade

	opposite := order.Side.Opposite()
	heapRef, levels := e.Book.levelsFor(opposite)

	for order.Remaining > 0 {
		level := heapRef.peek()
		if level == nil {
			break
		}
		if limited {
			if order.Side == Bid && order.Price < level.Price {
				break
			}
			if order.Side == Ask && order.Price > level.Price {
				break
			}
		}

		maker, ok := frontMatchable(level, order.ID)
		if !ok {
			// Unreachable in practice: order ids are globally unique, so a
			// resting order can never share an id with the incoming order.
			break
		}

		fillQty := minInt64(order.Remaining, maker.Remaining)
		order.Remaining -= fillQty
		maker.Remaining -= fillQty
		level.depth -= fillQty

		e.tradeSeq++
		trades = append(trades, Trade{
			Seq:           e.tradeSeq,
			AggressorSide: order.Side,
			Price:         level.Price,
			Qty:           fillQty,
			MakerOrderID:  maker.ID,
			MakerOwnerID:  maker.OwnerID,
			TakerOrderID:  order.ID,
			TakerOwnerID:  order.OwnerID,
			Timestamp:     now,
		})

		if maker.Remaining == 0 {
			e.Book.removeFromLevel(opposite, level, maker.ID)
		}

		if level.Len() == 0 {
			delete(levels, level.Price)
			heap.Remove(heapRef, level.index)
		}
	}

	return trades
}

// applyQuoteRefresh executes the market maker's atomic cancel-replace:
// cancel(old_bid); cancel(old_ask); insert(new_bid); insert(new_ask), in
// that order. A side whose replacement would cross the opposing book is
// skipped (CrossedQuoteCount increments) while the other side still goes
// in.
func (e *MatchingEngine) applyQuoteRefresh(ev Event, now int64) []Trade {
	_ = e.Book.Cancel(ev.OldBidID)
	_ = e.Book.Cancel(ev.OldAskID)

	if ev.NewBidID != "" && ev.QuoteQty > 0 {
		bidOrder := &Order{ID: ev.NewBidID, OwnerID: ev.QuoteOwnerID, Side: Bid, Price: ev.BidPrice, Qty: ev.QuoteQty, Remaining: ev.QuoteQty}
		if err := e.Book.Insert(bidOrder); err != nil {
			e.CrossedQuoteCount++
		}
	}
	if ev.NewAskID != "" && ev.QuoteQty > 0 {
		askOrder := &Order{ID: ev.NewAskID, OwnerID: ev.QuoteOwnerID, Side: Ask, Price: ev.AskPrice, Qty: ev.QuoteQty, Remaining: ev.QuoteQty}
		if err := e.Book.Insert(askOrder); err != nil {
			e.CrossedQuoteCount++
		}
	}

	// Cancel-replace never matches; it only rearranges the maker's own
	// resting quotes.
	return nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
