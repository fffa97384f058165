package engine

import (
	"container/heap"
	"container/list"
)

// location is the id -> (side, price, node) index that gives Cancel direct
// access to the order's queue position, per spec.md §9's "do not rely on
// scanning" note: an id is never found by walking a level's list.
type location struct {
	side  Side
	price int64
	elem  *list.Element
}

// Book holds the resting bid and ask sides of one symbol's limit order book
// and enforces price-time priority within each level.
//
// Unlike the teacher's OrderBook, Book is a plain synchronous struct with
// no internal goroutine or request channel: the simulation's single-
// threaded cooperative scheduler (see package sim) is the only caller, so
// the actor/channel indirection the teacher uses to make its OrderBook
// safe for concurrent bots would add nothing here and would violate the
// "no operation may suspend" discipline the scheduler relies on.
type Book struct {
	bids levelHeap
	asks levelHeap

	bidLevels map[int64]*PriceLevel
	askLevels map[int64]*PriceLevel

	locations map[string]location

	seq int64

	lastMid    float64
	hasLastMid bool
}

// NewBook constructs an empty order book.
func NewBook() *Book {
	return &Book{
		bids:      levelHeap{isBid: true},
		asks:      levelHeap{isBid: false},
		bidLevels: make(map[int64]*PriceLevel),
		askLevels: make(map[int64]*PriceLevel),
		locations: make(map[string]location),
	}
}

func (b *Book) levelsFor(side Side) (*levelHeap, map[int64]*PriceLevel) {
	if side == Bid {
		return &b.bids, b.bidLevels
	}
	return &b.asks, b.askLevels
}

// nextSeq returns the next global arrival sequence.
func (b *Book) nextSeq() int64 {
	b.seq++
	return b.seq
}

// Insert places order at the tail of its (side, price) level, assigning a
// fresh arrival sequence. It fails with ErrCrossedRest if the order would
// cross the opposite side at rest; marketable orders must be routed
// through the matching engine instead.
func (b *Book) Insert(o *Order) error {
	if o.Side == Bid {
		if price, _, ok := b.BestAsk(); ok && o.Price >= price {
			return ErrCrossedRest
		}
	} else {
		if price, _, ok := b.BestBid(); ok && o.Price <= price {
			return ErrCrossedRest
		}
	}
	b.insertUnchecked(o)
	return nil
}

// insertUnchecked inserts without the crossed-book guard. Used internally
// by the matching engine once it has already walked every crossing level
// and is resting only the non-crossing remainder.
func (b *Book) insertUnchecked(o *Order) {
	o.Seq = b.nextSeq()
	o.Remaining = o.Qty

	heapRef, levels := b.levelsFor(o.Side)
	level, ok := levels[o.Price]
	if !ok {
		level = newPriceLevel(o.Side, o.Price)
		levels[o.Price] = level
		heap.Push(heapRef, level)
	}
	elem := level.pushBack(o)
	b.locations[o.ID] = location{side: o.Side, price: o.Price, elem: elem}
}

// Cancel removes the order from its level's queue and the id index in O(1),
// using the stored list element rather than scanning. It is idempotent:
// cancelling an unknown id returns ErrNotFound and has no side effect on
// the book.
func (b *Book) Cancel(id string) error {
	loc, ok := b.locations[id]
	if !ok {
		return ErrNotFound
	}

	heapRef, levels := b.levelsFor(loc.side)
	level := levels[loc.price]

	level.remove(loc.elem)
	delete(b.locations, id)
	if level.Len() == 0 {
		delete(levels, loc.price)
		heap.Remove(heapRef, level.index)
	}
	return nil
}

// removeFromLevel deletes the order id from level's queue and the book's id
// index in O(1) via the stored list element. Used by the matching engine
// once a maker has been fully consumed; level emptiness is handled by the
// caller, which already holds the heap reference for side.
func (b *Book) removeFromLevel(side Side, level *PriceLevel, id string) {
	loc, ok := b.locations[id]
	if !ok {
		return
	}
	level.remove(loc.elem)
	delete(b.locations, id)
}

// Exists reports whether id is currently resting anywhere in the book.
func (b *Book) Exists(id string) bool {
	_, ok := b.locations[id]
	return ok
}

// BestBid returns the best bid price and its aggregate depth.
func (b *Book) BestBid() (price int64, size int64, ok bool) {
	level := b.bids.peek()
	if level == nil {
		return 0, 0, false
	}
	return level.Price, level.Depth(), true
}

// BestAsk returns the best ask price and its aggregate depth.
func (b *Book) BestAsk() (price int64, size int64, ok bool) {
	level := b.asks.peek()
	if level == nil {
		return 0, 0, false
	}
	return level.Price, level.Depth(), true
}

// Depth returns the aggregate resting quantity at (side, price), 0 if the
// level does not exist.
func (b *Book) Depth(side Side, price int64) int64 {
	_, levels := b.levelsFor(side)
	level, ok := levels[price]
	if !ok {
		return 0
	}
	return level.Depth()
}

// frontMatchable returns the first resting order at the top of level whose
// id differs from takerID, without removing anything. Self-trade is
// prevented by order id (spec: "maker_id != taker_id"), not by owner: ids
// are globally unique to a resting order, so this only ever skips the
// pathological case of an order matching against itself and never treats a
// level as unmatchable just because one agent owns every order resting on
// it.
func frontMatchable(level *PriceLevel, takerID string) (*Order, bool) {
	for e := level.queue.Front(); e != nil; e = e.Next() {
		o := e.Value.(*Order)
		if o.ID != takerID {
			return o, true
		}
	}
	return nil, false
}

// Snapshot returns the top-of-book view. Mid is sticky: when either side is
// empty, it carries the last known mid forward rather than zeroing out.
func (b *Book) Snapshot() BookSnapshot {
	snap := BookSnapshot{}

	if price, size, ok := b.BestBid(); ok {
		snap.HasBid, snap.BidPrice, snap.BidSize = true, price, size
	}
	if price, size, ok := b.BestAsk(); ok {
		snap.HasAsk, snap.AskPrice, snap.AskSize = true, price, size
	}

	if snap.HasBid && snap.HasAsk {
		snap.Mid = float64(snap.BidPrice+snap.AskPrice) / 2.0
		snap.HasMid = true
		b.lastMid = snap.Mid
		b.hasLastMid = true
		snap.Spread = snap.AskPrice - snap.BidPrice
		snap.HasSpread = true
	} else if b.hasLastMid {
		snap.Mid = b.lastMid
		snap.HasMid = true
	}

	return snap
}
