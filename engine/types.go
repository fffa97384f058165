// Package engine implements a price-time-priority limit order book and the
// matching engine that applies incoming events to it.
package engine

import "fmt"

// Side is one of the two trading directions.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is a resting limit order. Price is in integer ticks. Seq is the
// arrival_sequence assigned by the book at acceptance and is the sole
// tiebreaker within a price level.
type Order struct {
	ID        string
	OwnerID   string
	Side      Side
	Price     int64
	Qty       int64 // original size at acceptance
	Remaining int64
	Seq       int64
}

func (o *Order) String() string {
	return fmt.Sprintf("{id:%s owner:%s side:%s price:%d remaining:%d seq:%d}",
		o.ID, o.OwnerID, o.Side, o.Price, o.Remaining, o.Seq)
}

// Trade records one maker consumed by one aggressor fill.
type Trade struct {
	Seq           int64
	AggressorSide Side
	Price         int64
	Qty           int64
	MakerOrderID  string
	MakerOwnerID  string
	TakerOrderID  string
	TakerOwnerID  string
	Timestamp     int64
}

// BookSnapshot is the top-of-book view returned after every event. Mid is
// sticky: when one or both sides are empty, it holds the last known mid
// rather than a zero value.
type BookSnapshot struct {
	HasBid    bool
	BidPrice  int64
	BidSize   int64
	HasAsk    bool
	AskPrice  int64
	AskSize   int64
	Mid       float64
	HasMid    bool
	Spread    int64
	HasSpread bool
}
