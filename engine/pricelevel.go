package engine

import "container/list"

// PriceLevel is a FIFO queue of resting orders at one (side, price). The
// queue is strictly ordered by increasing arrival sequence; depth is the
// sum of the remaining quantities of its orders.
type PriceLevel struct {
	Side  Side
	Price int64
	depth int64
	queue *list.List // of *Order, front = earliest arrival
	index int        // position in the owning levelHeap, maintained by heap.Interface
}

func newPriceLevel(side Side, price int64) *PriceLevel {
	return &PriceLevel{Side: side, Price: price, queue: list.New()}
}

// Depth returns the aggregate resting quantity at this level.
func (l *PriceLevel) Depth() int64 { return l.depth }

// Len returns the number of resting orders at this level.
func (l *PriceLevel) Len() int { return l.queue.Len() }

func (l *PriceLevel) pushBack(o *Order) *list.Element {
	l.depth += o.Remaining
	return l.queue.PushBack(o)
}

func (l *PriceLevel) remove(elem *list.Element) {
	o := elem.Value.(*Order)
	l.depth -= o.Remaining
	l.queue.Remove(elem)
}

// levelHeap is a container/heap of *PriceLevel ordered so the best price is
// always at the root: descending for bids, ascending for asks. Grounded on
// the teacher's container/heap price-time queue, generalized from "heap of
// orders" to "heap of price levels" to give PriceLevel a concrete identity.
type levelHeap struct {
	levels []*PriceLevel
	isBid  bool
}

func (h *levelHeap) Len() int { return len(h.levels) }

func (h *levelHeap) Less(i, j int) bool {
	if h.isBid {
		return h.levels[i].Price > h.levels[j].Price
	}
	return h.levels[i].Price < h.levels[j].Price
}

func (h *levelHeap) Swap(i, j int) {
	h.levels[i], h.levels[j] = h.levels[j], h.levels[i]
	h.levels[i].index = i
	h.levels[j].index = j
}

func (h *levelHeap) Push(x any) {
	level := x.(*PriceLevel)
	level.index = len(h.levels)
	h.levels = append(h.levels, level)
}

func (h *levelHeap) Pop() any {
	old := h.levels
	n := len(old)
	level := old[n-1]
	level.index = -1
	h.levels = old[:n-1]
	return level
}

func (h *levelHeap) peek() *PriceLevel {
	if len(h.levels) == 0 {
		return nil
	}
	return h.levels[0]
}
