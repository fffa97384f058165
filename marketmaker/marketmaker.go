// Package marketmaker implements the inventory-aware quoting agent: a
// constant-size two-sided quote whose half-spread widens and whose center
// skews away from mid as inventory builds up, refreshed periodically by
// the scheduler via an atomic cancel-replace.
//
// Grounded on the teacher's spread_capture_bot.go (periodic re-quote
// against the current touch) and on original_source/src/strategies/
// market_maker.py (average-entry-price PnL accounting, constant quote_qty).
package marketmaker

import "fmt"

// Config holds the maker's tunables, spec.md §4.5's mm_half_spread/alpha/
// beta/quote_size/K family. K (the refresh period in events) is owned by
// the scheduler, not the maker, since it governs *when* Quote is called
// rather than *what* it returns.
type Config struct {
	TickSize int64

	// HalfSpreadTicks is the half-spread quoted at zero inventory.
	HalfSpreadTicks int64

	// WidenPerUnit (alpha) adds WidenPerUnit*|inventory| ticks of
	// half-spread as inventory grows in either direction.
	WidenPerUnit float64

	// SkewPerUnit (beta) shifts the quoted center by -SkewPerUnit*inventory
	// ticks, leaning the maker's quotes away from the side it is already
	// long, so it trades back toward flat.
	SkewPerUnit float64

	// QuoteQty is the constant size posted on both sides (Open Question
	// (b) in SPEC_FULL.md: resolved as constant, not inventory-scaled,
	// per market_maker.py's quote_qty).
	QuoteQty int64
}

// MarketMaker tracks inventory, cash, and a running average entry price so
// that fills can be split into realized and unrealized PnL exactly as
// original_source's _update_position does.
type MarketMaker struct {
	cfg     Config
	OwnerID string

	Inventory     int64
	Cash          float64
	AvgEntryPrice float64
	RealizedPnL   float64

	ActiveBidID string
	ActiveAskID string

	nextSeq int64
}

func New(cfg Config, ownerID string) *MarketMaker {
	return &MarketMaker{cfg: cfg, OwnerID: ownerID}
}

func (m *MarketMaker) nextID(prefix string) string {
	m.nextSeq++
	return fmt.Sprintf("%s-%s-%d", ownerTag, prefix, m.nextSeq)
}

const ownerTag = "MM"

// Quote computes the maker's next bid/ask prices (in ticks) around mid,
// given its current inventory. Half-spread widens and the center skews
// with |inventory| and inventory respectively; quote size stays constant.
func (m *MarketMaker) Quote(midTicks float64) (bidPrice, askPrice int64, qty int64) {
	inv := float64(m.Inventory)

	halfSpread := float64(m.cfg.HalfSpreadTicks) + m.cfg.WidenPerUnit*absF(inv)
	skew := -m.cfg.SkewPerUnit * inv

	center := midTicks + skew
	bidPrice = roundTicks(center - halfSpread)
	askPrice = roundTicks(center + halfSpread)

	if askPrice <= bidPrice {
		askPrice = bidPrice + 1
	}

	return bidPrice, askPrice, m.cfg.QuoteQty
}

// NewQuoteIDs mints the order ids for the next cancel-replace cycle.
func (m *MarketMaker) NewQuoteIDs() (bidID, askID string) {
	return m.nextID("B"), m.nextID("A")
}

// OnFill applies a fill of qty contracts at price, signed positive when the
// maker bought (it was hit on its bid) and negative when it sold (it was
// lifted on its ask). Position increases update the average entry price;
// position decreases (including flips) realize PnL on the closed portion
// against the existing average entry price, mirroring
// original_source/src/strategies/market_maker.py's _update_position.
func (m *MarketMaker) OnFill(signedQty int64, price int64) {
	if signedQty == 0 {
		return
	}

	fillPrice := float64(price)
	sameDirection := m.Inventory == 0 ||
		(m.Inventory > 0 && signedQty > 0) ||
		(m.Inventory < 0 && signedQty < 0)

	if sameDirection {
		totalQty := absI(m.Inventory) + absI(signedQty)
		if totalQty > 0 {
			m.AvgEntryPrice = (m.AvgEntryPrice*float64(absI(m.Inventory)) + fillPrice*float64(absI(signedQty))) / float64(totalQty)
		}
		m.Inventory += signedQty
		m.Cash -= float64(signedQty) * fillPrice
		return
	}

	closing := minI(absI(signedQty), absI(m.Inventory))
	if m.Inventory > 0 {
		m.RealizedPnL += float64(closing) * (fillPrice - m.AvgEntryPrice)
	} else {
		m.RealizedPnL += float64(closing) * (m.AvgEntryPrice - fillPrice)
	}

	m.Inventory += signedQty
	m.Cash -= float64(signedQty) * fillPrice

	if m.Inventory == 0 {
		m.AvgEntryPrice = 0
	} else if absI(signedQty) > closing {
		// The fill flipped the position past flat; the new side's entry
		// price is the fill price itself.
		m.AvgEntryPrice = fillPrice
	}
}

// UnrealizedPnL values the open inventory at markPrice.
func (m *MarketMaker) UnrealizedPnL(markPrice int64) float64 {
	if m.Inventory == 0 {
		return 0
	}
	return float64(m.Inventory) * (float64(markPrice) - m.AvgEntryPrice)
}

func roundTicks(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func absI(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
