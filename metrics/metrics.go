// Package metrics accumulates the per-trade and per-event records a
// simulation run produces into the aggregate statistics spec.md §8 names:
// flow imbalance, markout/adverse-selection, and adverse fill ratio.
//
// Grounded on the teacher's bots/supervisor.go pnlTracker (running-total
// accounting updated fill-by-fill) and on
// original_source/src/analytics/metrics.py's build_metrics.
package metrics

import "lobsim/engine"

// TradeRecord is one trade as seen from the metrics package's viewpoint:
// who the maker/taker were and whether the maker was the market-making
// agent, which gates every adverse-selection computation.
type TradeRecord struct {
	EventIdx   int64
	Trade      engine.Trade
	MidAtTrade float64
	MMIsMaker  bool
}

type pendingMarkout struct {
	targetEventIdx int64
	horizon        int64
	midAtTrade     float64
	makerBought    bool // true if the MM-as-maker side was a bid fill
}

// Tracker accumulates markout, flow-imbalance, and fill-ratio statistics
// across a run. It is not safe for concurrent use; the scheduler is its
// only caller.
type Tracker struct {
	mmOwnerID string
	horizons  []int64

	// adverseHorizon is the shortest configured horizon: a maker fill is
	// "adverse" when its markout at this horizon, once resolved, is
	// negative. Mirrors AdverseSelectionMetric, which aliases the same
	// horizon's average markout.
	adverseHorizon    int64
	hasAdverseHorizon bool

	midHistory map[int64]float64
	pending    []pendingMarkout

	markoutSum   map[int64]float64
	markoutCount map[int64]int64

	adverseFills    int64
	adverseResolved int64

	buyVolume  int64
	sellVolume int64

	unresolvedMarkouts int64
}

// NewTracker constructs a tracker for the market maker identified by
// mmOwnerID, measuring markout at each of horizons (in event ticks ahead
// of the trade).
func NewTracker(mmOwnerID string, horizons []int64) *Tracker {
	// Move the shortest horizon to the front of a private copy, so that
	// horizons[0] is the shortest one whatever order the caller listed.
	hs := append([]int64(nil), horizons...)
	for i := 1; i < len(hs); i++ {
		if hs[i] < hs[0] {
			hs[0], hs[i] = hs[i], hs[0]
		}
	}
	t := &Tracker{
		mmOwnerID:    mmOwnerID,
		horizons:     hs,
		midHistory:   make(map[int64]float64),
		markoutSum:   make(map[int64]float64),
		markoutCount: make(map[int64]int64),
	}
	if len(hs) > 0 {
		t.adverseHorizon = hs[0]
		t.hasAdverseHorizon = true
	}
	return t
}

// RecordTick stores the post-event mid and resolves any pending markout
// measurements whose horizon has now elapsed. Call once per scheduler
// tick, in event order, even on ticks with no trade.
func (t *Tracker) RecordTick(eventIdx int64, mid float64, hasMid bool) {
	if !hasMid {
		return
	}
	t.midHistory[eventIdx] = mid

	remaining := t.pending[:0]
	for _, p := range t.pending {
		if eventIdx < p.targetEventIdx {
			remaining = append(remaining, p)
			continue
		}
		// Baseline is the mid at the time of the trade, not the fill
		// price, matching original_source/src/analytics/metrics.py's
		// future_mid - mid_now rather than spec.md §4.6's fill-price form.
		markout := mid - p.midAtTrade
		if !p.makerBought {
			markout = -markout
		}
		t.markoutSum[p.horizon] += markout
		t.markoutCount[p.horizon]++

		if t.hasAdverseHorizon && p.horizon == t.adverseHorizon {
			t.adverseResolved++
			if markout < 0 {
				t.adverseFills++
			}
		}
	}
	t.pending = remaining
}

// RecordTrade folds one trade into flow-imbalance and, when the market
// maker was the maker leg, schedules markout measurements at every
// configured horizon.
func (t *Tracker) RecordTrade(rec TradeRecord) {
	if rec.Trade.AggressorSide == engine.Bid {
		t.buyVolume += rec.Trade.Qty
	} else {
		t.sellVolume += rec.Trade.Qty
	}

	if !rec.MMIsMaker {
		return
	}

	makerBought := rec.Trade.AggressorSide == engine.Ask // taker sold into MM's bid

	for _, h := range t.horizons {
		t.pending = append(t.pending, pendingMarkout{
			targetEventIdx: rec.EventIdx + h,
			horizon:        h,
			midAtTrade:     rec.MidAtTrade,
			makerBought:    makerBought,
		})
	}
}

// Summary is the final aggregate report, matching the field names in
// original_source/src/analytics/metrics.py's build_metrics.
type Summary struct {
	FlowImbalance        float64
	MarkoutByHorizon      map[int64]float64
	AdverseSelectionMetric float64 // alias of MarkoutByHorizon's shortest horizon
	AdverseFillRatio      float64
	UnresolvedMarkouts    int64
}

// Finalize closes the tracker out. Any markouts still pending when the run
// ends (trade too close to the end for its horizon to elapse) are dropped
// and counted in UnresolvedMarkouts rather than silently ignored.
func (t *Tracker) Finalize() Summary {
	t.unresolvedMarkouts = int64(len(t.pending))

	byHorizon := make(map[int64]float64, len(t.horizons))
	for _, h := range t.horizons {
		if t.markoutCount[h] > 0 {
			byHorizon[h] = t.markoutSum[h] / float64(t.markoutCount[h])
		}
	}

	// Adverse fill ratio: the fraction of maker fills whose markout at the
	// shortest configured horizon, once resolved, turned out negative.
	// Fills whose horizon never elapsed (see UnresolvedMarkouts) are
	// excluded from the denominator rather than assumed favorable.
	var adverseRatio float64
	if t.adverseResolved > 0 {
		adverseRatio = float64(t.adverseFills) / float64(t.adverseResolved)
	}

	var imbalance float64
	total := t.buyVolume + t.sellVolume
	if total > 0 {
		imbalance = float64(t.buyVolume-t.sellVolume) / float64(total)
	}

	var adverseSelection float64
	if len(t.horizons) > 0 {
		adverseSelection = byHorizon[t.horizons[0]]
	}

	return Summary{
		FlowImbalance:          imbalance,
		MarkoutByHorizon:       byHorizon,
		AdverseSelectionMetric: adverseSelection,
		AdverseFillRatio:       adverseRatio,
		UnresolvedMarkouts:     t.unresolvedMarkouts,
	}
}
