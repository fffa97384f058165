package flow

import (
	"fmt"
	"math"
	"math/rand"

	"lobsim/engine"
)

// Generator is the seeded stochastic order-flow source. All randomness in a
// simulation run is drawn from the single *rand.Rand carried here, in a
// fixed order, so that two runs given the same seed and the same sequence
// of scheduler calls produce byte-identical event streams regardless of
// which branch (limit/market/cancel, informed/uninformed) any individual
// draw takes. Grounded on the teacher's random_bid_bot.go / random_ask_bot.go
// sampling idiom, generalized from two single-purpose bots into one
// multi-branch generator, and on original_source/src/sim/arrivals.py's
// OrderFlowModel for the informed-cohort mechanics.
type Generator struct {
	cfg Config
	rng *rand.Rand

	signal      float64
	fundamental float64

	nextSeq int64
}

// NewGenerator constructs a flow generator seeded deterministically. The
// fundamental process starts at fundamentalStart (typically the book's
// opening mid, in ticks).
func NewGenerator(cfg Config, seed int64, fundamentalStart float64) *Generator {
	return &Generator{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
		fundamental: fundamentalStart,
	}
}

// Signal returns the current latent informed signal s_t.
func (g *Generator) Signal() float64 { return g.signal }

// Fundamental returns the current fundamental value F_t.
func (g *Generator) Fundamental() float64 { return g.fundamental }

func (g *Generator) orderID(prefix string) string {
	g.nextSeq++
	return fmt.Sprintf("%s-%d", prefix, g.nextSeq)
}

// Next draws the next exogenous event. openIDs lists the ids of
// currently-resting flow-owned orders, used as the cancel target pool.
// Draws are taken from the shared rng in a fixed order on every call,
// independent of which branch is ultimately taken:
//
//  1. typ            - selects limit / market / cancel
//  2. side           - Bernoulli(p_buy) for limit/market
//  3. size           - Uniform[SizeMin, SizeMax] for limit/market
//  4. offsetLevels   - Uniform[1, OffsetMaxLevels] for limit
//  5. marketableDraw - Uniform(0,1) vs MarketableLimitProb, limit only
//  6. informedDraw   - Uniform(0,1) vs p_informed, market only
//  7. signalNoise    - N(0,1) innovation, always consumed to advance s_t
//  8. cancelDraw     - Uniform(0,1), selects an index into openIDs
//
// mid is the current book center (in the same integer-tick units as
// engine.Order.Price), used to place limit prices relative to it.
func (g *Generator) Next(eventIdx int64, openIDs []string, mid float64) engine.Event {
	typDraw := g.rng.Float64()
	sideDraw := g.rng.Float64()
	size := g.cfg.SizeMin + int64(g.rng.Intn(int(g.cfg.SizeMax-g.cfg.SizeMin+1)))
	offsetLevels := int64(1) + int64(g.rng.Intn(int(g.cfg.OffsetMaxLevels)))
	marketableDraw := g.rng.Float64()
	informedDraw := g.rng.Float64()
	signalNoise := g.rng.NormFloat64()
	cancelDraw := g.rng.Float64()

	phi := 1 - g.cfg.SignalMeanReversion
	if phi < 0 {
		phi = 0
	}
	g.signal = phi*g.signal + g.cfg.SignalInnovation*signalNoise

	pBuy := g.cfg.pBuyAt(eventIdx)
	side := engine.Ask
	if sideDraw < pBuy {
		side = engine.Bid
	}

	switch {
	case typDraw < g.cfg.LimitProb:
		return g.buildLimit(side, size, offsetLevels, marketableDraw, mid)
	case typDraw < g.cfg.LimitProb+g.cfg.MarketProb:
		return g.buildMarket(side, size, informedDraw)
	default:
		return g.buildCancel(openIDs, cancelDraw)
	}
}

func (g *Generator) buildLimit(side engine.Side, size, offsetLevels int64, marketableDraw, mid float64) engine.Event {
	midTicks := int64(math.Round(mid))
	var price int64
	marketable := marketableDraw < g.cfg.MarketableLimitProb

	if side == engine.Bid {
		if marketable {
			price = midTicks + 1
		} else {
			price = midTicks - offsetLevels
		}
	} else {
		if marketable {
			price = midTicks - 1
		} else {
			price = midTicks + offsetLevels
		}
	}
	if price < 1 {
		price = 1
	}

	return engine.Event{
		Kind:    engine.EventLimit,
		OrderID: g.orderID("FLOW"),
		OwnerID: "FLOW",
		Side:    side,
		Price:   price,
		Qty:     size,
	}
}

// buildMarket applies the informed-cohort override: with probability
// p_informed and |s_t| > signal_tau, the order's side is forced to
// sign(s_t) and its size is scaled by InformedQtyMult, approximating the
// original implementation's "force a jump at the touch" sizing without a
// second synthetic event.
func (g *Generator) buildMarket(side engine.Side, size int64, informedDraw float64) engine.Event {
	informed := informedDraw < g.cfg.PInformed && math.Abs(g.signal) > g.cfg.SignalTau
	if informed {
		if g.signal > 0 {
			side = engine.Bid
		} else {
			side = engine.Ask
		}
		size = int64(math.Round(float64(size) * g.cfg.InformedQtyMult))
		if size < 1 {
			size = 1
		}
		jump := float64(g.cfg.InfoHorizon)
		if g.signal > 0 {
			g.fundamental += jump
		} else {
			g.fundamental -= jump
		}
	}

	return engine.Event{
		Kind:    engine.EventMarket,
		OrderID: g.orderID(prefixFor(informed)),
		OwnerID: prefixFor(informed),
		Side:    side,
		Qty:     size,
	}
}

func prefixFor(informed bool) string {
	if informed {
		return "INFORMED"
	}
	return "FLOW"
}

func (g *Generator) buildCancel(openIDs []string, cancelDraw float64) engine.Event {
	if len(openIDs) == 0 {
		return engine.Event{Kind: engine.EventCancel, CancelID: ""}
	}
	idx := int(cancelDraw * float64(len(openIDs)))
	if idx >= len(openIDs) {
		idx = len(openIDs) - 1
	}
	return engine.Event{Kind: engine.EventCancel, CancelID: openIDs[idx]}
}

// MaybeAdapt implements the v2 slow-adaptation layer: when FundamentalBeta
// is zero this never fires (v1 behavior: the book's mid tracks the
// fundamental only through the informed order's own impact). When nonzero,
// each call has probability FundamentalBeta of emitting a one-tick nudge
// order toward the fundamental, if the observed mid has drifted away from
// it by at least one tick. The draw is taken every call regardless of
// whether FundamentalBeta is zero, preserving the fixed draw-order
// discipline across the whole generator.
func (g *Generator) MaybeAdapt(mid float64) (engine.Event, bool) {
	adaptDraw := g.rng.Float64()

	if g.cfg.FundamentalBeta <= 0 {
		return engine.Event{}, false
	}
	if adaptDraw >= g.cfg.FundamentalBeta {
		return engine.Event{}, false
	}

	gapTicks := g.fundamental - mid
	if math.Abs(gapTicks) < 1 {
		return engine.Event{}, false
	}

	side := engine.Ask
	if gapTicks > 0 {
		side = engine.Bid
	}

	return engine.Event{
		Kind:    engine.EventMarket,
		OrderID: g.orderID("ADAPT"),
		OwnerID: "FLOW",
		Side:    side,
		Qty:     1,
	}, true
}
