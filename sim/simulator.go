package sim

import (
	"go.uber.org/zap"

	"lobsim/engine"
	"lobsim/flow"
	"lobsim/marketmaker"
	"lobsim/metrics"
)

// Observer receives a read-only callback after every tick. Implementations
// must not block or mutate anything they are handed; package stream's
// websocket publisher is the intended use, wired in non-blockingly.
type Observer interface {
	OnTick(eventIdx int64, snapshot engine.BookSnapshot, trades []engine.Trade)
}

// Result is everything a run produced: the final book state, the maker's
// ending position, and the aggregate metrics summary.
type Result struct {
	FinalSnapshot engine.BookSnapshot
	Maker         *marketmaker.MarketMaker
	Metrics       metrics.Summary

	ExhaustedBookCount  int64
	CrossedQuoteCount   int64
	CancelNotFoundCount int64
}

// Simulator owns one run's book, matching engine, flow generator, maker,
// and metrics tracker, and drives them through Config.NumEvents ticks.
type Simulator struct {
	cfg Config
	log *zap.Logger

	book    *engine.Book
	matcher *engine.MatchingEngine
	gen     *flow.Generator
	maker   *marketmaker.MarketMaker
	tracker *metrics.Tracker

	openFlowIDs []string

	observer Observer
}

// New constructs a Simulator. log may be nil, in which case a no-op logger
// is used (matching the teacher's pattern of accepting a *zap.Logger the
// caller owns rather than reaching for a global).
func New(cfg Config, log *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	book := engine.NewBook()
	return &Simulator{
		cfg:     cfg,
		log:     log,
		book:    book,
		matcher: engine.NewMatchingEngine(book),
		gen:     flow.NewGenerator(cfg.Flow, cfg.Seed, cfg.OpeningMid),
		maker:   marketmaker.New(cfg.Maker, cfg.MakerOwnerID),
		tracker: metrics.NewTracker(cfg.MakerOwnerID, cfg.MarkoutHorizons),
	}, nil
}

// SetObserver attaches an Observer invoked after every tick. Nil clears it.
func (s *Simulator) SetObserver(o Observer) { s.observer = o }

// Run drives the scheduler for cfg.NumEvents ticks and returns the final
// result. The per-tick order is fixed: quote refresh (if due) first, then
// the exogenous flow event with its metrics bookkeeping, then the v2
// slow-adaptation check, whose nudge order (when one fires) gets its own
// bookkeeping — matching original_source/src/sim/engine.py's _step
// ordering.
func (s *Simulator) Run() Result {
	mid := s.cfg.OpeningMid

	for i := int64(0); i < s.cfg.NumEvents; i++ {
		if i%s.cfg.RefreshEvery == 0 {
			s.refreshQuotes(i, mid)
			mid = s.currentMid(mid)
		}

		s.pruneOpenFlowIDs()
		ev := s.gen.Next(i, s.openFlowIDs, mid)
		s.applyExogenous(i, ev, mid)
		mid = s.currentMid(mid)

		if adaptEv, ok := s.gen.MaybeAdapt(mid); ok {
			s.applyExogenous(i, adaptEv, mid)
			mid = s.currentMid(mid)
		}
	}

	summary := s.tracker.Finalize()
	return Result{
		FinalSnapshot:       s.book.Snapshot(),
		Maker:               s.maker,
		Metrics:             summary,
		ExhaustedBookCount:  s.matcher.ExhaustedBookCount,
		CrossedQuoteCount:   s.matcher.CrossedQuoteCount,
		CancelNotFoundCount: s.matcher.CancelNotFoundCount,
	}
}

func (s *Simulator) currentMid(fallback float64) float64 {
	snap := s.book.Snapshot()
	if snap.HasMid {
		return snap.Mid
	}
	return fallback
}

func (s *Simulator) refreshQuotes(eventIdx int64, mid float64) {
	bidPrice, askPrice, qty := s.maker.Quote(mid)
	newBidID, newAskID := s.maker.NewQuoteIDs()

	ev := engine.Event{
		Kind:         engine.EventQuoteRefresh,
		OldBidID:     s.maker.ActiveBidID,
		OldAskID:     s.maker.ActiveAskID,
		NewBidID:     newBidID,
		NewAskID:     newAskID,
		BidPrice:     bidPrice,
		AskPrice:     askPrice,
		QuoteQty:     qty,
		QuoteOwnerID: s.maker.OwnerID,
	}

	trades, snap := s.matcher.Apply(ev, eventIdx)
	s.maker.ActiveBidID, s.maker.ActiveAskID = newBidID, newAskID

	s.recordTrades(eventIdx, trades, snap)
	s.log.Debug("quote refresh",
		zap.Int64("event", eventIdx),
		zap.Int64("bid_price", bidPrice),
		zap.Int64("ask_price", askPrice),
	)
	s.notify(eventIdx, snap, trades)
}

func (s *Simulator) applyExogenous(eventIdx int64, ev engine.Event, mid float64) {
	trades, snap := s.matcher.Apply(ev, eventIdx)

	if ev.Kind == engine.EventLimit && s.book.Exists(ev.OrderID) {
		s.openFlowIDs = append(s.openFlowIDs, ev.OrderID)
	}

	s.recordTrades(eventIdx, trades, snap)
	s.tracker.RecordTick(eventIdx, snap.Mid, snap.HasMid)
	s.notify(eventIdx, snap, trades)
}

func (s *Simulator) recordTrades(eventIdx int64, trades []engine.Trade, snap engine.BookSnapshot) {
	for _, tr := range trades {
		mmIsMaker := tr.MakerOwnerID == s.maker.OwnerID
		s.tracker.RecordTrade(metrics.TradeRecord{
			EventIdx:   eventIdx,
			Trade:      tr,
			MidAtTrade: snap.Mid,
			MMIsMaker:  mmIsMaker,
		})

		if mmIsMaker {
			signedQty := tr.Qty
			if tr.AggressorSide == engine.Bid {
				// Aggressor bought by lifting the maker's ask: the maker sold.
				signedQty = -signedQty
			}
			s.maker.OnFill(signedQty, tr.Price)
		}
	}
}

func (s *Simulator) pruneOpenFlowIDs() {
	if len(s.openFlowIDs) == 0 {
		return
	}
	live := s.openFlowIDs[:0]
	for _, id := range s.openFlowIDs {
		if s.book.Exists(id) {
			live = append(live, id)
		}
	}
	s.openFlowIDs = live
}

func (s *Simulator) notify(eventIdx int64, snap engine.BookSnapshot, trades []engine.Trade) {
	if s.observer == nil {
		return
	}
	s.observer.OnTick(eventIdx, snap, trades)
}
