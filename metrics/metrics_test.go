package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobsim/engine"
)

func TestMarkoutResolvesAtConfiguredHorizon(t *testing.T) {
	tracker := NewTracker("MM", []int64{5})

	tracker.RecordTrade(TradeRecord{
		EventIdx: 10,
		Trade:    engine.Trade{AggressorSide: engine.Ask, Price: 100, Qty: 1, MakerOwnerID: "MM", TakerOwnerID: "FLOW"},
		MidAtTrade: 100,
		MMIsMaker:  true,
	})

	for i := int64(11); i < 15; i++ {
		tracker.RecordTick(i, 100, true)
	}
	tracker.RecordTick(15, 103, true) // horizon elapses here (10+5)

	summary := tracker.Finalize()
	require.Contains(t, summary.MarkoutByHorizon, int64(5))
	assert.InDelta(t, 3.0, summary.MarkoutByHorizon[5], 0.0001)
	assert.Equal(t, int64(0), summary.UnresolvedMarkouts)
}

func TestUnresolvedMarkoutsAreCountedNotDropped(t *testing.T) {
	tracker := NewTracker("MM", []int64{1000})

	tracker.RecordTrade(TradeRecord{
		EventIdx:   5,
		Trade:      engine.Trade{AggressorSide: engine.Bid, Price: 100, Qty: 1, MakerOwnerID: "MM"},
		MidAtTrade: 100,
		MMIsMaker:  true,
	})
	tracker.RecordTick(6, 101, true)

	summary := tracker.Finalize()
	assert.Equal(t, int64(1), summary.UnresolvedMarkouts)
}

// Adverse fill ratio is derived, not hand-cranked: a maker fill only
// counts as adverse once its markout at the shortest configured horizon
// actually resolves negative in RecordTick.
func TestFlowImbalanceAndAdverseFillRatio(t *testing.T) {
	tracker := NewTracker("MM", []int64{5})

	// MM sells at mid 100 (taker bought, lifting MM's ask); mid later falls
	// to 97, which is favorable for a maker sale, so this fill is not
	// adverse.
	tracker.RecordTrade(TradeRecord{
		EventIdx:   0,
		Trade:      engine.Trade{AggressorSide: engine.Bid, Qty: 7},
		MidAtTrade: 100,
		MMIsMaker:  true,
	})
	// MM buys at mid 100 (taker sold, hitting MM's bid); mid falls to 97,
	// so this fill's markout is adverse (maker bought, price then fell).
	tracker.RecordTrade(TradeRecord{
		EventIdx:   0,
		Trade:      engine.Trade{AggressorSide: engine.Ask, Qty: 3},
		MidAtTrade: 100,
		MMIsMaker:  true,
	})

	for i := int64(1); i < 5; i++ {
		tracker.RecordTick(i, 100, true)
	}
	tracker.RecordTick(5, 97, true) // horizon elapses for both fills here

	summary := tracker.Finalize()
	assert.InDelta(t, 0.4, summary.FlowImbalance, 0.0001) // (7-3)/10
	assert.InDelta(t, 0.5, summary.AdverseFillRatio, 0.0001) // 1 adverse / 2 resolved
}
