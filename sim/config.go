// Package sim implements the discrete-event scheduler that drives the
// matching engine, the flow generator, and the market-making agent
// through one simulation run, in the fixed tick order spec.md §4.3 names:
// (quote refresh if due) -> (exogenous event) -> (metrics bookkeeping).
//
// Grounded on original_source/src/sim/engine.py's EventDrivenSimulator and
// on the teacher's bots/supervisor.go for the orchestration/logging style.
package sim

import (
	"errors"
	"fmt"

	"lobsim/flow"
	"lobsim/marketmaker"
)

// ErrConfigInvalid is the only fatal, pre-run error spec.md §7 defines:
// everything that happens once the run starts is recoverable and counted,
// never aborted.
var ErrConfigInvalid = errors.New("sim: invalid configuration")

// Config aggregates every sub-config a run needs.
type Config struct {
	Symbol      string
	TickSize    int64
	OpeningMid  float64
	NumEvents   int64
	Seed        int64
	MakerOwnerID string

	Flow       flow.Config
	Maker      marketmaker.Config
	RefreshEvery int64 // K: quote refresh cadence, in events

	MarkoutHorizons []int64
}

// Validate checks every invariant a run depends on before the first event
// is drawn. A failure here is the single fatal path in the whole design;
// everything after the first event is a counted, recoverable condition.
func (c Config) Validate() error {
	if c.TickSize <= 0 {
		return fmt.Errorf("%w: tick_size must be positive", ErrConfigInvalid)
	}
	if c.NumEvents <= 0 {
		return fmt.Errorf("%w: num_events must be positive", ErrConfigInvalid)
	}
	if c.RefreshEvery <= 0 {
		return fmt.Errorf("%w: refresh_every (K) must be positive", ErrConfigInvalid)
	}
	if c.MakerOwnerID == "" {
		return fmt.Errorf("%w: maker_owner_id must be set", ErrConfigInvalid)
	}
	if c.OpeningMid <= 0 {
		return fmt.Errorf("%w: opening_mid must be positive", ErrConfigInvalid)
	}
	if err := c.Flow.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	for _, h := range c.MarkoutHorizons {
		if h <= 0 {
			return fmt.Errorf("%w: markout horizons must be positive", ErrConfigInvalid)
		}
	}
	return nil
}
