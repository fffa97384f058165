// Command simulate runs one discrete-event limit order book simulation
// and prints its summary statistics.
//
// Grounded on the teacher's cmd/loadgen/main.go flag-driven CLI style. An
// optional .env file is loaded into the environment, adapted from
// LiamAshdown-Polymarket-Arbitrage-Bot/bot/main.go's godotenv.Load() call;
// no setting is read from the environment, so all parameters come from
// flags.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lobsim/flow"
	"lobsim/marketmaker"
	"lobsim/sim"
)

func main() {
	_ = godotenv.Load()

	var (
		numEvents    = flag.Int64("events", 200_000, "number of scheduler ticks to run")
		seed         = flag.Int64("seed", 1, "PRNG seed")
		refreshEvery = flag.Int64("refresh-every", 25, "quote refresh cadence, in events (K)")
		openingMid   = flag.Float64("opening-mid", 10_000, "opening mid price, in ticks")
		tickSize     = flag.Int64("tick-size", 1, "minimum price increment, in display units")
		verbose      = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	logCfg := zap.NewProductionConfig()
	if *verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := sim.Config{
		Symbol:       "SIM",
		TickSize:     *tickSize,
		OpeningMid:   *openingMid,
		NumEvents:    *numEvents,
		Seed:         *seed,
		MakerOwnerID: "MM",
		RefreshEvery: *refreshEvery,

		Flow: flow.Config{
			LimitProb:           0.55,
			MarketProb:          0.25,
			CancelProb:          0.20,
			PBuy:                0.5,
			OffsetMaxLevels:     5,
			MarketableLimitProb: 0.1,
			SizeMin:             1,
			SizeMax:             20,
			PInformed:           0.05,
			SignalTau:           0.5,
			SignalMeanReversion: 0.1,
			SignalInnovation:    0.3,
			InfoHorizon:         3,
			InformedQtyMult:     3.0,
			FundamentalBeta:     0.0,
		},

		Maker: marketmaker.Config{
			TickSize:        *tickSize,
			HalfSpreadTicks: 2,
			WidenPerUnit:    0.05,
			SkewPerUnit:     0.02,
			QuoteQty:        10,
		},

		MarkoutHorizons: []int64{10, 50, 200},
	}

	logger.Info("starting simulation",
		zap.Int64("events", cfg.NumEvents),
		zap.Int64("seed", cfg.Seed),
	)

	simulator, err := sim.New(cfg, logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	result := simulator.Run()

	fmt.Printf("final mid: %.2f (has_mid=%v)\n", result.FinalSnapshot.Mid, result.FinalSnapshot.HasMid)
	fmt.Printf("maker inventory: %d  cash: %.2f  realized_pnl: %.2f  avg_entry: %.2f\n",
		result.Maker.Inventory, result.Maker.Cash, result.Maker.RealizedPnL, result.Maker.AvgEntryPrice)
	fmt.Printf("flow_imbalance: %.4f  adverse_fill_ratio: %.4f  adverse_selection_metric: %.4f\n",
		result.Metrics.FlowImbalance, result.Metrics.AdverseFillRatio, result.Metrics.AdverseSelectionMetric)
	for h, v := range result.Metrics.MarkoutByHorizon {
		fmt.Printf("  markout[%d]: %.4f\n", h, v)
	}
	fmt.Printf("exhausted_book: %d  crossed_quote: %d  cancel_not_found: %d\n",
		result.ExhaustedBookCount, result.CrossedQuoteCount, result.CancelNotFoundCount)
}
