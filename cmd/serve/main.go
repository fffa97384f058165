// Command serve runs a simulation live and streams its ticks over a
// websocket at /ws, for external observability dashboards.
//
// Grounded on the teacher's server/server.go http.Server setup.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lobsim/flow"
	"lobsim/marketmaker"
	"lobsim/sim"
	"lobsim/stream"
)

func main() {
	_ = godotenv.Load()

	var (
		addr      = flag.String("addr", ":8090", "listen address for the websocket feed")
		numEvents = flag.Int64("events", 1_000_000, "number of scheduler ticks to run")
		seed      = flag.Int64("seed", 1, "PRNG seed")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := sim.Config{
		Symbol:       "SIM",
		TickSize:     1,
		OpeningMid:   10_000,
		NumEvents:    *numEvents,
		Seed:         *seed,
		MakerOwnerID: "MM",
		RefreshEvery: 25,
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
		},
		Maker: marketmaker.Config{
			TickSize:        1,
			HalfSpreadTicks: 2,
			WidenPerUnit:    0.05,
			SkewPerUnit:     0.02,
			QuoteQty:        10,
		},
		MarkoutHorizons: []int64{10, 50, 200},
	}

	simulator, err := sim.New(cfg, logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	publisher := stream.NewPublisher(logger)
	simulator.SetObserver(publisher)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", publisher.ServeHTTP)

	go func() {
		logger.Info("serving websocket feed", zap.String("addr", *addr))
		if err := http.ListenAndServe(*addr, mux); err != nil {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	result := simulator.Run()
	logger.Info("simulation complete",
		zap.Float64("final_mid", result.FinalSnapshot.Mid),
		zap.Int64("maker_inventory", result.Maker.Inventory),
		zap.Float64("realized_pnl", result.Maker.RealizedPnL),
	)
}
