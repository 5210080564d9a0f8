package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/encodeous/dvsim/sim"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a network",
	Long: `Runs the network for the configured duration, then prints the routing table of every router.
By default the network runs in simulated time and finishes instantly. With --live, every router runs on its own
goroutine and links deliver packets in real time.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger, closer := setupLogger(cmd)
		defer closer.Close()

		live, _ := cmd.Flags().GetBool("live")
		trace, _ := cmd.Flags().GetBool("trace")

		if live {
			metricsAddr, _ := cmd.Flags().GetString("metrics")
			if metricsAddr != "" {
				go func() {
					err := http.ListenAndServe(metricsAddr, nil)
					if err != nil {
						logger.Error("metrics server stopped", "error", err)
					}
				}()
			}
			runLive(cfg, logger, trace)
			return
		}

		s, err := sim.NewScenario(*cfg, logger)
		if err != nil {
			panic(err)
		}
		defer s.Close()
		if trace {
			defer printTraces(s.Tracer)()
		}
		err = s.Run()
		if err != nil {
			panic(err)
		}
		fmt.Printf("Network after %s:\n\n", s.Engine.Elapsed())
		fmt.Print(s.Inspect())
		printSummary(s.Tracer)
	},
	GroupID: "sim",
}

func runLive(cfg *state.NetworkCfg, logger *slog.Logger, trace bool) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l, err := sim.NewLiveNetwork(ctx, *cfg, logger)
	if err != nil {
		panic(err)
	}
	stopTraces := func() {}
	if trace {
		stopTraces = printTraces(l.Tracer)
	}
	err = l.Start()
	if err != nil {
		panic(err)
	}
	logger.Info("network started", "routers", len(cfg.Routers), "hosts", len(cfg.Hosts), "duration", cfg.Sim.Duration)
	runErr := l.Wait(cfg.Sim.Duration)
	stopTraces()
	fmt.Print(l.Inspect())
	printSummary(l.Tracer)
	err = l.Stop()
	if err != nil {
		panic(err)
	}
	if runErr != nil {
		panic(runErr)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("live", false, "Run in real time")
	runCmd.Flags().Bool("trace", false, "Print the path of every ping")
	runCmd.Flags().String("metrics", "", "Serve /debug/metrics on this address while running live")
}
