package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/sim"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

func loadConfig() *state.NetworkCfg {
	cfg, err := state.ReadNetworkConfig(state.NetworkConfigPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

func setupLogger(cmd *cobra.Command) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		level = slog.LevelDebug
	}
	logPath, _ := cmd.Flags().GetString("log")
	logger, closer, err := core.NewLogger("", level, logPath)
	if err != nil {
		panic(err)
	}
	return logger, closer
}

// printTraces prints every trace that finishes until the returned function is called
func printTraces(tr *sim.Tracer) func() {
	ch := make(chan interface{}, 64)
	done := make(chan struct{})
	exited := make(chan struct{})
	tr.Subscribe(ch)
	go func() {
		defer close(exited)
		for {
			select {
			case v := <-ch:
				fmt.Println("trace:", v.(sim.Trace))
			case <-done:
				return
			}
		}
	}()
	return func() {
		tr.Unsubscribe(ch)
		close(done)
		<-exited
	}
}

func printSummary(tr *sim.Tracer) {
	traces := tr.Finished()
	if len(traces) == 0 {
		return
	}
	counts := make(map[sim.TraceOutcome]int)
	for _, t := range traces {
		counts[t.Outcome]++
	}
	fmt.Printf("Pings: %d delivered, %d dropped, %d looped, %d in flight\n",
		counts[sim.Delivered], counts[sim.Dropped], counts[sim.Looped], tr.InFlight())
}
