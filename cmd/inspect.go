package cmd

import (
	"fmt"
	"time"

	"github.com/encodeous/dvsim/sim"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Inspects the routers of a network at a point in simulated time",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger, closer := setupLogger(cmd)
		defer closer.Close()
		at, _ := cmd.Flags().GetDuration("at")

		s, err := sim.NewScenario(*cfg, logger)
		if err != nil {
			panic(err)
		}
		defer s.Close()
		err = s.RunUntil(at)
		if err != nil {
			panic(err)
		}

		fmt.Printf("Network at %s:\n\n", s.Engine.Elapsed())
		if len(args) == 0 {
			fmt.Print(s.Inspect())
			return
		}
		for _, id := range args {
			r, ok := s.Router(state.NodeId(id))
			if !ok {
				fmt.Println("Error: no such router:", id)
				continue
			}
			fmt.Print(r.Inspect())
		}
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Duration("at", 30*time.Second, "Simulated time to stop at")
}
