package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks that a network config is valid",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		links, err := cfg.GetLinks()
		if err != nil {
			panic(err)
		}
		fmt.Println("Network is valid")
		fmt.Printf("%d routers, %d hosts, %d links, %d events\n", len(cfg.Routers), len(cfg.Hosts), len(links), len(cfg.Events))
		for _, l := range links {
			fmt.Printf("  %s - %s latency %d\n", l.A, l.B, l.Latency)
		}
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
