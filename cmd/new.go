package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a sample network config",
	Long:  `Writes a line of three routers with a host on each end, and a link that fails for a while.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(state.NetworkConfigPath); err == nil && !force {
			fmt.Printf("%s already exists, use --force to overwrite it\n", state.NetworkConfigPath)
			return
		}
		if err := state.PathValidator(state.NetworkConfigPath); err != nil {
			panic(err)
		}
		cfg := state.SampleNetwork()
		if err := state.WriteNetworkConfig(state.NetworkConfigPath, &cfg); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote %s\n", state.NetworkConfigPath)
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().Bool("force", false, "Overwrite an existing config")
}
