package cmd

import (
	"fmt"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

const appName = "sigma-lc"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Print(appName))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Info()
}
