package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lyy289065406/arachni/lib"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the framework version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (%s)\n", lib.FrameworkName, lib.Version, lib.Revision)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
