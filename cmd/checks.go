package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/scan"
)

var checksFormat string
var checksFilter []string

// checksCmd represents the checks command
var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the available checks",
	Run: func(cmd *cobra.Command, args []string) {
		format, err := lib.ParseFormatType(checksFormat)
		if err != nil {
			log.Error().Err(err).Msg("Invalid format")
			os.Exit(1)
		}

		var infos []check.Info
		for _, info := range check.Default().Available() {
			if scan.MatchesPatterns(info.Name, checksFilter) {
				infos = append(infos, info)
			}
		}

		out, err := lib.FormatOutput(infos, format)
		if err != nil {
			log.Error().Err(err).Msg("Could not format checks")
			os.Exit(1)
		}
		fmt.Println(out)
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
	checksCmd.Flags().StringVarP(&checksFormat, "format", "f", "table", "Output format (table, text, pretty, json, yaml)")
	checksCmd.Flags().StringSliceVar(&checksFilter, "filter", nil, "Name patterns to filter by (\"*\", \"-name\", plain names)")
}
