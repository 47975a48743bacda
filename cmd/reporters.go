package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/report"
	"github.com/lyy289065406/arachni/pkg/scan"
)

var reportersFormat string
var reportersFilter []string

// reportersCmd represents the reporters command
var reportersCmd = &cobra.Command{
	Use:   "reporters",
	Short: "List the available reporters",
	Run: func(cmd *cobra.Command, args []string) {
		format, err := lib.ParseFormatType(reportersFormat)
		if err != nil {
			log.Error().Err(err).Msg("Invalid format")
			os.Exit(1)
		}

		var infos []report.Info
		for _, info := range report.Default().Available() {
			if scan.MatchesPatterns(info.Name, reportersFilter) {
				infos = append(infos, info)
			}
		}

		out, err := lib.FormatOutput(infos, format)
		if err != nil {
			log.Error().Err(err).Msg("Could not format reporters")
			os.Exit(1)
		}
		fmt.Println(out)
	},
}

func init() {
	rootCmd.AddCommand(reportersCmd)
	reportersCmd.Flags().StringVarP(&reportersFormat, "format", "f", "table", "Output format (table, text, pretty, json, yaml)")
	reportersCmd.Flags().StringSliceVar(&reportersFilter, "filter", nil, "Name patterns to filter by (\"*\", \"-name\", plain names)")
}
