package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/plugin"
	"github.com/lyy289065406/arachni/pkg/scan"
)

var pluginsFormat string
var pluginsFilter []string

// pluginsCmd represents the plugins command
var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the available plugins",
	Run: func(cmd *cobra.Command, args []string) {
		format, err := lib.ParseFormatType(pluginsFormat)
		if err != nil {
			log.Error().Err(err).Msg("Invalid format")
			os.Exit(1)
		}

		var infos []plugin.Info
		for _, info := range plugin.Default().Available() {
			if scan.MatchesPatterns(info.Name, pluginsFilter) {
				infos = append(infos, info)
			}
		}

		out, err := lib.FormatOutput(infos, format)
		if err != nil {
			log.Error().Err(err).Msg("Could not format plugins")
			os.Exit(1)
		}
		fmt.Println(out)
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.Flags().StringVarP(&pluginsFormat, "format", "f", "table", "Output format (table, text, pretty, json, yaml)")
	pluginsCmd.Flags().StringSliceVar(&pluginsFilter, "filter", nil, "Name patterns to filter by (\"*\", \"-name\", plain names)")
}
