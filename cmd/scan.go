package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/scan"
	"github.com/lyy289065406/arachni/pkg/scan/options"
)

var scanURL string
var scanTitle string
var restrictPaths []string
var extendPaths []string
var scanChecks []string
var scanPlugins []string
var scanReports []string
var crawlDepth int
var crawlMaxPages int
var includePatterns []string
var excludePatterns []string
var followSubdomains bool
var redundancyRules []string
var excludeBinaries bool
var onlyPositives bool
var maxConcurrency int
var requestsPerSecond float64
var sessionCheckURL string
var sessionCheckPattern string

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Crawl and audit a target",
	Long: `Crawls the target (unless restricted to explicit paths), audits every
discovered page with the loaded checks, runs deferred timing checks as a
final batch and writes the configured reports.`,
	Run: func(cmd *cobra.Command, args []string) {
		if scanURL == "" {
			log.Error().Msg("A target url must be provided")
			os.Exit(1)
		}

		opts := options.Default()
		opts.URL = scanURL
		opts.Title = scanTitle
		opts.RestrictPaths = restrictPaths
		opts.ExtendPaths = extendPaths
		if len(scanChecks) > 0 {
			opts.Checks = scanChecks
		}
		opts.Plugins = scanPlugins
		opts.Reports = parseReportTargets(scanReports)
		if cmd.Flags().Changed("depth") {
			opts.Depth = crawlDepth
		}
		if cmd.Flags().Changed("max-pages") {
			opts.MaxPages = crawlMaxPages
		}
		opts.IncludePatterns = includePatterns
		opts.ExcludePatterns = excludePatterns
		if cmd.Flags().Changed("follow-subdomains") {
			opts.FollowSubdomains = followSubdomains
		}
		opts.Redundancy = parseRedundancyRules(redundancyRules)
		if cmd.Flags().Changed("exclude-binaries") {
			opts.ExcludeBinaries = excludeBinaries
		}
		if cmd.Flags().Changed("only-positives") {
			opts.OnlyPositives = onlyPositives
		}
		if cmd.Flags().Changed("concurrency") {
			opts.MaxConcurrency = maxConcurrency
		}
		if cmd.Flags().Changed("rps") {
			opts.RequestsPerSecond = requestsPerSecond
		}
		if sessionCheckURL != "" {
			opts.SessionCheckURL = sessionCheckURL
			opts.SessionCheckPattern = sessionCheckPattern
		}

		scanner, err := scan.New(opts)
		if err != nil {
			log.Error().Err(err).Msg("Invalid scan options")
			os.Exit(1)
		}

		scanner.Run(nil)
		printScanSummary(scanner)
	},
}

func printScanSummary(scanner *scan.Scanner) {
	stats := scanner.Stats()
	table, err := lib.FormatSingleOutput(stats, lib.Table)
	if err == nil {
		fmt.Println(table)
	}

	issues := scanner.Issues()
	if len(issues) == 0 {
		fmt.Println(lib.Colorize("No issues found", lib.Green))
		return
	}
	fmt.Println(lib.Colorize(fmt.Sprintf("%d issues found", len(issues)), lib.Yellow))
	out, err := lib.FormatOutput(issues, lib.Table)
	if err != nil {
		log.Error().Err(err).Msg("Could not format issues")
		return
	}
	fmt.Println(out)
}

// parseReportTargets turns "name" / "name=path" pairs into the reports
// map. A bare name gets a derived filename; "name=-" writes to stdout.
func parseReportTargets(pairs []string) map[string]string {
	targets := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, path, found := strings.Cut(pair, "=")
		if !found {
			targets[name] = ""
			continue
		}
		targets[name] = path
	}
	return targets
}

// parseRedundancyRules turns "pattern:count" strings into the redundancy
// map. The count is taken after the last colon, so patterns may contain
// colons themselves.
func parseRedundancyRules(rules []string) map[string]int {
	if len(rules) == 0 {
		return nil
	}
	parsed := make(map[string]int, len(rules))
	for _, rule := range rules {
		idx := strings.LastIndex(rule, ":")
		if idx <= 0 || idx == len(rule)-1 {
			log.Error().Str("rule", rule).Msg("Invalid redundancy rule, expected pattern:count")
			continue
		}
		count, err := strconv.Atoi(rule[idx+1:])
		if err != nil || count < 0 {
			log.Error().Str("rule", rule).Msg("Invalid redundancy count")
			continue
		}
		parsed[rule[:idx]] = count
	}
	return parsed
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanURL, "url", "u", "", "Target url")
	scanCmd.Flags().StringVarP(&scanTitle, "title", "t", "", "Scan title, used in reports and derived filenames")
	scanCmd.Flags().StringSliceVar(&restrictPaths, "restrict-path", nil, "Audit only these paths, skipping the crawl (repeatable)")
	scanCmd.Flags().StringSliceVar(&extendPaths, "extend-path", nil, "Extra seed paths for the crawl (repeatable)")
	scanCmd.Flags().StringSliceVarP(&scanChecks, "checks", "c", nil, "Checks to run (\"*\" for all, \"-name\" to exclude)")
	scanCmd.Flags().StringSliceVarP(&scanPlugins, "plugins", "p", nil, "Plugins to run alongside the scan")
	scanCmd.Flags().StringSliceVarP(&scanReports, "report", "r", nil, "Reports to write as name or name=path (\"-\" for stdout)")
	scanCmd.Flags().IntVarP(&crawlDepth, "depth", "d", 0, "Maximum crawl depth (0 for unlimited)")
	scanCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Maximum pages to crawl (0 for unlimited)")
	scanCmd.Flags().StringSliceVar(&includePatterns, "include", nil, "Only crawl urls matching these patterns")
	scanCmd.Flags().StringSliceVar(&excludePatterns, "exclude", nil, "Never crawl urls matching these patterns")
	scanCmd.Flags().BoolVar(&followSubdomains, "follow-subdomains", false, "Extend the crawl scope to subdomains")
	scanCmd.Flags().StringSliceVar(&redundancyRules, "redundancy", nil, "Crawl caps as pattern:count (repeatable)")
	scanCmd.Flags().BoolVar(&excludeBinaries, "exclude-binaries", false, "Skip checks on non-text pages")
	scanCmd.Flags().BoolVar(&onlyPositives, "only-positives", false, "Log only positive findings while scanning")
	scanCmd.Flags().IntVar(&maxConcurrency, "concurrency", 0, "Maximum concurrent requests")
	scanCmd.Flags().Float64Var(&requestsPerSecond, "rps", 0, "Requests per second cap (0 for unlimited)")
	scanCmd.Flags().StringVar(&sessionCheckURL, "session-check-url", "", "Url fetched after each harvest to verify the session")
	scanCmd.Flags().StringVar(&sessionCheckPattern, "session-check-pattern", "", "Pattern expected in the session check response")
}
