package options

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/lyy289065406/arachni/lib"
)

// Options is the resolved configuration for a single scan. It is supplied
// by the caller, survives Reset and is restored (redundancy counters
// included) into the result snapshot.
type Options struct {
	URL   string `json:"url" yaml:"url" validate:"required,url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// RestrictPaths disables crawling: only these paths are audited.
	// ExtendPaths are extra seeds fed to the crawler.
	RestrictPaths []string `json:"restrict_paths,omitempty" yaml:"restrict_paths,omitempty"`
	ExtendPaths   []string `json:"extend_paths,omitempty" yaml:"extend_paths,omitempty"`

	Checks    []string          `json:"checks,omitempty" yaml:"checks,omitempty"`
	Plugins   []string          `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Reports   map[string]string `json:"reports,omitempty" yaml:"reports,omitempty"`

	Depth            int      `json:"depth" yaml:"depth" validate:"gte=0"`
	MaxPages         int      `json:"max_pages" yaml:"max_pages" validate:"gte=0"`
	IncludePatterns  []string `json:"include_patterns,omitempty" yaml:"include_patterns,omitempty"`
	ExcludePatterns  []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
	FollowSubdomains bool     `json:"follow_subdomains" yaml:"follow_subdomains"`

	// Redundancy caps how many times URLs matching each pattern are
	// crawled. Counters are decremented in place during the scan.
	Redundancy map[string]int `json:"redundancy,omitempty" yaml:"redundancy,omitempty"`

	PagePrecision   int  `json:"page_precision" yaml:"page_precision" validate:"gte=1,lte=10"`
	ExcludeBinaries bool `json:"exclude_binaries" yaml:"exclude_binaries"`
	OnlyPositives   bool `json:"only_positives" yaml:"only_positives"`

	MaxConcurrency    int     `json:"max_concurrency" yaml:"max_concurrency" validate:"gte=1"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	SessionCheckURL     string `json:"session_check_url,omitempty" yaml:"session_check_url,omitempty"`
	SessionCheckPattern string `json:"session_check_pattern,omitempty" yaml:"session_check_pattern,omitempty"`
}

// Default returns options pre-filled from the loaded configuration.
func Default() *Options {
	return &Options{
		Depth:               viper.GetInt("crawl.max_depth"),
		MaxPages:            viper.GetInt("crawl.max_pages"),
		FollowSubdomains:    viper.GetBool("crawl.follow_subdomains"),
		PagePrecision:       viper.GetInt("audit.page_precision"),
		ExcludeBinaries:     viper.GetBool("audit.exclude_binaries"),
		OnlyPositives:       viper.GetBool("report.only_positives"),
		MaxConcurrency:      viper.GetInt("http.max_concurrency"),
		RequestsPerSecond:   viper.GetFloat64("http.requests_per_second"),
		SessionCheckURL:     viper.GetString("session.check_url"),
		SessionCheckPattern: viper.GetString("session.check_pattern"),
		Checks:              []string{"*"},
		Reports:             map[string]string{},
	}
}

func (o *Options) Validate() error {
	validate := validator.New()
	return validate.Struct(o)
}

// RedundancySnapshot deep-copies the redundancy counters so the values
// mutated during the scan can be restored for reporting.
func (o *Options) RedundancySnapshot() map[string]int {
	return lib.CopyCountMap(o.Redundancy)
}

// RestoreRedundancy replaces the live counters with a previously taken
// snapshot.
func (o *Options) RestoreRedundancy(snapshot map[string]int) {
	o.Redundancy = lib.CopyCountMap(snapshot)
}

// Copy returns a shallow copy with independent slices and maps, suitable
// for embedding into a result snapshot.
func (o *Options) Copy() Options {
	c := *o
	c.RestrictPaths = append([]string(nil), o.RestrictPaths...)
	c.ExtendPaths = append([]string(nil), o.ExtendPaths...)
	c.Checks = append([]string(nil), o.Checks...)
	c.Plugins = append([]string(nil), o.Plugins...)
	c.IncludePatterns = append([]string(nil), o.IncludePatterns...)
	c.ExcludePatterns = append([]string(nil), o.ExcludePatterns...)
	c.Redundancy = lib.CopyCountMap(o.Redundancy)
	if o.Reports != nil {
		c.Reports = make(map[string]string, len(o.Reports))
		for k, v := range o.Reports {
			c.Reports[k] = v
		}
	}
	return c
}
