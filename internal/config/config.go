package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func LoadConfig() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath("/etc/arachni/")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warn().Msg("Config file not found")
		} else {
			log.Panic().Err(err).Msg("Fatal error reading config file")
		}
	}
	SetDefaultConfig()
}

func SetDefaultConfig() {
	// HTTP
	viper.SetDefault("http.version", "1.1")
	viper.SetDefault("http.user_agent", "arachni/"+"0.2.0")
	viper.SetDefault("http.timeout", 15)
	viper.SetDefault("http.max_concurrency", 20)
	viper.SetDefault("http.requests_per_second", 0)
	viper.SetDefault("http.max_redirects", 10)
	viper.SetDefault("http.proxy", "")
	viper.SetDefault("http.headers", map[string]string{})
	viper.SetDefault("http.cookies", map[string]string{})

	// Crawl
	viper.SetDefault("crawl.max_depth", 10)
	viper.SetDefault("crawl.max_pages", 0)
	viper.SetDefault("crawl.follow_subdomains", false)
	viper.SetDefault("crawl.ignored_extensions", []string{
		"png", "jpg", "jpeg", "gif", "svg", "ico", "woff", "woff2", "ttf",
		"eot", "mp4", "webm", "mp3", "avi", "zip", "tar", "gz", "pdf",
	})

	// Audit
	viper.SetDefault("audit.page_precision", 2)
	viper.SetDefault("audit.exclude_binaries", true)
	viper.SetDefault("audit.train_budget", 25)
	viper.SetDefault("audit.timing.slow_multiplier", 4.0)
	viper.SetDefault("audit.timing.slow_floor_ms", 1000)

	// Session
	viper.SetDefault("session.check_url", "")
	viper.SetDefault("session.check_pattern", "")

	// Report
	viper.SetDefault("report.only_positives", false)
}
