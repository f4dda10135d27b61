// Package cli wires internal/config, internal/logging, and every
// domain package into the cobra command verbs named in §6's option
// table ("crawl", "resume", "export-sitemap", "parse-worker"),
// grounded on the teacher's internal/cli/root.go command-tree shape
// and on jonesrussell-north-cloud's cmd/root.go for the viper
// flag/env/file binding (B.1).
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/politeweb/crawler/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "A politeness-first distributed web crawler",
	Long:  `A Redis-backed web crawler that separates URL discovery (fetch) from link extraction (parse), enforcing robots.txt and crawl-delay at every hop.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./crawler.yaml)")
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(parseWorkerCmd)
}

// loadConfig binds flags already registered on cmd, environment
// variables under the CRAWLER_ prefix, and an optional config file
// into a config.Config, then validates it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("crawler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, fmt.Errorf("cli: bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return config.Config{}, fmt.Errorf("cli: read config file: %w", err)
		}
	}

	def := config.Default()
	cfg := config.Config{
		SeedFile:             v.GetString("seed-file"),
		Email:                v.GetString("email"),
		DataDir:              getStringOr(v, "data-dir", def.DataDir),
		ExcludeFile:          v.GetString("exclude-file"),
		MaxWorkers:           getIntOr(v, "workers", def.MaxWorkers),
		MaxPages:             v.GetInt("max-pages"),
		MaxDuration:          v.GetDuration("max-duration"),
		LogLevel:             getStringOr(v, "log-level", def.LogLevel),
		Resume:               v.GetBool("resume"),
		UserAgent:            getStringOr(v, "user-agent", def.UserAgent),
		SeededURLsOnly:       v.GetBool("seeded-urls-only"),
		RedisHost:            getStringOr(v, "redis-host", def.RedisHost),
		RedisPort:            getIntOr(v, "redis-port", def.RedisPort),
		RedisDB:              v.GetInt("redis-db"),
		FetchTimeout:         getDurationOr(v, "fetch-timeout", def.FetchTimeout),
		RobotsTimeout:        getDurationOr(v, "robots-timeout", def.RobotsTimeout),
		RedisTimeout:         getDurationOr(v, "redis-timeout", def.RedisTimeout),
		MaxRedirects:         getIntOr(v, "max-redirects", def.MaxRedirects),
		MaxBodyBytes:         getInt64Or(v, "max-body-bytes", def.MaxBodyBytes),
		MinCrawlDelay:        getDurationOr(v, "min-crawl-delay", def.MinCrawlDelay),
		EnableTLSFingerprint: v.GetBool("enable-tls-fingerprint"),
		UseHeaderRotation:    getBoolOr(v, "use-header-rotation", def.UseHeaderRotation),
		EnableJSRendering:    v.GetBool("enable-js-rendering"),
		EnableSQLiteIndex:    v.GetBool("enable-sqlite"),
		ExpandSitemaps:       v.GetBool("expand-sitemaps"),
		ParseWorkers:         getIntOr(v, "parse-workers", def.ParseWorkers),
		MaxRetries:           getIntOr(v, "max-retries", def.MaxRetries),
		ShutdownGracePeriod:  getDurationOr(v, "shutdown-grace-period", def.ShutdownGracePeriod),
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func getStringOr(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

func getIntOr(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	return v.GetInt(key)
}

func getInt64Or(v *viper.Viper, key string, def int64) int64 {
	if !v.IsSet(key) {
		return def
	}
	return v.GetInt64(key)
}

func getDurationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	return v.GetDuration(key)
}

func getBoolOr(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	return v.GetBool(key)
}
