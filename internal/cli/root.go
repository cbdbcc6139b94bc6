package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/knot-kb/kbmetrics/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kbmetrics",
	Short: "kbmetrics - popularity and confidence scores for entity knowledge bases",
	Long: `kbmetrics maintains a flat-file, multi-typed entity knowledge base and
augments every entity with normalized popularity and confidence scores.

It ingests raw statistics from Wikipedia pageview and backlink dumps,
buckets entities by their normalized type-set, builds per-bucket percentile
tables, and writes SCORE WIKI, SCORE METRICS and CONFIDENCE back into the
knowledge base for a downstream disambiguation pipeline.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kbmetrics v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kbmetrics/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".kbmetrics"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match KBMETRICS_*
	viper.SetEnvPrefix("KBMETRICS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the runtime configuration: defaults overlaid with the
// config file / environment.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if viper.IsSet("kb.type_delim") {
		cfg.KB.TypeDelim = viper.GetString("kb.type_delim")
	}
	if viper.IsSet("lock.enabled") {
		cfg.Lock.Enabled = viper.GetBool("lock.enabled")
	}
	if viper.IsSet("lock.timeout") {
		cfg.Lock.Timeout = viper.GetDuration("lock.timeout")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.dir") {
		cfg.Cache.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	}
	if viper.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = viper.GetInt("concurrency.workers")
	}
	if viper.IsSet("output.progress") {
		cfg.Output.Progress = viper.GetBool("output.progress")
	}
	cfg.Output.Verbose = viper.GetBool("verbose")

	if cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = filepath.Join(home, ".kbmetrics", "cache")
		}
	}
	return cfg
}

// buildLogger creates the CLI logger: warnings and errors by default, the
// full engine chatter under --verbose.
func buildLogger() *zap.Logger {
	logCfg := zap.NewDevelopmentConfig()
	if !verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	log, err := logCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
