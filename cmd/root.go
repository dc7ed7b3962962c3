package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	backendURL string
	dbPath     string
	redisURL   string
	logLevel   string
	dropDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forensight",
	Short: "Terminal-first forensic case and evidence console",
	Long: `ForenSight is a terminal-first dashboard for investigators. It records
scan results from an external analysis backend as evidence inside named
cases, lets the analyst inspect each item, and exports case findings as
plain-text reports.

Features:
- Case and evidence log management (most-recent-first, immutable records)
- URL / Email / File / Browser scan ingestion via the analysis backend
- Deterministic plain-text report export per case
- SQLite session archive with per-case activity trail
- Redis Streams notifications for ingested evidence
- Drop-folder ingestion of offline scan results`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.forensight.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "http://127.0.0.1:5000", "Analysis backend base URL")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ":memory:", "SQLite archive path (default keeps nothing past the session)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis connection URL for evidence notifications (empty disables)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dropDir, "drop-dir", "data/drop", "Directory watched for offline scan-result JSON files")

	// Bind flags to viper
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("ingest.drop_dir", rootCmd.PersistentFlags().Lookup("drop-dir"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Local .env files are honored before environment binding.
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".forensight" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".forensight")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Set defaults
	viper.SetDefault("backend.url", "http://127.0.0.1:5000")
	viper.SetDefault("database.path", ":memory:")
	viper.SetDefault("redis.url", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("ingest.drop_dir", "data/drop")
	viper.SetDefault("export.dir", "exports")
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL: viper.GetString("backend.url"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
		Ingest: IngestConfig{
			DropDir: viper.GetString("ingest.drop_dir"),
		},
		Export: ExportConfig{
			Dir: viper.GetString("export.dir"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Export   ExportConfig   `mapstructure:"export"`
}

type BackendConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type IngestConfig struct {
	DropDir string `mapstructure:"drop_dir"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}
