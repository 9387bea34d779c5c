package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/harmony-sync/internal/config"
	applog "github.com/vovakirdan/harmony-sync/internal/log"
)

var (
	configFile string
	logLevel   string
	serverURL  string
	dbPath     string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "harmony-sync",
	Short: "Headless Harmony chat client",
	Long: `harmony-sync keeps a local view of your Harmony guilds, channels and
messages in sync with the server over a websocket.

Store a session token with 'harmony-sync token set <token>', then start the
client with 'harmony-sync run'.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Websocket URL of the Harmony server")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path of the credential database")
}

// loadConfig resolves configuration with flag overrides applied last.
func loadConfig() (config.Config, error) {
	boot := applog.New(logLevel)
	cfg, path, err := config.Load(boot, configFile)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{
		LogLevel:  logLevel,
		ServerURL: serverURL,
		DBPath:    dbPath,
	})
	return cfg, nil
}
