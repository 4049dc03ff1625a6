// Package main is the entry point for the mailrelay relay server and
// compose client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mailrelay/internal/config"
	"github.com/shineum/mailrelay/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mailrelay",
	Short: "Compose email and relay it to a delivery provider",
	Long: `mailrelay runs an HTTP relay that forwards composed messages to Resend,
AWS SES, Microsoft Graph or stdout, and a terminal client that composes
messages and posts them to that relay.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")

	rootCmd.AddCommand(
		newServeCmd(),
		newSendCmd(),
		newComposeCmd(),
		newInboxCmd(),
		newCredentialCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}
