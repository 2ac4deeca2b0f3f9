package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
	version = "dev"
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "certs",
	Short: "DNS-01 certificate issuance for DigitalOcean-hosted domains",
	Long: `certs obtains TLS certificates from Let's Encrypt using DNS-01
challenges published through the DigitalOcean DNS API, then writes
privkey.pem and fullchain.pem to disk.

A run registers a fresh ACME account, validates every configured domain
and persists the resulting key and chain. Configuration lives in a TOML
file; secrets can be supplied via CERTS_* environment variables.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "certs.toml", "Path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// newLogger builds the slog logger commands share. Logs go to stderr so
// stdout stays clean for results.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose || os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
