/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/orderdesk/apiserver/config"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orderdesk",
	Short: "Order desk API server",
	Long: `Order desk API server: user accounts, bearer-token sessions and
purchase requests over HTTP.

	orderdesk server
	orderdesk migrate up
	orderdesk worker
	orderdesk admin grant --email someone@example.com
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment and builds the process logger.
func loadConfig() (config.Config, logging.Logger, error) {
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	return cfg, logger, nil
}
