package cmd

import (
	"fmt"
	"os"

	"EchoCanvas/config"
	"EchoCanvas/logger"
	"EchoCanvas/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "echo-canvas",
	Short: "Echo Canvas is a music discovery and remix backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(appConfig())
	},
}

// appConfig loads the configuration and initialises the logger from it.
func appConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	return cfg
}

// Execute executes the root command.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
