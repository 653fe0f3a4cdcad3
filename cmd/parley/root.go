package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/logging"
)

const version = "0.3.0"

// logLevelFlag overrides the configured log level when set.
var logLevelFlag string

// NewRootCommand builds the parley CLI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parley",
		Short: "Conversational agent with web search and human escalation",
		Long: `Parley runs a tool-using conversational agent. It answers questions
directly, reaches for web search when it needs fresh information, and
suspends to ask a human when the model requests assistance.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("parley %s\n", version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logging.SetLevel(logging.ParseLevel(level))
	return cfg, nil
}
