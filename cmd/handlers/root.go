/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"contentops/internal/config"
	"contentops/internal/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contentops",
		Short: "contentops runs the AI content and lead capture backend.",
		Long: `contentops serves the content operations API: an AI chat assistant that
drafts and publishes blog posts, topic suggestions, cover image search,
lead capture with CRM webhook delivery, the contact form and scheduled
article publishing.

Examples:
  # Start the HTTP API (and the scheduler when scheduler.enabled is set)
  contentops serve

  # Apply database migrations
  contentops migrate up

  # Draft an article from the terminal
  contentops generate --category logistics`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.contentops.yaml or $HOME/.contentops.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewWorkerCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set, then applies
// the logging section.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
