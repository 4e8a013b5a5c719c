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

	"signalhound/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalhound",
		Short: "Signalhound maintains a deduplicated, quality-scored catalog of grant and trend signals.",
		Long: `Signalhound discovers candidate documents from RSS/Atom feeds and seed
lists, screens them with an LLM, and folds the survivors into a signal
catalog: near-identical reports of the same opportunity land on one
signal, corroborating coverage raises its quality score, and noise from
distrusted domains is filtered before it costs a full analysis.

Typical workflow:
  signalhound migrate up            # create the database schema
  signalhound feeds add <url>       # register feed sources
  signalhound ingest                # discover, triage, dedup, score
  signalhound signals list          # browse the catalog
  signalhound search "ai grants"    # hybrid lexical+vector search`,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.signalhound.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewSignalsCmd())
	rootCmd.AddCommand(NewQualityCmd())
	rootCmd.AddCommand(NewFeedsCmd())
	rootCmd.AddCommand(NewRateCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewCacheCmd())

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

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Load configuration using the centralized config module
	_, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Show which config file is being used (if any)
	if config.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", config.ConfigFileUsed())
	}
}
