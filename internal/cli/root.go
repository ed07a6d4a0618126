// Package cli implements the minidb command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mit.edu/dsg/minidb"
	"mit.edu/dsg/minidb/config"
)

const defaultConfigPath = "minidb.yaml"

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	catalog    string
	logLevel   string
	output     string
}

// open resolves the configuration (flag > env > config file > default) and opens the database.
func (o *rootOptions) open(cmd *cobra.Command) (*minidb.Database, error) {
	var cfg *config.Config
	var err error
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadOptional(o.configPath)
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("catalog") {
		cfg.CatalogFile = o.catalog
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.CatalogFile == "" {
		return nil, fmt.Errorf("no catalog file: use --catalog, MINIDB_CATALOG or catalog-file in %s", o.configPath)
	}
	return minidb.Open(cfg, cfg.NewLogger())
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "minidb",
		Short:         "Query heap-file tables",
		Long:          "Command-line interface for scanning, filtering and aggregating minidb tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "Schema file describing the tables")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(newTablesCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newAggregateCmd(opts))
	rootCmd.AddCommand(newLoadCmd(opts))

	return rootCmd
}
