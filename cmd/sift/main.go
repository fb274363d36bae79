package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "sift",
		Short: "Query-string query engine over a declared relational schema",
		Long: `Sift compiles URL query strings into execution plans over a statically
declared relational schema and serves the results as nested JSON rows.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sift.yaml", "Path to the configuration file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
