package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/assetpulse/internal/config"
	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/version"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "assetpulse",
	Short: "Device inventory and compliance snapshots from spreadsheet exports",
	Long: `assetpulse reads device inventory exports (Excel workbooks and CSV files)
from several tools, maps their columns onto one schema, keeps the most
complete row per hostname and stores a dated snapshot plus a compliance
summary in a SQLite database.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/assetpulse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(rulesCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg
}

func openDB(cfg *config.Config) *db.DB {
	database, err := db.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return database
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
