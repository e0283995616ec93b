package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/pipeline"
	"github.com/sigreer/assetpulse/internal/report"
	"github.com/sigreer/assetpulse/internal/sheet"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Ingest spreadsheet exports and store a snapshot for a run date",
	Long: `Read every workbook and CSV export in the input directories, normalize
and deduplicate the device rows, and store the snapshot and summary under
the run date. Re-running for the same date replaces that date's data.

Examples:
  assetpulse build --in "/data/intune;/data/tanium"
  assetpulse build --in /data/exports --run-date 2025-11-04`,
	Run: runBuild,
}

func init() {
	buildCmd.Flags().String("in", "", "semicolon-separated input directories (overrides config)")
	buildCmd.Flags().String("run-date", "", "run date to store under (default today)")
	buildCmd.Flags().Int("window-days", 0, "activity window in days (overrides config)")
	buildCmd.Flags().Bool("json", false, "Output summary as JSON")
	buildCmd.Flags().Bool("verbose", false, "Show files and sheets as they are read")
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	inFlag, _ := cmd.Flags().GetString("in")
	runDate, _ := cmd.Flags().GetString("run-date")
	windowDays, _ := cmd.Flags().GetInt("window-days")
	jsonOut, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	dirs := cfg.Inputs
	if inFlag != "" {
		dirs = sheet.SplitDirs(inFlag)
	}
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, `Missing --in "dirA;dirB"`)
		os.Exit(1)
	}
	if runDate == "" {
		runDate = time.Now().Format("2006-01-02")
	}
	if windowDays <= 0 {
		windowDays = cfg.ActiveWindowDays
	}

	mapper, err := cfg.Mapper()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in column rules: %v\n", err)
		os.Exit(1)
	}

	files := sheet.Discover(dirs, cfg.Extensions)
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No spreadsheet files found in provided input directories.")
		os.Exit(2)
	}
	if verbose {
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "Reading %s\n", f)
		}
	}

	run := db.NewRun(runDate)
	sheets, warnings := sheet.ReadAll(files)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}
	if verbose {
		for _, s := range sheets {
			fmt.Fprintf(os.Stderr, "  sheet %s: %d rows\n", s.Source, s.Rows())
		}
	}
	run.Files = len(files)
	run.Warnings = len(warnings)
	for _, w := range warnings {
		run.Events = append(run.Events, db.NewEvent(db.EventReadWarning, w.Source, w.Err.Error(), nil))
	}

	database := openDB(cfg)
	defer database.Close()

	opts := pipeline.Options{
		RunDate: runDate,
		Window:  time.Duration(windowDays) * 24 * time.Hour,
		Mapper:  mapper,
	}
	res, err := pipeline.Run(context.Background(), database, sheets, opts, run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := report.New(os.Stdout)
	if jsonOut {
		p.PrintJSON(struct {
			RunDate string `json:"run_date"`
			Summary any    `json:"summary"`
		}{runDate, res.Summary})
		return
	}

	fmt.Printf("Built %s\n", database.Path())
	fmt.Printf("Devices this run: %d\n", len(res.Devices))
	fmt.Printf("Compliance (active): %.2f%%\n", res.Summary.CompliancePct)
	if res.Unnamed > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d rows without a hostname\n", res.Unnamed)
	}
	if verbose {
		fmt.Println()
		p.Summary(runDate, res.Summary)
	}
}
