package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigreer/assetpulse/internal/classify"
	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/device"
	"github.com/sigreer/assetpulse/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored summaries by run date",
	Run:   runHistory,
}

var summaryCmd = &cobra.Command{
	Use:   "summary [run-date]",
	Short: "Show the summary for a run date (default latest)",
	Args:  cobra.MaximumNArgs(1),
	Run:   runSummary,
}

var devicesCmd = &cobra.Command{
	Use:   "devices [run-date]",
	Short: "List the device snapshot for a run date (default latest)",
	Long: `List the stored device snapshot for a run date.

Examples:
  assetpulse devices --status non-compliant
  assetpulse devices 2025-11-04 --missing crowdstrike
  assetpulse devices --active`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDevices,
}

var showCmd = &cobra.Command{
	Use:   "show <hostname>",
	Short: "Show a device and its snapshots across run dates",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List logged ingest runs",
	Run:   runRuns,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective column mapping rules",
	Run:   runRules,
}

func init() {
	historyCmd.Flags().Int("limit", 30, "Maximum number of run dates to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")

	summaryCmd.Flags().Bool("json", false, "Output as JSON")

	devicesCmd.Flags().String("status", "", "Filter by compliance status (compliant, non-compliant, grace period)")
	devicesCmd.Flags().String("missing", "", "Only devices missing a tool (crowdstrike, tanium, jamf)")
	devicesCmd.Flags().Bool("active", false, "Only devices active as of now")
	devicesCmd.Flags().Bool("json", false, "Output as JSON")

	showCmd.Flags().Bool("json", false, "Output as JSON")

	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	runsCmd.Flags().String("run-date", "", "Only runs for this run date")
	runsCmd.Flags().String("id", "", "Show the events logged by one run")
	runsCmd.Flags().Bool("events", false, "Show recent events across runs instead of runs")
	runsCmd.Flags().Bool("json", false, "Output as JSON")
}

var toolFlagFields = map[string]device.Field{
	"crowdstrike": device.FieldCrowdstrikeStatus,
	"cs":          device.FieldCrowdstrikeStatus,
	"tanium":      device.FieldTaniumStatus,
	"jamf":        device.FieldJamfStatus,
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	database := openDB(cfg)
	defer database.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	rows, err := database.ListSummaries(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("No runs stored. Run 'assetpulse build' to populate.")
		return
	}

	p := report.New(os.Stdout)
	if jsonOut {
		p.PrintJSON(rows)
		return
	}
	p.History(rows)
}

// resolveRunDate returns args[0] or the latest stored run date
func resolveRunDate(database *db.DB, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	runDate, err := database.LatestRunDate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if runDate == "" {
		fmt.Println("No runs stored. Run 'assetpulse build' to populate.")
		os.Exit(0)
	}
	return runDate
}

func runSummary(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	database := openDB(cfg)
	defer database.Close()

	jsonOut, _ := cmd.Flags().GetBool("json")
	runDate := resolveRunDate(database, args)

	s, err := database.GetSummary(runDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if s == nil {
		fmt.Fprintf(os.Stderr, "No summary for run date %s\n", runDate)
		os.Exit(1)
	}

	p := report.New(os.Stdout)
	if jsonOut {
		p.PrintJSON(s)
		return
	}
	p.Summary(s.RunDate, s.Summary)
}

func runDevices(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	database := openDB(cfg)
	defer database.Close()

	status, _ := cmd.Flags().GetString("status")
	missing, _ := cmd.Flags().GetString("missing")
	activeOnly, _ := cmd.Flags().GetBool("active")
	jsonOut, _ := cmd.Flags().GetBool("json")

	filter := db.HistoryFilter{Status: status}
	if missing != "" {
		f, ok := toolFlagFields[missing]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown tool %q (use crowdstrike, tanium or jamf)\n", missing)
			os.Exit(1)
		}
		filter.MissingTool = f
	}

	runDate := resolveRunDate(database, args)
	records, err := database.GetHistory(runDate, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying devices: %v\n", err)
		os.Exit(1)
	}

	window := time.Duration(cfg.ActiveWindowDays) * 24 * time.Hour
	now := time.Now()
	isActive := func(r *device.Record) bool { return classify.IsActive(r, now, window) }

	if activeOnly {
		kept := records[:0]
		for i := range records {
			if isActive(&records[i]) {
				kept = append(kept, records[i])
			}
		}
		records = kept
	}

	p := report.New(os.Stdout)
	if jsonOut {
		p.PrintJSON(classify.Classify(records, now, window))
		return
	}
	if len(records) == 0 {
		fmt.Printf("No devices for run date %s.\n", runDate)
		return
	}
	fmt.Printf("Run date: %s\n\n", runDate)
	p.Devices(records, isActive)
}

func runShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	database := openDB(cfg)
	defer database.Close()

	jsonOut, _ := cmd.Flags().GetBool("json")
	hostname := args[0]

	entries, err := database.GetHostHistory(hostname)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "Device not found: %s\n", hostname)
		os.Exit(1)
	}

	p := report.New(os.Stdout)
	if jsonOut {
		p.PrintJSON(entries)
		return
	}
	p.Host(hostname, entries)
}

func runRuns(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	database := openDB(cfg)
	defer database.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runDate, _ := cmd.Flags().GetString("run-date")
	runID, _ := cmd.Flags().GetString("id")
	eventsOnly, _ := cmd.Flags().GetBool("events")
	jsonOut, _ := cmd.Flags().GetBool("json")

	p := report.New(os.Stdout)

	if runID != "" || eventsOnly {
		var events []*db.RunEvent
		var err error
		if runID != "" {
			events, err = database.GetRunEvents(runID)
		} else {
			events, err = database.GetRecentEvents(limit)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			p.PrintJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Println("No events logged.")
			return
		}
		p.Events(events)
		return
	}

	runs, err := database.GetRuns(runDate, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		p.PrintJSON(runs)
		return
	}
	if len(runs) == 0 {
		fmt.Println("No runs logged.")
		return
	}
	p.Runs(runs)
}

func runRules(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	mapper, err := cfg.Mapper()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in column rules: %v\n", err)
		os.Exit(1)
	}
	report.New(os.Stdout).Rules(mapper.Rules())
}
