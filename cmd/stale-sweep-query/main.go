package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"stale-sweep/internal/exitcodes"
	"stale-sweep/internal/history"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "/var/lib/stale-sweep/removals.db", "Path to removal history database")
	recent := flag.Int("recent", 0, "Show N most recent removals")
	stats := flag.Bool("stats", false, "Show removal statistics")
	action := flag.String("action", "", "Filter by action (REMOVE, DRY_RUN, ERROR)")
	kind := flag.String("kind", "", "Filter by entry kind (directory, file)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	largest := flag.Int("largest", 0, "Show N largest removals")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := history.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *action != "":
		showByAction(db, *action, *jsonOutput)
	case *kind != "":
		showByKind(db, *kind, *jsonOutput)
	case *pathPattern != "":
		showByPath(db, *pathPattern, *jsonOutput)
	case *largest > 0:
		showLargest(db, *largest, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  stale-sweep-query --recent 10          # Show 10 most recent removals")
		fmt.Println("  stale-sweep-query --stats              # Show removal statistics")
		fmt.Println("  stale-sweep-query --action ERROR       # Show failed removals")
		fmt.Println("  stale-sweep-query --kind directory     # Show removed directories")
		fmt.Println("  stale-sweep-query --path '/srv/build/%' # Show removals under /srv/build")
		fmt.Println("  stale-sweep-query --largest 10         # Show 10 largest removals")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *history.DB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removal Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Removed:    %d\n", stats.TotalRemoved)
	fmt.Printf("Total Dry Run:    %d\n", stats.TotalDryRun)
	fmt.Printf("Total Errors:     %d\n", stats.TotalErrors)
	fmt.Printf("Space Freed:      %s\n\n", formatBytes(stats.TotalSpaceFreed))

	if len(stats.ByKind) > 0 {
		fmt.Println("By Kind:")
		for kind, count := range stats.ByKind {
			fmt.Printf("  %-15s %d\n", kind, count)
		}
		fmt.Println()
	}

	if len(stats.ByAction) > 0 {
		fmt.Println("By Action:")
		for action, count := range stats.ByAction {
			fmt.Printf("  %-15s %d\n", action, count)
		}
	}
}

func showRecent(db *history.DB, limit int, jsonOutput bool) {
	entries, err := db.GetRecent(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent removals: %v", err)
	}

	printOrDump(entries, jsonOutput)
}

func showByAction(db *history.DB, action string, jsonOutput bool) {
	entries, err := db.GetByAction(action)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by action: %v", err)
	}

	if !jsonOutput {
		fmt.Printf("Records with action: %s\n\n", action)
	}
	printOrDump(entries, jsonOutput)
}

func showByKind(db *history.DB, kind string, jsonOutput bool) {
	entries, err := db.GetByKind(kind)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by kind: %v", err)
	}

	if !jsonOutput {
		fmt.Printf("Removals of kind: %s\n\n", kind)
	}
	printOrDump(entries, jsonOutput)
}

func showByPath(db *history.DB, pathPattern string, jsonOutput bool) {
	entries, err := db.GetByPath(pathPattern)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by path: %v", err)
	}

	if !jsonOutput {
		fmt.Printf("Removals matching path pattern: %s\n\n", pathPattern)
	}
	printOrDump(entries, jsonOutput)
}

func showLargest(db *history.DB, limit int, jsonOutput bool) {
	entries, err := db.GetLargest(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get largest removals: %v", err)
	}

	if !jsonOutput {
		fmt.Printf("Largest %d removals:\n\n", limit)
	}
	printOrDump(entries, jsonOutput)
}

func printOrDump(entries []history.Entry, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}
	printEntries(entries)
}

func printEntries(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println("No records found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tKind\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t----\t----")

	for _, e := range entries {
		timestamp := e.Timestamp.Format("2006-01-02 15:04:05")
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, timestamp, e.Action, e.Kind, formatBytes(e.Size), e.Path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
