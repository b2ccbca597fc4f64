package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/database"
	"github.com/nao1215/seoscan/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command inspects crawl results stored in the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Inspect stored crawl results for a domain",
		Long: `History lists and displays crawl reports saved by previous runs.

Every crawl is saved to a local SQLite database. This command shows the
stored jobs for a domain, prints a specific report, or traces how a
single URL's state changed across crawls.

Examples:
  # List all crawl jobs for a domain
  seoscan history example.com

  # List every audited domain in the database
  seoscan history --list-domains

  # Print the latest report for a domain
  seoscan history --latest example.com

  # Print a specific report by ID (use the list to find IDs)
  seoscan history --show-id 5 example.com

  # Trace a single URL across crawls
  seoscan history --url https://example.com/pricing example.com

  # Output reports as JSON
  seoscan history --latest --json example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list-domains", "L", false,
		"List all audited domains in the database")

	// Report selection flags
	cmd.Flags().Bool("latest", false,
		"Print the most recent crawl report for the domain")
	cmd.Flags().Int64P("show-id", "i", 0,
		"Print the crawl report with this ID")
	cmd.Flags().String("url", "",
		"Trace a single URL's state across stored crawls")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output reports in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listDomains, err := cmd.Flags().GetBool("list-domains")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so bad invocations
	// do not take the writer lock.
	var domain string
	if !listDomains {
		if len(args) == 0 {
			return errors.New("domain is required (use --list-domains to see audited domains)")
		}
		domain = strings.TrimSpace(args[0])
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listDomains {
		return listAuditedDomains(ctx, db)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	traceURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	if traceURL != "" {
		return traceURLHistory(ctx, db, traceURL, jsonOutput)
	}

	showID, err := cmd.Flags().GetInt64("show-id")
	if err != nil {
		return err
	}
	if showID > 0 {
		return showReportByID(ctx, db, domain, showID, jsonOutput)
	}

	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}
	if latest {
		return showLatestReport(ctx, db, domain, jsonOutput)
	}

	return listCrawlHistory(ctx, db, domain)
}

// listAuditedDomains lists all domains that have crawl records.
func listAuditedDomains(ctx context.Context, db *database.CrawlDB) error {
	domains, err := db.ListAuditedDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	if len(domains) == 0 {
		fmt.Println("No audited domains found in the database.")
		fmt.Println("\nUse 'seoscan crawl <url>' to audit a site.")
		return nil
	}

	fmt.Printf("Audited domains (%d):\n\n", len(domains))
	for _, domain := range domains {
		fmt.Printf("  • %s\n", domain)
	}
	fmt.Println("\nUse 'seoscan history <domain>' to see crawl jobs for a domain.")

	return nil
}

// listCrawlHistory lists all stored crawl jobs for a domain.
func listCrawlHistory(ctx context.Context, db *database.CrawlDB, domain string) error {
	jobs, err := db.GetCrawlHistory(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Printf("No crawl history found for %s\n", domain)
		fmt.Println("\nUse 'seoscan crawl' to audit this site.")
		return nil
	}

	fmt.Printf("Crawl history for %s (%d jobs):\n\n", domain, len(jobs))
	fmt.Printf("  %-6s  %-20s  %-11s  %-8s  %s\n", "ID", "Date", "Phase", "URLs", "Coverage")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range jobs {
		fmt.Printf("  %-6d  %-20s  %-11s  %-8d  %.1f%%\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.Phase,
			meta.Summary.TotalDiscovered,
			meta.Summary.CoveragePercent,
		)
	}

	fmt.Println("\nUse 'seoscan history --show-id <id> <domain>' to print a full report.")

	return nil
}

// showLatestReport prints the most recent report for a domain.
func showLatestReport(ctx context.Context, db *database.CrawlDB, domain string, jsonOutput bool) error {
	crawlReport, err := db.GetLatestCrawlReport(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get latest report: %w", err)
	}
	if crawlReport == nil {
		return fmt.Errorf("no crawl history found for %s", domain)
	}

	if jsonOutput {
		_, err := report.NewJSONWriter(os.Stdout).Write(crawlReport)
		return err
	}
	_, err = report.NewSimpleWriter(os.Stdout).Write(crawlReport)
	return err
}

// showReportByID prints a stored report by its database ID.
func showReportByID(ctx context.Context, db *database.CrawlDB, domain string, id int64, jsonOutput bool) error {
	crawlReport, err := db.GetCrawlReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get report with ID %d: %w", id, err)
	}
	if crawlReport == nil {
		return fmt.Errorf("report with ID %d not found", id)
	}
	if domain != "" && crawlReport.Domain != domain {
		return fmt.Errorf("report %d belongs to %s, not %s", id, crawlReport.Domain, domain)
	}

	if jsonOutput {
		_, err := report.NewJSONWriter(os.Stdout).Write(crawlReport)
		return err
	}
	_, err = report.NewSimpleWriter(os.Stdout).Write(crawlReport)
	return err
}

// traceURLHistory prints how a single URL's state changed across crawls.
func traceURLHistory(ctx context.Context, db *database.CrawlDB, rawURL string, jsonOutput bool) error {
	rows, err := db.URLHistory(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to get URL history: %w", err)
	}

	if len(rows) == 0 {
		fmt.Printf("No stored observations for %s\n", rawURL)
		fmt.Println("\nNote: the URL must match the normalized form stored by the crawler.")
		return nil
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	fmt.Printf("History for %s (%d observations):\n\n", rawURL, len(rows))
	fmt.Printf("  %-20s  %-18s  %-14s  %-6s  %s\n", "Date", "State", "Source", "Status", "Notes")
	fmt.Println("  " + strings.Repeat("-", 75))
	for _, row := range rows {
		notes := row.BlockReason
		fmt.Printf("  %-20s  %-18s  %-14s  %-6d  %s\n",
			row.Timestamp.Format("2006-01-02 15:04:05"),
			row.State,
			row.Source,
			row.StatusCode,
			notes,
		)
	}

	return nil
}
