package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/moby/patternmatcher"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/api"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/profiling"
	"github.com/grovetools/fleetview/tui/components/table"
	"github.com/grovetools/fleetview/tui/theme"
)

const dateLayout = "2006-01-02"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query historical scan discrepancies",
		Long: `List one page of the historical inventory report. Dates are YYYY-MM-DD;
--to includes the whole day.

--sku filters the returned page by glob patterns. A pattern starting with
'!' excludes SKUs matched by earlier patterns.`,
		Example: `# Critical items in zone A during March
fleetview history --zone A --status CRITICAL --from 2026-03-01 --to 2026-03-31

# Routers only, exported for a spreadsheet
fleetview history --sku 'TEL-4*' --export routers.csv`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().String("from", "", "Earliest scan date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest scan date (YYYY-MM-DD)")
	cmd.Flags().String("zone", "", "Zone filter")
	cmd.Flags().String("status", "", "Status filter (OK, LOW_STOCK, CRITICAL)")
	cmd.Flags().Int("page", 0, "Page number, starting at 0")
	cmd.Flags().Int("limit", api.DefaultHistoryLimit, "Rows per page")
	cmd.Flags().StringSlice("sku", nil, "SKU glob patterns (repeatable)")
	cmd.Flags().String("export", "", "Write the page to a semicolon-separated CSV file")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	q, err := historyQuery(cmd)
	if err != nil {
		return err
	}
	_, _, client, err := authenticatedClient(cmd)
	if err != nil {
		return err
	}

	fetch := profiling.Start("history.fetch")
	page, err := client.History(cmd.Context(), q)
	fetch.Stop()
	if err != nil {
		return err
	}
	if patterns, _ := cmd.Flags().GetStringSlice("sku"); len(patterns) > 0 {
		if page.Items, err = filterSKUs(page.Items, patterns); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		if err := exportHistory(path, page.Items); err != nil {
			return err
		}
		logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).
			Success(fmt.Sprintf("Exported %s rows to %s", humanize.Comma(int64(len(page.Items))), path))
		return nil
	}

	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd.OutOrStdout(), page)
	}
	defer profiling.Start("history.render").Stop()
	fmt.Fprintln(cmd.OutOrStdout(), renderHistory(page, time.Now()))
	return nil
}

func historyQuery(cmd *cobra.Command) (api.HistoryQuery, error) {
	var q api.HistoryQuery
	var err error

	from, _ := cmd.Flags().GetString("from")
	if from != "" {
		if q.From, err = time.ParseInLocation(dateLayout, from, time.Local); err != nil {
			return q, errors.InvalidInput(fmt.Sprintf("invalid --from date %q, want YYYY-MM-DD", from))
		}
	}
	to, _ := cmd.Flags().GetString("to")
	if to != "" {
		day, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return q, errors.InvalidInput(fmt.Sprintf("invalid --to date %q, want YYYY-MM-DD", to))
		}
		q.To = day.Add(24*time.Hour - time.Second)
	}

	q.Zone, _ = cmd.Flags().GetString("zone")
	q.Status, _ = cmd.Flags().GetString("status")
	q.Page, _ = cmd.Flags().GetInt("page")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	return q, nil
}

// filterSKUs keeps the entries whose SKU matches the glob patterns.
func filterSKUs(items []models.HistoryEntry, patterns []string) ([]models.HistoryEntry, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid --sku pattern: %v", err))
	}
	out := make([]models.HistoryEntry, 0, len(items))
	for _, it := range items {
		ok, err := pm.MatchesOrParentMatches(it.ProductID)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("invalid --sku pattern: %v", err))
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func renderHistory(page *api.HistoryPage, now time.Time) string {
	t := theme.DefaultTheme
	if len(page.Items) == 0 {
		return t.Muted.Render("No matching scans.")
	}

	rows := make([][]string, 0, len(page.Items))
	statuses := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		rows = append(rows, []string{
			humanize.RelTime(it.Date, now, "ago", "from now"),
			it.RobotID,
			it.Zone,
			it.ProductID,
			it.ProductName,
			humanize.Comma(int64(it.Expected)),
			humanize.Comma(int64(it.Actual)),
			signed(it.Difference),
			it.Status,
		})
		statuses = append(statuses, it.Status)
	}

	tbl := table.NewBuilder().
		WithHeaders("SCANNED", "ROBOT", "ZONE", "SKU", "PRODUCT", "EXPECTED", "ACTUAL", "DIFF", "STATUS").
		WithRows(rows...).
		WithStyler(func(row, col int, base lipgloss.Style) lipgloss.Style {
			if col == 8 && row >= 0 && row < len(statuses) {
				return base.Inherit(t.SeverityStyle(historySeverity(statuses[row])))
			}
			return base
		}).
		Build()

	footer := fmt.Sprintf("Page %d of %d · %s total",
		page.Pagination.Page+1, max(page.Pagination.TotalPages, 1), humanize.Comma(int64(page.Total)))
	return tbl.String() + "\n" + t.Muted.Render(footer)
}

// historySeverity maps report statuses onto scan severities for coloring.
func historySeverity(status string) models.Severity {
	switch strings.ToUpper(status) {
	case "CRITICAL":
		return models.SeverityCritical
	case "LOW", "LOW_STOCK":
		return models.SeverityLow
	}
	return models.SeverityOK
}

func signed(n int) string {
	if n > 0 {
		return "+" + humanize.Comma(int64(n))
	}
	return humanize.Comma(int64(n))
}

func exportHistory(path string, items []models.HistoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeHistoryCSV(f, items); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeHistoryCSV(w io.Writer, items []models.HistoryEntry) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	_ = cw.Write([]string{"date", "robot_id", "zone", "sku", "product", "expected", "actual", "difference", "status"})
	for _, it := range items {
		_ = cw.Write([]string{
			it.Date.Format("2006-01-02T15:04:05"),
			it.RobotID,
			it.Zone,
			it.ProductID,
			it.ProductName,
			strconv.Itoa(it.Expected),
			strconv.Itoa(it.Actual),
			strconv.Itoa(it.Difference),
			it.Status,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
