package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/api"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/profiling"
)

// maxImportErrors caps the per-row errors printed after an import.
const maxImportErrors = 10

type importOutput struct {
	*api.ImportResult
	Statistics *models.Statistics `json:"statistics,omitempty"`
}

func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import inventory from a CSV file",
		Long: `Upload a semicolon-separated inventory file. The header row is skipped;
each data row needs product_id;product_name;quantity;zone;date.

When at least one row is stored a fresh snapshot is fetched and its
statistics are printed. Open dashboards are notified by the backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd, "import")
			_, _, client, err := authenticatedClient(cmd)
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			upload := profiling.Start("import.upload")
			result, err := client.ImportCSV(cmd.Context(), path, f)
			upload.Stop()
			if err != nil {
				return err
			}

			out := importOutput{ImportResult: result}
			if result.Success > 0 {
				refresh := profiling.Start("import.refresh")
				snap, err := client.FetchSnapshot(cmd.Context())
				refresh.Stop()
				if err != nil {
					logger.WithError(err).Warn("Snapshot refresh after import failed")
				} else {
					out.Statistics = &snap.Statistics
				}
			}

			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if result.Failed == 0 {
				pretty.Success(fmt.Sprintf("Imported %s rows", humanize.Comma(int64(result.Success))))
			} else {
				pretty.Warn(fmt.Sprintf("Imported %s rows, %s failed",
					humanize.Comma(int64(result.Success)), humanize.Comma(int64(result.Failed))))
				for i, msg := range result.Errors {
					if i == maxImportErrors {
						pretty.Raw(fmt.Sprintf("  … and %d more", len(result.Errors)-i))
						break
					}
					pretty.Raw("  " + msg)
				}
			}
			if s := out.Statistics; s != nil {
				pretty.Field("Scanned today", humanize.Comma(int64(s.ScannedToday)))
				pretty.Field("Critical items", humanize.Comma(int64(s.CriticalItems)))
			}
			return nil
		},
	}
}
