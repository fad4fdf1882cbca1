package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/profiling"
	"github.com/grovetools/fleetview/tui/components/table"
	"github.com/grovetools/fleetview/tui/theme"
)

func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Request restock predictions",
		Long: `Ask the backend for stockout forecasts. The period and categories default
to the predictions section of fleetview.yml.`,
		Example: `fleetview predict --period 14 --category electronics`,
		Args:    cobra.NoArgs,
		RunE:    runPredict,
	}
	cmd.Flags().Int("period", 0, "Forecast horizon in days")
	cmd.Flags().StringSlice("category", nil, "Restrict to product categories (repeatable)")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, _, client, err := authenticatedClient(cmd)
	if err != nil {
		return err
	}

	req := models.PredictionRequest{
		PeriodDays: cfg.Predictions.PeriodDays,
		Categories: cfg.Predictions.Categories,
	}
	if cmd.Flags().Changed("period") {
		req.PeriodDays, _ = cmd.Flags().GetInt("period")
	}
	if cmd.Flags().Changed("category") {
		req.Categories, _ = cmd.Flags().GetStringSlice("category")
	}

	fetch := profiling.Start("predict.request")
	predictions, err := client.Predict(cmd.Context(), req)
	fetch.Stop()
	if err != nil {
		return err
	}

	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd.OutOrStdout(), predictions)
	}
	if len(predictions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), theme.DefaultTheme.Muted.Render("No predictions returned."))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderPredictions(predictions))
	return nil
}

func renderPredictions(predictions []models.Prediction) string {
	rows := make([][]string, 0, len(predictions))
	for _, p := range predictions {
		stockout := "-"
		if p.HasStockout() {
			stockout = fmt.Sprintf("%d days", p.DaysUntilStockout)
		}
		rows = append(rows, []string{
			p.Label(),
			humanize.Comma(int64(p.CurrentStock)),
			stockout,
			humanize.Comma(int64(p.RecommendedOrder)),
		})
	}
	return table.SimpleTable([]string{"PRODUCT", "STOCK", "STOCKOUT IN", "ORDER"}, rows)
}
