package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/username/painthouse/src/handlers"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/services"
	"github.com/username/painthouse/src/utils"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(salesCmd)

	salesCmd.Flags().String("from", "", "First sale date to include (YYYY-MM-DD)")
	salesCmd.Flags().String("to", "", "Last sale date to include (YYYY-MM-DD)")
	salesCmd.Flags().Bool("publish", false, "Also write the report to the Sales Summary table")
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute the Inventory Summary from the transaction log",
	Long: `Replaces every Inventory Summary row with totals recomputed from the
Transaction History. Use it after editing the log by hand or when reconcile
reports drift.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		rows, err := svc.RebuildSummary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt summary: %d items\n", len(rows))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the stored Inventory Summary with a rebuild",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		report, err := svc.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		printReconcileReport(cmd.OutOrStdout(), report)
		if !report.Consistent {
			return fmt.Errorf("summary differs from the log for %d items; run 'painthouse rebuild'", report.ItemsDrift)
		}
		return nil
	},
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Print the FIFO sales report as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := salesFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		publish, _ := cmd.Flags().GetBool("publish")
		var rows []models.SalesSummaryRow
		if publish {
			rows, err = svc.PublishSalesSummary(cmd.Context(), filter)
		} else {
			rows, err = svc.GetSalesSummary(cmd.Context(), filter)
		}
		if err != nil {
			return err
		}
		return handlers.WriteSalesCSV(cmd.OutOrStdout(), rows)
	},
}

func salesFilterFromFlags(cmd *cobra.Command) (processors.SalesFilter, error) {
	var filter processors.SalesFilter
	for _, f := range []struct {
		name string
		dst  **utils.CivilDate
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v, _ := cmd.Flags().GetString(f.name)
		if v == "" {
			continue
		}
		d, err := utils.ParseISODate(v)
		if err != nil {
			return filter, fmt.Errorf("--%s: %w", f.name, err)
		}
		*f.dst = &d
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("--from must not be after --to")
	}
	return filter, nil
}

func printReconcileReport(w io.Writer, report *services.ReconcileReport) {
	if report.Consistent {
		fmt.Fprintln(w, "Inventory Summary matches the transaction log.")
		return
	}
	fmt.Fprintf(w, "%d items drifted:\n", report.ItemsDrift)
	for _, d := range report.Divergences {
		fmt.Fprintf(w, "  %s / %s  %s: stored %s, rebuilt %s\n",
			d.ItemType, d.Description, d.Field, d.Stored.String(), d.Rebuilt.String())
	}
}
