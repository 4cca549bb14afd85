// ABOUTME: This file implements the bulk price apply command for cafe24ctl
// ABOUTME: Reads a JSON item file and reports per-row outcomes; partial failures exit 4
package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"cafe24-admin/models"
	"cafe24-admin/service"
)

var bulkRate float64

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Bulk catalog operations",
}

var bulkApplyCmd = &cobra.Command{
	Use:   "apply <items.json>",
	Short: "Apply bulk price changes from a JSON file",
	Long: `Apply reads a JSON file of the form

  [{"product_code": "P000000N", "price": 13500}, ...]

and applies each price change in order. Items with variants update every
variant as well as the base product. Failures never abort later items.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return models.NewValidationError("cannot read %s: %v", args[0], err)
		}
		var items []models.BulkPriceItem
		if err := json.Unmarshal(data, &items); err != nil {
			return models.NewValidationError("invalid items file: %v", err)
		}

		clients, err := newClientSet()
		if err != nil {
			return err
		}
		bulk := clients.bulk
		if bulkRate > 0 {
			bulk = service.NewBulkPriceService(clients.catalog, bulkRate, logger)
		}

		result, err := bulk.ApplyPrices(cmd.Context(), items)
		if err != nil {
			return err
		}

		table := NewTable([]string{"Code", "Price", "Status", "Detail"})
		for _, o := range result.Outcomes {
			table.AddRow([]string{o.ProductCode, o.RequestedPrice, string(o.Status), o.Detail})
		}
		table.Render()

		if result.FailedCount > 0 {
			printer.Warning("job %s: %d ok, %d failed of %d",
				result.JobID, result.OKCount, result.FailedCount, result.Total)
			return errPartialFailure
		}
		printer.Success("job %s: all %d items applied", result.JobID, result.Total)
		return nil
	},
}

func init() {
	bulkApplyCmd.Flags().Float64Var(&bulkRate, "rate", 0, "max upstream requests per second (0 = unpaced)")

	bulkCmd.AddCommand(bulkApplyCmd)
	rootCmd.AddCommand(bulkCmd)
}
