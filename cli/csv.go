// ABOUTME: This file implements CSV template export and import commands for cafe24ctl
// ABOUTME: Exports write UTF-8 BOM files; imports accept UTF-8 or EUC-KR templates
package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"cafe24-admin/models"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as an upload-template CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}

		data, err := clients.csv.ExportProducts(cmd.Context(), models.ProductFilter{})
		if err != nil {
			return err
		}

		if exportOut == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return models.NewValidationError("cannot write %s: %v", exportOut, err)
		}
		printer.Success("wrote %s (%d bytes)", exportOut, len(data))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import products from an upload-template CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return models.NewValidationError("cannot read %s: %v", args[0], err)
		}

		clients, err := newClientSet()
		if err != nil {
			return err
		}

		summary, err := clients.csv.ImportProducts(cmd.Context(), data)
		if err != nil {
			return err
		}

		printer.Info("total %d  created %d  updated %d  failed %d",
			summary.Total, summary.Created, summary.Updated, summary.Failed)
		if summary.Failed > 0 {
			table := NewTable([]string{"Row", "Code", "Detail"})
			for _, e := range summary.Errors {
				table.AddRow([]string{strconv.Itoa(e.Row), e.ProductCode, e.Detail})
			}
			table.Render()
			return errPartialFailure
		}
		printer.Success("all %d rows imported", summary.Total)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "products.csv", "output path, - for stdout")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
