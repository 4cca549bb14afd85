// ABOUTME: This file implements the products command group for cafe24ctl
// ABOUTME: Lists, inspects and updates catalog products in table form
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cafe24-admin/models"
)

var (
	productLimit   int
	productOffset  int
	productSort    string
	productOrder   string
	productSearch  string
	productDisplay string
	productPrice   string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage catalog products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products with filters and sorting",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}

		filter := models.ProductFilter{
			Display: productDisplay,
			Search:  productSearch,
		}
		result, err := clients.catalog.ListProducts(cmd.Context(), filter,
			models.SortKey(productSort), models.SortOrder(productOrder),
			models.Page{Limit: productLimit, Offset: productOffset})
		if err != nil {
			return err
		}

		table := NewTable([]string{"No", "Code", "Name", "Price", "Stock", "Display", "Selling"})
		for _, p := range result.Products {
			table.AddRow([]string{
				strconv.Itoa(p.ProductNo),
				p.ProductCode,
				p.ProductName,
				p.Price,
				strconv.Itoa(p.Quantity),
				p.Display,
				p.Selling,
			})
		}
		table.Render()

		printer.Info("total %d  out_of_stock %d  low_stock %d  displayed %d  hidden %d",
			result.Stats.Total, result.Stats.OutOfStock, result.Stats.LowStock,
			result.Stats.Displayed, result.Stats.Hidden)
		if result.Pagination.HasMore {
			printer.Info("more rows available; increase --offset to page further")
		}
		return nil
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get <product-no>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productNo, err := strconv.Atoi(args[0])
		if err != nil {
			return models.NewValidationError("invalid product number %q", args[0])
		}

		clients, err := newClientSet()
		if err != nil {
			return err
		}

		p, err := clients.catalog.GetProduct(cmd.Context(), productNo)
		if err != nil {
			return err
		}

		table := NewTable([]string{"Field", "Value"})
		table.AddRow([]string{"product_no", strconv.Itoa(p.ProductNo)})
		table.AddRow([]string{"product_code", p.ProductCode})
		table.AddRow([]string{"product_name", p.ProductName})
		table.AddRow([]string{"price", p.Price})
		table.AddRow([]string{"retail_price", p.RetailPrice})
		table.AddRow([]string{"supply_price", p.SupplyPrice})
		table.AddRow([]string{"quantity", strconv.Itoa(p.Quantity)})
		table.AddRow([]string{"display", p.Display})
		table.AddRow([]string{"selling", p.Selling})
		table.AddRow([]string{"has_option", p.HasOption})
		table.Render()
		return nil
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <product-no>",
	Short: "Update mutable product fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productNo, err := strconv.Atoi(args[0])
		if err != nil {
			return models.NewValidationError("invalid product number %q", args[0])
		}
		if productPrice == "" {
			return models.NewValidationError("--price is required")
		}
		price, err := models.NormalizePrice(productPrice)
		if err != nil {
			return models.NewValidationError("%v", err)
		}

		clients, err := newClientSet()
		if err != nil {
			return err
		}

		patch := models.ProductPatch{Price: &price}
		if _, err := clients.catalog.UpdateProduct(cmd.Context(), productNo, patch); err != nil {
			return err
		}
		printer.Success("product %d price set to %s", productNo, price)
		return nil
	},
}

func init() {
	productsListCmd.Flags().IntVar(&productLimit, "limit", 20, "page size")
	productsListCmd.Flags().IntVar(&productOffset, "offset", 0, "page offset")
	productsListCmd.Flags().StringVar(&productSort, "sort", "", "sort key: price, name, stock, created_date, updated_date")
	productsListCmd.Flags().StringVar(&productOrder, "order", "", "sort order: asc or desc")
	productsListCmd.Flags().StringVar(&productSearch, "search", "", "client-side name search")
	productsListCmd.Flags().StringVar(&productDisplay, "display", "", fmt.Sprintf("display flag filter (%s or %s)", models.FlagTrue, models.FlagFalse))

	productsUpdateCmd.Flags().StringVar(&productPrice, "price", "", "new sale price")

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsUpdateCmd)
	rootCmd.AddCommand(productsCmd)
}
