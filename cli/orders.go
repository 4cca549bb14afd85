// ABOUTME: This file implements the orders and customers command groups for cafe24ctl
// ABOUTME: Order listings are bounded by a required start/end date range
package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"cafe24-admin/models"
)

var (
	orderStart    string
	orderEnd      string
	orderLimit    int
	customerLimit int
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List shop orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders within a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}

		orders, err := clients.orders.ListOrders(cmd.Context(),
			models.DateRange{Start: orderStart, End: orderEnd},
			models.Page{Limit: orderLimit})
		if err != nil {
			return err
		}

		table := NewTable([]string{"Order ID", "Date", "Buyer", "Amount", "Status"})
		for _, o := range orders {
			table.AddRow([]string{o.OrderID, o.OrderDate, o.BuyerName, o.PaymentAmount, o.OrderStatus})
		}
		table.Render()
		printer.Info("%d orders between %s and %s", len(orders), orderStart, orderEnd)
		return nil
	},
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List shop members",
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}

		customers, err := clients.orders.ListCustomers(cmd.Context(),
			models.Page{Limit: customerLimit})
		if err != nil {
			return err
		}

		table := NewTable([]string{"Member ID", "Name", "Email", "Group", "Joined"})
		for _, m := range customers {
			table.AddRow([]string{m.MemberID, m.Name, m.Email, strconv.Itoa(m.GroupNo), m.CreatedDate})
		}
		table.Render()
		return nil
	},
}

func init() {
	ordersListCmd.Flags().StringVar(&orderStart, "start", "", "range start (YYYY-MM-DD)")
	ordersListCmd.Flags().StringVar(&orderEnd, "end", "", "range end (YYYY-MM-DD)")
	ordersListCmd.Flags().IntVar(&orderLimit, "limit", 100, "page size")
	_ = ordersListCmd.MarkFlagRequired("start")
	_ = ordersListCmd.MarkFlagRequired("end")

	customersListCmd.Flags().IntVar(&customerLimit, "limit", 100, "page size")

	ordersCmd.AddCommand(ordersListCmd)
	customersCmd.AddCommand(customersListCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(customersCmd)
}
