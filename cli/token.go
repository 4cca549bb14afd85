// ABOUTME: This file implements token lifecycle commands for cafe24ctl
// ABOUTME: Status output summarises expiry state without printing token material
package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect and refresh the OAuth credential",
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show token expiry state",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}
		status := clients.tokens.Status()

		table := NewTable([]string{"Field", "Value"})
		table.AddRow([]string{"mall_id", status.MallID})
		table.AddRow([]string{"has_access_token", strconv.FormatBool(status.HasAccessToken)})
		table.AddRow([]string{"has_refresh_token", strconv.FormatBool(status.HasRefreshToken)})
		table.AddRow([]string{"expires_at", formatInstant(status.ExpiresAt)})
		table.AddRow([]string{"expires_in", strconv.FormatInt(status.ExpiresInSeconds, 10) + "s"})
		table.AddRow([]string{"refresh_expires_at", formatInstant(status.RefreshExpiresAt)})
		table.AddRow([]string{"needs_refresh", strconv.FormatBool(status.NeedsRefresh)})
		table.AddRow([]string{"refresh_expired", strconv.FormatBool(status.RefreshExpired)})
		table.Render()

		if status.RefreshExpired {
			printer.Warning("refresh token expired; re-authorisation required")
		}
		return nil
	},
}

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a refresh-grant exchange now",
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := newClientSet()
		if err != nil {
			return err
		}
		if err := clients.tokens.Refresh(cmd.Context()); err != nil {
			return err
		}
		status := clients.tokens.Status()
		printer.Success("token refreshed; expires in %ds", status.ExpiresInSeconds)
		return nil
	},
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	tokenCmd.AddCommand(tokenStatusCmd)
	tokenCmd.AddCommand(tokenRefreshCmd)
	rootCmd.AddCommand(tokenCmd)
}
