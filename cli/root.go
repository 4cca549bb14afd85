// ABOUTME: This file defines the cafe24ctl root command and service bootstrap
// ABOUTME: Maps command failures onto the documented process exit codes
package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cafe24-admin/config"
	"cafe24-admin/driver"
	"cafe24-admin/models"
	"cafe24-admin/repository"
	"cafe24-admin/service"
)

var (
	verbose bool
	noColor bool
	printer *Printer
	logger  *slog.Logger
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cafe24ctl",
	Short: "Cafe24 shop administration CLI",
	Long: `cafe24ctl automates Cafe24 shop administration over the Admin REST API.

It manages the OAuth token lifecycle transparently: expired access tokens
are refreshed on demand and the rotated credentials are persisted locally.

Example usage:
  cafe24ctl products list --limit 20        # List catalog products
  cafe24ctl bulk apply prices.json          # Apply bulk price changes
  cafe24ctl export --out products.csv       # Download the CSV template
  cafe24ctl token status                    # Inspect token expiry state`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelWarn
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		printer = NewPrinter(resolveColors() && !noColor)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

// errPartialFailure marks a bulk run where at least one item failed.
var errPartialFailure = errors.New("partial failure")

// ExitCode maps a command error onto the documented exit codes: 0 success,
// 1 caller error, 2 authentication failure, 3 upstream error, 4 partial
// success of a bulk operation.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errPartialFailure) {
		return 4
	}

	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		return 1
	}
	switch apiErr.Kind {
	case models.ErrKindValidation:
		return 1
	case models.ErrKindNotAuthenticated, models.ErrKindAuthRejected,
		models.ErrKindRefreshTokenExpired, models.ErrKindClientCredentialsRejected:
		return 2
	default:
		return 3
	}
}

// clientSet bundles the constructed service stack for one CLI invocation.
type clientSet struct {
	tokens  *service.TokenManager
	catalog *service.CatalogService
	orders  *service.OrderService
	bulk    *service.BulkPriceService
	csv     *service.CSVService
}

// newClientSet loads configuration and builds the full service stack. The CLI
// refreshes tokens on demand only; no background checker runs.
func newClientSet() (*clientSet, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, models.NewValidationError("%v", err)
	}

	repo := repository.NewFileTokenRepository(cfg.Token.FilePath, logger)
	oauthClient := driver.NewOAuth2Client(
		cfg.Cafe24.ClientID,
		cfg.Cafe24.ClientSecret,
		cfg.Cafe24.TokenEndpointURL(),
		cfg.Cafe24.RequestTimeout,
		logger,
	)

	clock := service.SystemClock()
	tokens, err := service.NewTokenManager(service.TokenManagerConfig{
		Repository:    repo,
		OAuth2Client:  oauthClient,
		Clock:         clock,
		Logger:        logger,
		RefreshMargin: cfg.Token.RefreshMargin,
		CheckInterval: cfg.Token.RefreshCheckInterval,
		Seed:          cfg.SeedRecord(clock.Now()),
	})
	if err != nil {
		return nil, err
	}

	transport := service.NewAPIClient(service.APIClientConfig{
		BaseURL:    cfg.Cafe24.BaseURL(),
		APIVersion: cfg.Cafe24.APIVersion,
		RetryCount: cfg.Cafe24.RetryCount,
		Timeout:    cfg.Cafe24.RequestTimeout,
	}, tokens, logger)

	catalog := service.NewCatalogService(transport, logger)
	return &clientSet{
		tokens:  tokens,
		catalog: catalog,
		orders:  service.NewOrderService(transport, logger),
		bulk:    service.NewBulkPriceService(catalog, 0, logger),
		csv:     service.NewCSVService(catalog, logger),
	}, nil
}
