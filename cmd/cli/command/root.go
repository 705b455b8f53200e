package command

// root.go defines the root command for the servicehub CLI.
// global flags, configuration and the shared wiring are set up here.

import (
	"context"
	"fmt"
	"os"

	"servicehub/internal/config"
	"servicehub/internal/logger"

	"github.com/spf13/cobra"
)

var (
	apiURL   string // overrides STOREFRONT_API_URL
	logLevel string // overrides LOG_LEVEL
	app      *cliApp
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "servicehub",
	Short: "servicehub - service marketplace storefront CLI",
	Long: `servicehub talks to the storefront data API. With it a user can:
- Browse services with their establishment, address and provider
- Contract and cancel services
- See ratings and rate contracted services
- Manage storefront entities as an administrator

Use "servicehub command --help" to see all available commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("api") {
			cfg.APIURL = apiURL
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.GoEnv)

		ctx := logger.WithContext(cmd.Context(), map[string]string{"command": cmd.CommandPath()})
		cmd.SetContext(ctx)

		a, err := newCLIApp(ctx, cfg)
		if err != nil {
			return err
		}
		app = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
			app = nil
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "storefront data API URL (default from STOREFRONT_API_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(ratingCmd)
	rootCmd.AddCommand(adminCmd)
}
