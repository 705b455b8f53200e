package command

import (
	"fmt"

	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/service"

	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Browse the service catalog",
	Long:  `List services together with their establishment, address and provider.`,
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all services",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mine, _ := cmd.Flags().GetBool("mine")
		providerID, _ := cmd.Flags().GetInt64("provider")

		if mine {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			providerID = sess.User.ID
		}

		var (
			services []models.EnrichedService
			err      error
		)
		if providerID != 0 {
			services, err = app.catalog.ListProviderServices(ctx, providerID)
		} else {
			services, err = app.catalog.ListEnrichedServices(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to list services: %w", err)
		}

		if len(services) == 0 {
			printWarning(cmd, "No services found.")
			return nil
		}

		printHeader(cmd, "Services (%d)", len(services))
		for i, svc := range services {
			printEnrichedService(cmd, i+1, svc)
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

var servicesShowCmd = &cobra.Command{
	Use:   "show [service-id]",
	Short: "Show one service and its rating summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID, err := parseID(args[0], "service")
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, err := app.catalog.GetEnrichedService(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("failed to get service: %w", err)
		}

		printHeader(cmd, "%s", svc.Name)
		printEnrichedService(cmd, 1, *svc)

		ratings, err := app.aggregator.ListRatings(ctx, serviceID)
		if err != nil {
			printWarning(cmd, "Ratings unavailable: %v", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "   Rating: %s\n", formatSummary(service.Summarize(ratings)))
		return nil
	},
}

func init() {
	servicesCmd.AddCommand(servicesListCmd)
	servicesCmd.AddCommand(servicesShowCmd)

	servicesListCmd.Flags().Bool("mine", false, "only services of establishments you own (providers)")
	servicesListCmd.Flags().Int64("provider", 0, "only services of establishments owned by this provider")
}
