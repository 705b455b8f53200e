package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/session"

	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Contract and cancel services",
	Long:  `List your active orders, contract a service, cancel an order or, as a provider, see the orders of an establishment.`,
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your active orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.requireSession()
		if err != nil {
			return err
		}

		orders, err := app.ledger.ListActiveOrders(cmd.Context(), sess.User.ID)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		if len(orders) == 0 {
			printWarning(cmd, "You have no active orders.")
			return nil
		}

		printHeader(cmd, "Active orders (%d)", len(orders))
		for _, o := range orders {
			printOrder(cmd, o)
		}
		return nil
	},
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create [service-id]",
	Short: "Contract a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID, err := parseID(args[0], "service")
		if err != nil {
			return err
		}
		sess, err := app.requireSession()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if _, err := app.catalog.GetEnrichedService(ctx, serviceID); err != nil {
			return fmt.Errorf("failed to contract service: %w", err)
		}

		var notes *string
		if n, _ := cmd.Flags().GetString("notes"); strings.TrimSpace(n) != "" {
			n = strings.TrimSpace(n)
			notes = &n
		}

		order, err := app.ledger.CreateOrder(ctx, sess, serviceID, notes)
		switch {
		case errors.Is(err, shared.ErrDuplicateOrder):
			printWarning(cmd, "You already have an active order for service %d.", serviceID)
			return nil
		case errors.Is(err, shared.ErrWrongRole):
			return errors.New("only clients can contract services")
		case err != nil:
			return fmt.Errorf("failed to contract service: %w", err)
		}

		printSuccess(cmd, "Service %d contracted! Order ID: %d", serviceID, order.ID)
		return nil
	},
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel [order-id]",
	Short: "Cancel an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID, err := parseID(args[0], "order")
		if err != nil {
			return err
		}
		sess, err := app.requireSession()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if err := authorizeCancel(ctx, sess, orderID); err != nil {
			return err
		}
		if err := app.ledger.CancelOrder(ctx, orderID); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		printSuccess(cmd, "Order %d cancelled.", orderID)
		return nil
	},
}

var ordersEstablishmentCmd = &cobra.Command{
	Use:   "establishment [establishment-id]",
	Short: "List the orders of an establishment you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		establishmentID, err := parseID(args[0], "establishment")
		if err != nil {
			return err
		}
		sess, err := app.requireSession()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		catalog, err := app.snapshots.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load establishments: %w", err)
		}
		est, ok := catalog.Establishments.Get(establishmentID)
		if !ok {
			return fmt.Errorf("establishment %d: %w", establishmentID, shared.ErrNotFound)
		}
		if est.ProviderID != sess.User.ID {
			return fmt.Errorf("establishment %d is not yours", establishmentID)
		}

		orders, err := app.ledger.ListEstablishmentOrders(ctx, establishmentID)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		if len(orders) == 0 {
			printWarning(cmd, "No orders for %s yet.", est.Name)
			return nil
		}

		printHeader(cmd, "Orders for %s (%d)", est.Name, len(orders))
		for _, o := range orders {
			printOrder(cmd, o)
		}
		return nil
	},
}

// authorizeCancel allows the contracting client or the provider servicing the order.
func authorizeCancel(ctx context.Context, sess *session.Session, orderID int64) error {
	notYours := fmt.Errorf("order %d is not one of yours", orderID)

	if sess.User.IsClient() {
		orders, err := app.client.ListOrders(ctx, dto.OrderFilter{ClientID: sess.User.ID})
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		for _, o := range orders {
			if o.ID == orderID {
				return nil
			}
		}
		return notYours
	}

	if sess.User.Role != models.RoleProvider {
		return notYours
	}
	services, err := app.catalog.ListProviderServices(ctx, sess.User.ID)
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	seen := make(map[int64]bool)
	for _, svc := range services {
		if seen[svc.EstablishmentID] {
			continue
		}
		seen[svc.EstablishmentID] = true

		orders, err := app.ledger.ListEstablishmentOrders(ctx, svc.EstablishmentID)
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		for _, o := range orders {
			if o.ID == orderID {
				return nil
			}
		}
	}
	return notYours
}

func init() {
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersCreateCmd)
	ordersCmd.AddCommand(ordersCancelCmd)
	ordersCmd.AddCommand(ordersEstablishmentCmd)

	ordersCreateCmd.Flags().StringP("notes", "n", "", "notes for the provider")
}
