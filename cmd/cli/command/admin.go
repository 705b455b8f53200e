package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"servicehub/internal/storefront/repository"

	"github.com/spf13/cobra"
)

// admin.go exposes the entity registry: generic list/create/update/delete per entity kind.
// Orders and ratings are guarded by their registry entries.

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage storefront entities",
	Long: `Generic management of storefront entities through the entity registry.
Deleting an order cancels it; orders are never removed and the only accepted
order update is {"status":"cancelled"}. Ratings are read-only here.`,
}

var adminKindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the managed entity kinds",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range app.registry.Kinds() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List every entity of a kind as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := app.registry.Get(repository.Kind(args[0]))
		if err != nil {
			return err
		}
		items, err := api.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", args[0], err)
		}
		if len(items) == 0 {
			printWarning(cmd, "No %s found.", args[0])
			return nil
		}
		for _, item := range items {
			fmt.Fprintln(cmd.OutOrStdout(), indentJSON(item))
		}
		return nil
	},
}

var adminCreateCmd = &cobra.Command{
	Use:   "create [kind]",
	Short: "Create an entity from a JSON payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := repository.Kind(args[0])
		api, err := app.registry.Get(kind)
		if err != nil {
			return err
		}
		payload, err := payloadFlag(cmd)
		if err != nil {
			return err
		}

		created, err := api.Create(cmd.Context(), payload)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", kind, err)
		}
		invalidateCatalog(cmd, kind)

		printSuccess(cmd, "Created %s", kind)
		fmt.Fprintln(cmd.OutOrStdout(), indentJSON(created))
		return nil
	},
}

var adminUpdateCmd = &cobra.Command{
	Use:   "update [kind] [id]",
	Short: "Update an entity from a JSON payload",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := repository.Kind(args[0])
		api, err := app.registry.Get(kind)
		if err != nil {
			return err
		}
		id, err := parseID(args[1], string(kind))
		if err != nil {
			return err
		}
		payload, err := payloadFlag(cmd)
		if err != nil {
			return err
		}

		updated, err := api.Update(cmd.Context(), id, payload)
		if err != nil {
			return fmt.Errorf("failed to update %s %d: %w", kind, id, err)
		}
		invalidateCatalog(cmd, kind)

		printSuccess(cmd, "Updated %s %d", kind, id)
		fmt.Fprintln(cmd.OutOrStdout(), indentJSON(updated))
		return nil
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete [kind] [id]",
	Short: "Delete an entity (orders are cancelled instead)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := repository.Kind(args[0])
		api, err := app.registry.Get(kind)
		if err != nil {
			return err
		}
		id, err := parseID(args[1], string(kind))
		if err != nil {
			return err
		}

		if err := api.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
		}
		invalidateCatalog(cmd, kind)

		if kind == repository.KindOrders {
			printSuccess(cmd, "Order %d cancelled.", id)
			return nil
		}
		printSuccess(cmd, "Deleted %s %d", kind, id)
		return nil
	},
}

func payloadFlag(cmd *cobra.Command) (json.RawMessage, error) {
	data, _ := cmd.Flags().GetString("data")
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("--data is required")
	}
	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// invalidateCatalog drops cached snapshots after a catalog collection changed.
func invalidateCatalog(cmd *cobra.Command, kind repository.Kind) {
	switch kind {
	case repository.KindServices, repository.KindEstablishments, repository.KindAddresses, repository.KindUsers:
	default:
		return
	}
	if err := app.snapshots.Invalidate(cmd.Context()); err != nil {
		printWarning(cmd, "Cached catalog could not be cleared: %v", err)
	}
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func init() {
	adminCmd.AddCommand(adminKindsCmd)
	adminCmd.AddCommand(adminListCmd)
	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminUpdateCmd)
	adminCmd.AddCommand(adminDeleteCmd)

	adminCreateCmd.Flags().StringP("data", "d", "", "JSON payload")
	adminUpdateCmd.Flags().StringP("data", "d", "", "JSON payload")
}
