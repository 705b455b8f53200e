package command

import (
	"fmt"
	"strconv"
	"strings"

	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headerColor  = color.New(color.FgCyan, color.Bold)
)

const separator = "─────────────────────────────────────────────────────────"

func printSuccess(cmd *cobra.Command, format string, a ...any) {
	successColor.Fprintf(cmd.OutOrStdout(), "✓ "+format+"\n", a...)
}

func printWarning(cmd *cobra.Command, format string, a ...any) {
	warnColor.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
}

func printHeader(cmd *cobra.Command, format string, a ...any) {
	headerColor.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
	fmt.Fprintln(cmd.OutOrStdout(), separator)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %q", what, arg)
	}
	return id, nil
}

func formatPrice(price float64) string {
	return fmt.Sprintf("R$ %.2f", price)
}

func formatAddress(a *models.Address) string {
	if a == nil {
		return "address unavailable"
	}
	parts := []string{a.Street + ", " + a.Number}
	if a.Complement != nil && *a.Complement != "" {
		parts = append(parts, *a.Complement)
	}
	parts = append(parts, a.District, a.City+"/"+a.State)
	return strings.Join(parts, " - ")
}

func formatSummary(s service.Summary) string {
	if s.Average == nil {
		return "no ratings yet"
	}
	return fmt.Sprintf("%.1f/5 (%d ratings)", *s.Average, s.Count)
}

func reasonMessage(r service.Reason) string {
	switch r {
	case service.ReasonNotAuthenticated:
		return "Log in as a client to rate this service."
	case service.ReasonWrongRole:
		return "Only clients can rate services."
	case service.ReasonNotContracted:
		return "Contract this service before rating it."
	case service.ReasonAlreadyRated:
		return "You have already rated this service."
	case service.ReasonNotEvaluable:
		return "Rating eligibility could not be checked right now."
	default:
		return "You can rate this service."
	}
}

func printEnrichedService(cmd *cobra.Command, i int, svc models.EnrichedService) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d. %s (ID: %d) %s\n", i, svc.Name, svc.ID, formatPrice(svc.Price))
	if svc.Description != "" {
		fmt.Fprintf(out, "   %s\n", svc.Description)
	}
	if svc.Establishment == nil {
		warnColor.Fprintln(out, "   Establishment unavailable")
		return
	}
	fmt.Fprintf(out, "   Establishment: %s\n", svc.Establishment.Name)
	fmt.Fprintf(out, "   Address: %s\n", formatAddress(svc.Address))
	if svc.Provider != nil {
		fmt.Fprintf(out, "   Provider: %s\n", svc.Provider.Name)
	}
}

func printOrder(cmd *cobra.Command, o models.Order) {
	out := cmd.OutOrStdout()
	status := successColor.Sprint(o.Status)
	if !o.IsActive() {
		status = warnColor.Sprint(o.Status)
	}
	fmt.Fprintf(out, "Order %d  service %d  client %d  %s  %s\n",
		o.ID, o.ServiceID, o.ClientID, status, o.CreatedAt.Format("2006-01-02 15:04"))
	if o.Notes != nil && *o.Notes != "" {
		fmt.Fprintf(out, "   Notes: %s\n", *o.Notes)
	}
}
