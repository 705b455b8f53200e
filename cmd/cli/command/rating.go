package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/service"

	"github.com/spf13/cobra"
)

var ratingCmd = &cobra.Command{
	Use:   "rating",
	Short: "Service rating commands",
	Long:  `See the ratings of a service and rate a service you contracted.`,
}

var ratingPanelCmd = &cobra.Command{
	Use:   "panel [service-id]",
	Short: "Show ratings, the average and whether you can rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadRatedService(cmd, args[0])
		if err != nil {
			return err
		}

		panel := app.newRatingPanel()
		defer panel.Close()

		state, err := panel.Load(cmd.Context(), app.session, svc)
		if err != nil && !errors.Is(err, shared.ErrUnavailable) {
			return fmt.Errorf("failed to load ratings: %w", err)
		}
		printPanel(cmd, svc, state)
		return nil
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate [service-id] [score]",
	Short: "Rate a contracted service (1-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid score %q: must be an integer between %d and %d", args[1], models.MinScore, models.MaxScore)
		}
		comment, _ := cmd.Flags().GetString("comment")

		svc, err := loadRatedService(cmd, args[0])
		if err != nil {
			return err
		}

		if problems := service.ValidateSubmission(score, comment); len(problems) > 0 {
			printProblems(cmd, problems)
			return shared.NewValidationError(problems)
		}

		panel := app.newRatingPanel()
		defer panel.Close()
		ctx := cmd.Context()

		state, err := panel.Load(ctx, app.session, svc)
		if err != nil {
			return fmt.Errorf("failed to check eligibility: %w", err)
		}
		if !state.Eligibility.Allowed {
			printWarning(cmd, "%s", reasonMessage(state.Eligibility.Reason))
			return &service.IneligibleError{Reason: state.Eligibility.Reason}
		}

		created, next, err := panel.Submit(ctx, app.session, svc, score, comment)
		if err != nil {
			var verr *shared.ValidationError
			if errors.As(err, &verr) {
				printProblems(cmd, verr.Problems)
			}
			return fmt.Errorf("failed to rate service: %w", err)
		}

		printSuccess(cmd, "Rating submitted successfully!")
		fmt.Fprintf(cmd.OutOrStdout(), "Service: %s\n", svc.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "Your rating: %d/5\n", created.Score)
		if next.Ready {
			fmt.Fprintf(cmd.OutOrStdout(), "Average: %s\n", formatSummary(next.Summary))
		}
		return nil
	},
}

func loadRatedService(cmd *cobra.Command, arg string) (models.Service, error) {
	serviceID, err := parseID(arg, "service")
	if err != nil {
		return models.Service{}, err
	}
	enriched, err := app.catalog.GetEnrichedService(cmd.Context(), serviceID)
	if err != nil {
		return models.Service{}, fmt.Errorf("failed to get service: %w", err)
	}
	return enriched.Service, nil
}

func printPanel(cmd *cobra.Command, svc models.Service, state service.PanelState) {
	out := cmd.OutOrStdout()
	printHeader(cmd, "Ratings for %s", svc.Name)

	if !state.Ready {
		printWarning(cmd, "Ratings are unavailable right now.")
		printWarning(cmd, "%s", reasonMessage(state.Eligibility.Reason))
		return
	}

	fmt.Fprintf(out, "Average: %s\n\n", formatSummary(state.Summary))
	for _, r := range state.Ratings {
		resp := dto.FromModelToRatingResponse(r)
		fmt.Fprintf(out, "%s  %d/5", stars(resp.Score), resp.Score)
		if resp.Comment != nil {
			fmt.Fprintf(out, "  %s", *resp.Comment)
		}
		fmt.Fprintf(out, "  (%s)\n", resp.Created)
	}
	if len(state.Ratings) > 0 {
		fmt.Fprintln(out)
	}

	if state.Eligibility.Allowed {
		printSuccess(cmd, "%s", reasonMessage(state.Eligibility.Reason))
		return
	}
	printWarning(cmd, "%s", reasonMessage(state.Eligibility.Reason))
}

func stars(score int) string {
	score = max(models.MinScore-1, min(score, models.MaxScore))
	return strings.Repeat("★", score) + strings.Repeat("☆", models.MaxScore-score)
}

func printProblems(cmd *cobra.Command, problems []shared.FieldError) {
	for _, p := range problems {
		errorColor.Fprintf(cmd.OutOrStdout(), "✗ %s %s\n", p.Field, p.Reason)
	}
}

func init() {
	ratingCmd.AddCommand(ratingPanelCmd)
	ratingCmd.AddCommand(rateCmd)

	rateCmd.Flags().StringP("comment", "c", "", "optional comment (10-500 characters)")
}
