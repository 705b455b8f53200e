package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/repository"
	"servicehub/internal/storefront/session"

	"github.com/go-playground/validator/v10"
)

// Summary is the aggregate of a service's ratings. Average is nil when there are none.
type Summary struct {
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// Summarize averages the scores, rounded to one decimal.
func Summarize(ratings []models.Rating) Summary {
	if len(ratings) == 0 {
		return Summary{}
	}
	total := 0
	for _, r := range ratings {
		total += r.Score
	}
	avg := math.Round(float64(total)/float64(len(ratings))*10) / 10
	return Summary{Average: &avg, Count: len(ratings)}
}

var submissionValidator = newSubmissionValidator()

func newSubmissionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateSubmission checks a rating form. The comment is trimmed first; an empty
// comment is absent, a short one is an error.
func ValidateSubmission(score int, comment string) []shared.FieldError {
	return validateSubmission(dto.NewRatingSubmission(score, comment))
}

func validateSubmission(sub dto.RatingSubmission) []shared.FieldError {
	err := submissionValidator.Struct(sub)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []shared.FieldError{{Field: "submission", Reason: err.Error()}}
	}

	problems := make([]shared.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "score":
			problems = append(problems, shared.FieldError{
				Field:  "score",
				Reason: fmt.Sprintf("must be an integer between %d and %d", models.MinScore, models.MaxScore),
			})
		case "comment":
			problems = append(problems, shared.FieldError{
				Field:  "comment",
				Reason: fmt.Sprintf("must be between %d and %d characters", models.MinCommentLength, models.MaxCommentLength),
			})
		default:
			problems = append(problems, shared.FieldError{Field: fe.Field(), Reason: fe.Tag()})
		}
	}
	return problems
}

type RatingAggregator interface {
	ListRatings(ctx context.Context, serviceID int64) ([]models.Rating, error)
	Submit(ctx context.Context, sess *session.Session, service models.Service, score int, comment string, eligibility Eligibility) (*models.Rating, error)
}

type ratingAggregator struct {
	ratingRepo repository.RatingRepository
	ledger     ContractLedger
}

func NewRatingAggregator(ratingRepo repository.RatingRepository, ledger ContractLedger) RatingAggregator {
	return &ratingAggregator{
		ratingRepo: ratingRepo,
		ledger:     ledger,
	}
}

// ListRatings returns the service's ratings in the order the store delivered them.
func (a *ratingAggregator) ListRatings(ctx context.Context, serviceID int64) ([]models.Rating, error) {
	ratings, err := a.ratingRepo.ListRatingsByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list ratings for service %d: %w", serviceID, err)
	}
	return ratings, nil
}

// Submit persists a rating. The eligibility the caller holds must allow it, and
// is then re-evaluated against freshly fetched orders and ratings; the rating is
// bound to the freshly matched order.
func (a *ratingAggregator) Submit(
	ctx context.Context,
	sess *session.Session,
	service models.Service,
	score int,
	comment string,
	eligibility Eligibility,
) (*models.Rating, error) {
	if !eligibility.Allowed {
		return nil, &IneligibleError{Reason: eligibility.Reason}
	}

	sub := dto.NewRatingSubmission(score, comment)
	if problems := validateSubmission(sub); len(problems) > 0 {
		return nil, shared.NewValidationError(problems)
	}

	orders, err := a.ledger.ListActiveOrders(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}
	ratings, err := a.ListRatings(ctx, service.ID)
	if err != nil {
		return nil, err
	}
	current := CanRate(sess, service, orders, ratings)
	if !current.Allowed {
		logger.FromContext(ctx).Warn().
			Int64("service_id", service.ID).
			Str("reason", string(current.Reason)).
			Msg("eligibility changed before submission")
		return nil, &IneligibleError{Reason: current.Reason}
	}

	rating, err := a.ratingRepo.CreateRating(ctx, dto.CreateRatingRequest{
		OrderID:   current.MatchedOrder.ID,
		ClientID:  sess.User.ID,
		ServiceID: service.ID,
		Score:     sub.Score,
		Comment:   sub.CommentPtr(),
	})
	if err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}

	logger.FromContext(ctx).Info().
		Int64("rating_id", rating.ID).
		Int64("order_id", current.MatchedOrder.ID).
		Int64("service_id", service.ID).
		Int("score", sub.Score).
		Msg("rating submitted")
	return rating, nil
}
