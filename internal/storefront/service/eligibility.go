package service

import (
	"fmt"
	"sort"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/session"
)

// Reason explains why a rating may not be submitted. The zero value means allowed.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonWrongRole        Reason = "wrong_role"
	ReasonNotContracted    Reason = "not_contracted"
	ReasonAlreadyRated     Reason = "already_rated"
	ReasonNotEvaluable     Reason = "not_evaluable" // orders or ratings not loaded yet
)

// Err maps the reason onto the shared error taxonomy.
func (r Reason) Err() error {
	switch r {
	case ReasonNotAuthenticated:
		return shared.ErrNotAuthenticated
	case ReasonWrongRole:
		return shared.ErrWrongRole
	case ReasonNotContracted:
		return shared.ErrNotContracted
	case ReasonAlreadyRated:
		return shared.ErrAlreadyRated
	case ReasonNotEvaluable:
		return shared.ErrUnavailable
	default:
		return nil
	}
}

// Eligibility is the outcome of CanRate.
type Eligibility struct {
	Allowed      bool
	Reason       Reason
	MatchedOrder *models.Order
}

// IneligibleError is returned when a submission is attempted without eligibility.
// It matches shared.ErrNotEligible and the reason's own sentinel.
type IneligibleError struct {
	Reason Reason
}

func (e *IneligibleError) Error() string {
	if e.Reason == ReasonNone {
		return shared.ErrNotEligible.Error()
	}
	return fmt.Sprintf("%s: %s", shared.ErrNotEligible, e.Reason)
}

func (e *IneligibleError) Is(target error) bool {
	if target == shared.ErrNotEligible {
		return true
	}
	reasonErr := e.Reason.Err()
	return reasonErr != nil && target == reasonErr
}

// CanRate decides whether the session's user may rate service. The first failing
// check determines the reason:
//
//  1. no authenticated session
//  2. user is not a client
//  3. no active order of this client for the service
//  4. the matched order (earliest created, then lowest id) is already rated
//
// orders and ratings must both be fully loaded; CanRate is pure and is expected to be
// re-run whenever the session, the service or the ratings change.
func CanRate(sess *session.Session, service models.Service, orders []models.Order, ratings []models.Rating) Eligibility {
	if !sess.Authenticated() {
		return Eligibility{Reason: ReasonNotAuthenticated}
	}
	if !sess.User.IsClient() {
		return Eligibility{Reason: ReasonWrongRole}
	}

	var candidates []models.Order
	for _, o := range orders {
		if o.IsActive() && o.ServiceID == service.ID && o.ClientID == sess.User.ID {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return Eligibility{Reason: ReasonNotContracted}
	}

	sortOrders(candidates)
	matched := candidates[0]

	for _, r := range ratings {
		if r.OrderID == matched.ID {
			return Eligibility{Reason: ReasonAlreadyRated, MatchedOrder: &matched}
		}
	}
	return Eligibility{Allowed: true, MatchedOrder: &matched}
}

// sortOrders orders by creation time, then id, both ascending.
func sortOrders(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}
