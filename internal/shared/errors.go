package shared

import (
	"errors"
	"fmt"
	"strings"
)

// error taxonomy shared by the repository and service layers
// eligibility outcomes are reported as values; these sentinels are what callers match with errors.Is
var (
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrWrongRole        = errors.New("only clients may rate services")
	ErrNotContracted    = errors.New("no active order for this service")
	ErrAlreadyRated     = errors.New("order has already been rated")
	ErrNotEligible      = errors.New("user is not eligible to rate this service")
	ErrDuplicateOrder   = errors.New("client already holds an active order for this service")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("data store unavailable")
	ErrStaleResult      = errors.New("result discarded: subject changed while loading")
	ErrImmutable        = errors.New("record cannot be changed through this path")
)

// FieldError names the offending field and a human readable reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ValidationError carries every problem found in one submission.
type ValidationError struct {
	Problems []FieldError
}

func NewValidationError(problems []FieldError) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Unavailable wraps a transport or store failure so it matches ErrUnavailable
// while keeping the original message.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
