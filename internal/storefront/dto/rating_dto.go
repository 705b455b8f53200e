package dto

import (
	"strings"

	"servicehub/internal/storefront/models"
)

// CreateRatingRequest for POST /ratings
type CreateRatingRequest struct {
	OrderID   int64   `json:"order_id"`
	ClientID  int64   `json:"client_id"`
	ServiceID int64   `json:"service_id"`
	Score     int     `json:"score"`
	Comment   *string `json:"comment,omitempty"`
}

// RatingSubmission is what a client types into the rating form.
// Comment is trimmed before validation; an empty comment counts as absent.
type RatingSubmission struct {
	Score   int    `json:"score" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,min=10,max=500"`
}

func NewRatingSubmission(score int, comment string) RatingSubmission {
	return RatingSubmission{Score: score, Comment: strings.TrimSpace(comment)}
}

// CommentPtr returns nil for an absent comment.
func (s RatingSubmission) CommentPtr() *string {
	if s.Comment == "" {
		return nil
	}
	c := s.Comment
	return &c
}

// RatingResponse for the rating list view
type RatingResponse struct {
	ID      int64   `json:"id"`
	Score   int     `json:"score"`
	Comment *string `json:"comment,omitempty"`
	Created string  `json:"created_at"`
}

// FromModelToRatingResponse converts a Rating model to RatingResponse DTO
func FromModelToRatingResponse(r models.Rating) RatingResponse {
	return RatingResponse{
		ID:      r.ID,
		Score:   r.Score,
		Comment: r.Comment,
		Created: r.CreatedAt.Format("2006-01-02 15:04"),
	}
}
