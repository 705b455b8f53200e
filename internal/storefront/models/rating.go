package models

import "time"

const (
	MinScore         = 1
	MaxScore         = 5
	MinCommentLength = 10
	MaxCommentLength = 500
)

// Rating is bound to exactly one order. ClientID and ServiceID are copied from
// that order so ratings can be listed per service.
type Rating struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	ClientID  int64     `json:"client_id"`
	ServiceID int64     `json:"service_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
