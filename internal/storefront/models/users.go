package models

// Role separates the two kinds of marketplace accounts.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// IsClient reports whether the user contracts (and may rate) services.
func (u User) IsClient() bool {
	return u.Role == RoleClient
}
