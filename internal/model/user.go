package model

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// User is an operator account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
	CreatedAt    string `json:"createdAt,omitempty"`
}
