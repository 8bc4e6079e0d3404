// File: internal/middleware/constants.go
package middleware

// Context keys for middleware communication
type contextKey string

const (
	IdentityIDKey   contextKey = "identity_id"
	IdentityRoleKey contextKey = "identity_role"
)
