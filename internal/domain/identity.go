// File: internal/domain/identity.go
package domain

import "fmt"

// Role names used throughout the messaging core.
const (
	RoleClient   = "client"
	RoleAdvocate = "advocate"
)

// Identity is an already-authenticated participant: a client or an advocate.
// Credential verification happens upstream; the core only ever sees this pair.
type Identity struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

// RoomKey returns the identity's personal notification room key,
// e.g. "client-10" or "advocate-20".
func (i Identity) RoomKey() string {
	return fmt.Sprintf("%s-%d", i.Role, i.ID)
}

// IsValid reports whether the identity carries a usable id and role.
func (i Identity) IsValid() bool {
	return i.ID != 0 && (i.Role == RoleClient || i.Role == RoleAdvocate)
}

// ConsultationRoomKey returns the session room key for a consultation,
// e.g. "consultation-7".
func ConsultationRoomKey(consultationID uint) string {
	return fmt.Sprintf("consultation-%d", consultationID)
}
