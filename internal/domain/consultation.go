// File: internal/domain/consultation.go
package domain

import "time"

// Consultation statuses. Creation and activation are atomic: a row is born
// active and only ever moves to completed or cancelled. Terminal states are
// never left.
const (
	ConsultationActive    = "active"
	ConsultationCompleted = "completed"
	ConsultationCancelled = "cancelled"
)

// Consultation types. Only chat is implemented live; voice and video are
// accepted for record-keeping but have no transport.
const (
	ConsultationTypeChat  = "chat"
	ConsultationTypeVoice = "voice"
	ConsultationTypeVideo = "video"
)

// Consultation is a paid engagement between exactly one client and one
// advocate. LastMessage/LastMessageAt are a lightweight projection updated by
// the message relay so list views don't touch the message table.
type Consultation struct {
	ID            uint       `json:"id" gorm:"primarykey"`
	UserID        uint       `json:"user_id" gorm:"index;not null"`
	AdvocateID    uint       `json:"advocate_id" gorm:"index;not null"`
	Type          string     `json:"type" gorm:"not null;default:chat"`
	FeeAmount     int        `json:"fee_amount"`
	Status        string     `json:"status" gorm:"index;not null;default:active"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Duration      int        `json:"duration"` // seconds, stamped at termination
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive reports whether the consultation can still carry messages.
func (c *Consultation) IsActive() bool {
	return c.Status == ConsultationActive
}

// IsParticipant reports whether the identity is one of the two parties,
// under the role it claims.
func (c *Consultation) IsParticipant(id Identity) bool {
	switch id.Role {
	case RoleClient:
		return c.UserID == id.ID
	case RoleAdvocate:
		return c.AdvocateID == id.ID
	}
	return false
}

// Counterpart returns the identity on the other side of the consultation.
func (c *Consultation) Counterpart(of Identity) Identity {
	if of.Role == RoleClient {
		return Identity{ID: c.AdvocateID, Role: RoleAdvocate}
	}
	return Identity{ID: c.UserID, Role: RoleClient}
}

// IsValidConsultationType reports whether t names a known consultation type.
func IsValidConsultationType(t string) bool {
	return t == ConsultationTypeChat || t == ConsultationTypeVoice || t == ConsultationTypeVideo
}
