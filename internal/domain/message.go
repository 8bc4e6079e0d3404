// File: internal/domain/message.go
package domain

import "time"

// Message kinds. Only text is exercised by the relay today.
const (
	MessageKindText  = "text"
	MessageKindImage = "image"
	MessageKindFile  = "file"
	MessageKindVoice = "voice"
)

// Message is a single chat message within a consultation. Rows are
// append-only: nothing mutates after creation except the read flag, and
// deletion only happens via cascade when the owning history is deleted.
type Message struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	ConsultationID uint      `json:"consultation_id" gorm:"index;not null"`
	SenderID       uint      `json:"sender_id" gorm:"not null"`
	SenderRole     string    `json:"sender_role" gorm:"not null"` // client or advocate
	Body           string    `json:"body" gorm:"type:text;not null"`
	Kind           string    `json:"kind" gorm:"not null;default:text"`
	IsRead         bool      `json:"is_read" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// IsValidMessageKind reports whether k names a known message kind.
func IsValidMessageKind(k string) bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindFile, MessageKindVoice:
		return true
	}
	return false
}
