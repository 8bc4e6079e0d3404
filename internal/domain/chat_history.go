// File: internal/domain/chat_history.go
package domain

import (
	"encoding/json"
	"time"
)

// ChatHistory is a denormalized per-(user, consultation) snapshot of the full
// ordered message list, kept so history views render without re-querying the
// message table. Exactly one row exists per pair (upsert semantics). Only the
// client side of a consultation is snapshotted; advocates reconstruct history
// from raw messages.
type ChatHistory struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	UserID         uint      `json:"user_id" gorm:"uniqueIndex:idx_user_consultation;not null"`
	ConsultationID uint      `json:"consultation_id" gorm:"uniqueIndex:idx_user_consultation;not null"`
	Messages       string    `json:"-" gorm:"type:text"` // JSON-encoded []Message
	LastMessage    string    `json:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SetMessages encodes the ordered message list into the snapshot and refreshes
// the derived projection fields.
func (h *ChatHistory) SetMessages(messages []Message) error {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	h.Messages = string(encoded)
	h.MessageCount = len(messages)
	if n := len(messages); n > 0 {
		h.LastMessage = messages[n-1].Body
		h.LastMessageAt = messages[n-1].CreatedAt
	}
	return nil
}

// DecodeMessages returns the snapshot's ordered message list.
func (h *ChatHistory) DecodeMessages() ([]Message, error) {
	if h.Messages == "" {
		return nil, nil
	}
	var messages []Message
	if err := json.Unmarshal([]byte(h.Messages), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
