// File: internal/ws/events.go
package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// Event names form a closed set. Every payload broadcast over the transport
// is one of the tagged variants below, validated before it leaves the relay.
const (
	EventNewConsultation   = "new-consultation"
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventConsultationEnded = "consultation-ended"
	EventAdvocateStatus    = "advocate-status-update"
)

// Event is a tagged transport payload.
type Event interface {
	EventName() string
	Validate() error
}

type envelope struct {
	Event   string `json:"event"`
	Payload Event  `json:"payload"`
}

// Encode validates the event and wraps it in the wire envelope.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("nil event")
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: ev.EventName(), Payload: ev})
}

// NewConsultationEvent notifies an advocate's personal room that a client
// requested a session.
type NewConsultationEvent struct {
	ConsultationID uint   `json:"consultationId"`
	UserID         uint   `json:"userId"`
	Type           string `json:"type"`
	FeeAmount      int    `json:"feeAmount"`
}

func (e NewConsultationEvent) EventName() string { return EventNewConsultation }

func (e NewConsultationEvent) Validate() error {
	if e.ConsultationID == 0 {
		return errors.New("new-consultation: consultationId is required")
	}
	if e.UserID == 0 {
		return errors.New("new-consultation: userId is required")
	}
	return nil
}

// NewMessageEvent carries a persisted message to the counterpart's personal
// room. The sender never relies on it; their copy comes from the synchronous
// send response.
type NewMessageEvent struct {
	ConsultationID uint      `json:"consultationId"`
	MessageID      uint      `json:"messageId"`
	SenderID       uint      `json:"senderId"`
	SenderType     string    `json:"senderType"`
	Message        string    `json:"message"`
	Kind           string    `json:"kind"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e NewMessageEvent) EventName() string { return EventNewMessage }

func (e NewMessageEvent) Validate() error {
	if e.ConsultationID == 0 {
		return errors.New("new-message: consultationId is required")
	}
	if e.MessageID == 0 {
		return errors.New("new-message: messageId is required")
	}
	if e.SenderType != domain.RoleClient && e.SenderType != domain.RoleAdvocate {
		return errors.New("new-message: invalid senderType")
	}
	if e.Message == "" {
		return errors.New("new-message: message is required")
	}
	return nil
}

// TypingEvent is the ephemeral typing signal, relayed with no persistence and
// no delivery guarantee.
type TypingEvent struct {
	ConsultationID uint   `json:"consultationId"`
	SenderID       uint   `json:"senderId"`
	SenderType     string `json:"senderType"`
	Stopped        bool   `json:"-"`
}

func (e TypingEvent) EventName() string {
	if e.Stopped {
		return EventUserStoppedTyping
	}
	return EventUserTyping
}

func (e TypingEvent) Validate() error {
	if e.ConsultationID == 0 {
		return errors.New("typing: consultationId is required")
	}
	if e.SenderID == 0 {
		return errors.New("typing: senderId is required")
	}
	if e.SenderType != domain.RoleClient && e.SenderType != domain.RoleAdvocate {
		return errors.New("typing: invalid senderType")
	}
	return nil
}

// ConsultationEndedEvent notifies the counterpart that the session reached a
// terminal status.
type ConsultationEndedEvent struct {
	ConsultationID uint      `json:"consultationId"`
	Status         string    `json:"status"`
	EndedBy        string    `json:"endedBy"`
	EndedAt        time.Time `json:"endedAt"`
}

func (e ConsultationEndedEvent) EventName() string { return EventConsultationEnded }

func (e ConsultationEndedEvent) Validate() error {
	if e.ConsultationID == 0 {
		return errors.New("consultation-ended: consultationId is required")
	}
	if e.Status != domain.ConsultationCompleted && e.Status != domain.ConsultationCancelled {
		return errors.New("consultation-ended: invalid status")
	}
	if e.EndedBy != domain.RoleClient && e.EndedBy != domain.RoleAdvocate {
		return errors.New("consultation-ended: invalid endedBy")
	}
	return nil
}

// AdvocateStatusEvent announces an online/offline transition. Broadcast
// globally, not room-scoped: anyone browsing the advocate list needs it.
type AdvocateStatusEvent struct {
	IdentityID uint      `json:"identityId"`
	Role       string    `json:"role"`
	IsOnline   bool      `json:"isOnline"`
	LastSeen   time.Time `json:"lastSeen"`
}

func (e AdvocateStatusEvent) EventName() string { return EventAdvocateStatus }

func (e AdvocateStatusEvent) Validate() error {
	if e.IdentityID == 0 {
		return errors.New("advocate-status-update: identityId is required")
	}
	if e.Role != domain.RoleClient && e.Role != domain.RoleAdvocate {
		return errors.New("advocate-status-update: invalid role")
	}
	return nil
}
