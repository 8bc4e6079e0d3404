// File: internal/ws/broadcaster.go
package ws

import (
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// Broadcaster relays the ephemeral signals: typing start/stop scoped to the
// consultation room, and online/offline transitions fanned out globally.
// Nothing here is persisted or guaranteed to arrive.
type Broadcaster struct {
	rooms    *RoomRouter
	presence *PresenceRegistry
}

func NewBroadcaster(rooms *RoomRouter, presence *PresenceRegistry) *Broadcaster {
	return &Broadcaster{rooms: rooms, presence: presence}
}

// NotifyTypingStart relays a typing signal to the consultation room,
// excluding the sender's own connection so it never sees its echo.
func (b *Broadcaster) NotifyTypingStart(consultationID uint, sender domain.Identity) int {
	return b.notifyTyping(consultationID, sender, false)
}

// NotifyTypingStop relays the matching stop signal. Clients coalesce these
// with a short debounce and auto-emit a stop when input goes quiet.
func (b *Broadcaster) NotifyTypingStop(consultationID uint, sender domain.Identity) int {
	return b.notifyTyping(consultationID, sender, true)
}

func (b *Broadcaster) notifyTyping(consultationID uint, sender domain.Identity, stopped bool) int {
	ev := TypingEvent{
		ConsultationID: consultationID,
		SenderID:       sender.ID,
		SenderType:     sender.Role,
		Stopped:        stopped,
	}

	exclude := ""
	if conn, ok := b.presence.Connection(sender); ok {
		exclude = conn.ID()
	}
	return b.rooms.BroadcastExcept(domain.ConsultationRoomKey(consultationID), ev, exclude)
}

// NotifyStatusChange announces an online/offline transition to every
// connection. Global on purpose: anyone browsing the advocate list needs to
// see live transitions without joining a room first.
func (b *Broadcaster) NotifyStatusChange(identity domain.Identity, online bool) int {
	lastSeen, ok := b.presence.LastSeen(identity)
	if !ok {
		lastSeen = time.Now()
	}

	return b.rooms.BroadcastAll(AdvocateStatusEvent{
		IdentityID: identity.ID,
		Role:       identity.Role,
		IsOnline:   online,
		LastSeen:   lastSeen,
	})
}
