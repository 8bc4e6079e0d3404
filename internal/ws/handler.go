// File: internal/ws/handler.go
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexserve/go-lexserve/internal/domain"
	"github.com/lexserve/go-lexserve/internal/middleware"
)

// MembershipChecker validates that an identity participates in a
// consultation before the handler lets its connection join the session room.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, consultationID uint, identity domain.Identity) (bool, error)
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by the fronting proxy.
		return true
	},
}

// clientFrame is the only inbound shape the socket accepts. Messages
// themselves go over the REST surface; the socket carries room membership
// and typing signals.
type clientFrame struct {
	Action         string `json:"action"`
	ConsultationID uint   `json:"consultationId"`
}

const (
	actionJoinConsultation  = "join-consultation"
	actionLeaveConsultation = "leave-consultation"
	actionTypingStart       = "typing-start"
	actionTypingStop        = "typing-stop"
)

// Handler attaches authenticated identities to the transport: upgrade, join
// the personal room, mark online, then serve the read loop until disconnect.
type Handler struct {
	rooms       *RoomRouter
	presence    *PresenceRegistry
	broadcaster *Broadcaster
	membership  MembershipChecker
}

func NewHandler(rooms *RoomRouter, presence *PresenceRegistry, broadcaster *Broadcaster, membership MembershipChecker) *Handler {
	return &Handler{
		rooms:       rooms,
		presence:    presence,
		broadcaster: broadcaster,
		membership:  membership,
	}
}

// HandleSocket upgrades the request and runs the connection to completion.
// Identity comes from the auth middleware; an unauthenticated request never
// reaches the upgrade.
func (h *Handler) HandleSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || !identity.IsValid() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WSHandler] Upgrade failed for %s: %v", identity.RoomKey(), err)
		return
	}

	conn := NewConnection(sock, identity)
	h.rooms.Join(conn, identity.RoomKey())
	h.presence.MarkOnline(identity, conn)
	h.broadcaster.NotifyStatusChange(identity, true)

	log.Printf("[WSHandler] %s connected", identity.RoomKey())
	h.readLoop(conn, sock)

	// Disconnect: drop every room membership and the registry entry so no
	// broadcast target dangles.
	h.rooms.LeaveAll(conn)
	if h.presence.MarkOfflineIfCurrent(identity, conn) {
		h.broadcaster.NotifyStatusChange(identity, false)
	}
	_ = conn.Close()
	log.Printf("[WSHandler] %s disconnected", identity.RoomKey())
}

func (h *Handler) readLoop(conn *Connection, sock *websocket.Conn) {
	identity := conn.Identity()

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("[WSHandler] Dropping malformed frame from %s: %v", identity.RoomKey(), err)
			continue
		}

		switch frame.Action {
		case actionJoinConsultation:
			if frame.ConsultationID == 0 {
				continue
			}
			if !h.isParticipant(frame.ConsultationID, identity) {
				log.Printf("[WSHandler] %s denied join to consultation %d", identity.RoomKey(), frame.ConsultationID)
				continue
			}
			h.rooms.Join(conn, domain.ConsultationRoomKey(frame.ConsultationID))

		case actionLeaveConsultation:
			h.rooms.Leave(conn, domain.ConsultationRoomKey(frame.ConsultationID))

		case actionTypingStart:
			if h.isParticipant(frame.ConsultationID, identity) {
				h.broadcaster.NotifyTypingStart(frame.ConsultationID, identity)
			}

		case actionTypingStop:
			if h.isParticipant(frame.ConsultationID, identity) {
				h.broadcaster.NotifyTypingStop(frame.ConsultationID, identity)
			}

		default:
			log.Printf("[WSHandler] Unknown action %q from %s", frame.Action, identity.RoomKey())
		}
	}
}

func (h *Handler) isParticipant(consultationID uint, identity domain.Identity) bool {
	if consultationID == 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := h.membership.IsParticipant(ctx, consultationID, identity)
	if err != nil {
		log.Printf("[WSHandler] Membership check failed for %s on consultation %d: %v", identity.RoomKey(), consultationID, err)
		return false
	}
	return ok
}
