// File: internal/ws/handler_test.go
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lexserve/go-lexserve/internal/auth"
	"github.com/lexserve/go-lexserve/internal/domain"
	"github.com/lexserve/go-lexserve/internal/middleware"
)

var handlerTestSecret = []byte("handler-test-secret")

// staticMembership answers membership checks from a fixed allow set.
type staticMembership struct {
	allowed map[uint][]domain.Identity
}

func (m *staticMembership) IsParticipant(_ context.Context, consultationID uint, identity domain.Identity) (bool, error) {
	for _, member := range m.allowed[consultationID] {
		if member == identity {
			return true, nil
		}
	}
	return false, nil
}

type handlerFixture struct {
	rooms    *RoomRouter
	presence *PresenceRegistry
	server   *httptest.Server
}

func newHandlerFixture(t *testing.T, membership MembershipChecker) *handlerFixture {
	t.Helper()

	rooms := NewRoomRouter()
	presence := NewPresenceRegistry(nil)
	broadcaster := NewBroadcaster(rooms, presence)
	handler := NewHandler(rooms, presence, broadcaster, membership)

	authMiddleware := middleware.NewJWTMiddleware(handlerTestSecret)
	server := httptest.NewServer(authMiddleware(http.HandlerFunc(handler.HandleSocket)))
	t.Cleanup(server.Close)

	return &handlerFixture{rooms: rooms, presence: presence, server: server}
}

func (f *handlerFixture) dial(t *testing.T, identity domain.Identity) *websocket.Conn {
	t.Helper()

	token, err := auth.GenerateJWT(identity, handlerTestSecret)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	sock, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })
	return sock
}

func sendFrame(t *testing.T, sock *websocket.Conn, action string, consultationID uint) {
	t.Helper()
	frame := map[string]interface{}{"action": action, "consultationId": consultationID}
	require.NoError(t, sock.WriteJSON(frame))
}

func readEnvelope(t *testing.T, sock *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := sock.ReadMessage()
	require.NoError(t, err)

	var decoded struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded.Event, decoded.Payload
}

func TestConnectJoinsPersonalRoomAndMarksOnline(t *testing.T) {
	identity := domain.Identity{ID: 20, Role: domain.RoleAdvocate}
	f := newHandlerFixture(t, &staticMembership{})

	sock := f.dial(t, identity)
	defer sock.Close()

	require.Eventually(t, func() bool {
		return f.presence.IsOnline(identity) && f.rooms.MemberCount("advocate-20") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnauthenticatedDialIsRejected(t *testing.T) {
	f := newHandlerFixture(t, &staticMembership{})

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinConsultationRequiresMembership(t *testing.T) {
	member := domain.Identity{ID: 10, Role: domain.RoleClient}
	outsider := domain.Identity{ID: 11, Role: domain.RoleClient}
	f := newHandlerFixture(t, &staticMembership{allowed: map[uint][]domain.Identity{7: {member}}})

	memberSock := f.dial(t, member)
	outsiderSock := f.dial(t, outsider)

	sendFrame(t, memberSock, "join-consultation", 7)
	require.Eventually(t, func() bool {
		return f.rooms.MemberCount("consultation-7") == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A non-participant's join is silently dropped.
	sendFrame(t, outsiderSock, "join-consultation", 7)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, f.rooms.MemberCount("consultation-7"))
}

func TestBroadcastReachesJoinedSocket(t *testing.T) {
	member := domain.Identity{ID: 10, Role: domain.RoleClient}
	f := newHandlerFixture(t, &staticMembership{allowed: map[uint][]domain.Identity{7: {member}}})

	sock := f.dial(t, member)
	require.Eventually(t, func() bool {
		return f.rooms.MemberCount("client-10") == 1
	}, 2*time.Second, 10*time.Millisecond)

	delivered := f.rooms.Broadcast("client-10", NewMessageEvent{
		ConsultationID: 7,
		MessageID:      42,
		SenderID:       20,
		SenderType:     domain.RoleAdvocate,
		Message:        "Hello",
		Kind:           domain.MessageKindText,
		CreatedAt:      time.Now(),
	})
	require.Equal(t, 1, delivered)

	name, payload := readEnvelope(t, sock)
	require.Equal(t, "new-message", name)
	require.Equal(t, "Hello", payload["message"])
	require.Equal(t, "advocate", payload["senderType"])
}

func TestTypingRelaysBetweenParticipants(t *testing.T) {
	client := domain.Identity{ID: 10, Role: domain.RoleClient}
	advocate := domain.Identity{ID: 20, Role: domain.RoleAdvocate}
	f := newHandlerFixture(t, &staticMembership{allowed: map[uint][]domain.Identity{7: {client, advocate}}})

	clientSock := f.dial(t, client)
	advocateSock := f.dial(t, advocate)

	sendFrame(t, clientSock, "join-consultation", 7)
	sendFrame(t, advocateSock, "join-consultation", 7)
	require.Eventually(t, func() bool {
		return f.rooms.MemberCount("consultation-7") == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, clientSock, "typing-start", 7)

	name, payload := readEnvelope(t, advocateSock)
	require.Equal(t, "user-typing", name)
	require.EqualValues(t, 10, payload["senderId"])
}

func TestDisconnectCleansUp(t *testing.T) {
	identity := domain.Identity{ID: 20, Role: domain.RoleAdvocate}
	f := newHandlerFixture(t, &staticMembership{})

	sock := f.dial(t, identity)
	require.Eventually(t, func() bool {
		return f.presence.IsOnline(identity)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sock.Close())

	require.Eventually(t, func() bool {
		return !f.presence.IsOnline(identity) && f.rooms.MemberCount("advocate-20") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
