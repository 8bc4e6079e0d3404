// File: internal/ws/rooms_test.go
package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// fakeConn records delivered events in place of a real socket.
type fakeConn struct {
	id       string
	identity domain.Identity

	mu     sync.Mutex
	events []Event
	closed bool
	done   chan struct{}
}

func newFakeConn(identity domain.Identity) *fakeConn {
	return &fakeConn{
		id:       uuid.NewString(),
		identity: identity,
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) Identity() domain.Identity { return c.identity }
func (c *fakeConn) Done() <-chan struct{}     { return c.done }

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testMessageEvent(consultationID uint) NewMessageEvent {
	return NewMessageEvent{
		ConsultationID: consultationID,
		MessageID:      1,
		SenderID:       10,
		SenderType:     domain.RoleClient,
		Message:        "Hello",
		Kind:           domain.MessageKindText,
	}
}

func TestJoinAndBroadcast(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})
	advocate := newFakeConn(domain.Identity{ID: 20, Role: domain.RoleAdvocate})

	rooms.Join(client, "consultation-7")
	rooms.Join(advocate, "consultation-7")

	delivered := rooms.Broadcast("consultation-7", testMessageEvent(7))
	require.Equal(t, 2, delivered)
	require.Len(t, client.received(), 1)
	require.Len(t, advocate.received(), 1)
}

func TestBroadcastToEmptyRoomIsSilent(t *testing.T) {
	rooms := NewRoomRouter()
	require.Equal(t, 0, rooms.Broadcast("consultation-99", testMessageEvent(99)))
}

func TestJoinTwiceIsIdempotent(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})

	rooms.Join(client, "consultation-7")
	rooms.Join(client, "consultation-7")

	require.Equal(t, 1, rooms.MemberCount("consultation-7"))
	require.Equal(t, 1, rooms.Broadcast("consultation-7", testMessageEvent(7)))
}

func TestLeaveStopsDelivery(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})

	rooms.Join(client, "consultation-7")
	rooms.Leave(client, "consultation-7")

	require.Equal(t, 0, rooms.Broadcast("consultation-7", testMessageEvent(7)))
	require.Empty(t, client.received())
}

func TestLeaveAllClearsEveryRoom(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})

	rooms.Join(client, "client-10")
	rooms.Join(client, "consultation-7")
	rooms.LeaveAll(client)

	require.Empty(t, rooms.Rooms(client))
	require.Equal(t, 0, rooms.MemberCount("client-10"))
	require.Equal(t, 0, rooms.MemberCount("consultation-7"))
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})
	advocate := newFakeConn(domain.Identity{ID: 20, Role: domain.RoleAdvocate})

	rooms.Join(client, "consultation-7")
	rooms.Join(advocate, "consultation-7")

	delivered := rooms.BroadcastExcept("consultation-7", testMessageEvent(7), client.ID())
	require.Equal(t, 1, delivered)
	require.Empty(t, client.received())
	require.Len(t, advocate.received(), 1)
}

func TestBroadcastAllDeduplicatesAcrossRooms(t *testing.T) {
	rooms := NewRoomRouter()
	client := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})

	rooms.Join(client, "client-10")
	rooms.Join(client, "consultation-7")

	delivered := rooms.BroadcastAll(AdvocateStatusEvent{IdentityID: 20, Role: domain.RoleAdvocate, IsOnline: true})
	require.Equal(t, 1, delivered)
	require.Len(t, client.received(), 1)
}

func TestBroadcastSkipsFailedConnections(t *testing.T) {
	rooms := NewRoomRouter()
	healthy := newFakeConn(domain.Identity{ID: 10, Role: domain.RoleClient})
	broken := newFakeConn(domain.Identity{ID: 20, Role: domain.RoleAdvocate})
	_ = broken.Close()

	rooms.Join(healthy, "consultation-7")
	rooms.Join(broken, "consultation-7")

	require.Equal(t, 1, rooms.Broadcast("consultation-7", testMessageEvent(7)))
}
