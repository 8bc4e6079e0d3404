// File: internal/ws/rooms.go
package ws

import (
	"log"
	"sync"
)

// RoomRouter maps room keys to the set of connections currently joined.
// Room keys are "client-{id}" / "advocate-{id}" for personal rooms and
// "consultation-{id}" for session rooms. A connection may sit in several
// rooms at once (its personal room plus zero or one consultation room).
type RoomRouter struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn // roomKey -> connID -> Conn
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{rooms: make(map[string]map[string]Conn)}
}

// Join adds the connection to a room. Joining twice is a no-op.
func (r *RoomRouter) Join(conn Conn, roomKey string) {
	if conn == nil || roomKey == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomKey] == nil {
		r.rooms[roomKey] = make(map[string]Conn)
	}
	r.rooms[roomKey][conn.ID()] = conn
}

// Leave removes the connection from a room. Unknown pairs are ignored.
func (r *RoomRouter) Leave(conn Conn, roomKey string) {
	if conn == nil || roomKey == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(conn.ID(), roomKey)
}

// LeaveAll removes the connection from every room it joined. Called on
// disconnect so no room holds a dangling broadcast target.
func (r *RoomRouter) LeaveAll(conn Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for roomKey := range r.rooms {
		r.removeLocked(conn.ID(), roomKey)
	}
}

// Rooms returns the keys the connection currently belongs to.
func (r *RoomRouter) Rooms(conn Conn) []string {
	if conn == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for roomKey, members := range r.rooms {
		if _, ok := members[conn.ID()]; ok {
			keys = append(keys, roomKey)
		}
	}
	return keys
}

// Broadcast delivers the event to every member of the room and returns the
// recipient count. An empty room is a silent no-op, not an error: the
// recipient catches up on its next history fetch.
func (r *RoomRouter) Broadcast(roomKey string, ev Event) int {
	return r.BroadcastExcept(roomKey, ev, "")
}

// BroadcastExcept delivers to every member except the named connection,
// used so a sender does not receive an echo of its own typing signal.
func (r *RoomRouter) BroadcastExcept(roomKey string, ev Event, excludeConnID string) int {
	members := r.snapshot(roomKey)

	delivered := 0
	for _, conn := range members {
		if excludeConnID != "" && conn.ID() == excludeConnID {
			continue
		}
		if err := conn.Send(ev); err != nil {
			log.Printf("[RoomRouter] Delivery to %s in room %s failed: %v", conn.Identity().RoomKey(), roomKey, err)
			continue
		}
		delivered++
	}
	return delivered
}

// BroadcastAll delivers the event once to every distinct connection in any
// room. Used for global status transitions.
func (r *RoomRouter) BroadcastAll(ev Event) int {
	r.mu.RLock()
	seen := make(map[string]Conn)
	for _, members := range r.rooms {
		for id, conn := range members {
			seen[id] = conn
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range seen {
		if err := conn.Send(ev); err != nil {
			continue
		}
		delivered++
	}
	return delivered
}

// MemberCount returns how many connections are joined to the room.
func (r *RoomRouter) MemberCount(roomKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomKey])
}

func (r *RoomRouter) snapshot(roomKey string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Conn, 0, len(r.rooms[roomKey]))
	for _, conn := range r.rooms[roomKey] {
		members = append(members, conn)
	}
	return members
}

// removeLocked deletes the connection from one room and cleans up the map
// when it empties. Caller holds the write lock.
func (r *RoomRouter) removeLocked(connID, roomKey string) {
	members, ok := r.rooms[roomKey]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomKey)
	}
}
