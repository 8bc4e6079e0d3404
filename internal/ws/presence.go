// File: internal/ws/presence.go
package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// StatusWriter persists the durable presence fallback (is_online, last_seen).
// The in-memory registry stays authoritative for live state; write failures
// are logged and swallowed.
type StatusWriter interface {
	UpdatePresence(ctx context.Context, identity domain.Identity, online bool, lastSeen time.Time) error
}

type presenceEntry struct {
	conn     Conn
	online   bool
	lastSeen time.Time
}

// PresenceRegistry tracks which identities currently hold a live transport
// connection. One active connection per identity: a new MarkOnline replaces
// (and closes) the previous handle. Any disconnect flips the identity
// offline; simultaneous connections per identity are not reference-counted.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]*presenceEntry // identity room key -> entry

	writer       StatusWriter // may be nil
	writeTimeout time.Duration
}

func NewPresenceRegistry(writer StatusWriter) *PresenceRegistry {
	return &PresenceRegistry{
		entries:      make(map[string]*presenceEntry),
		writer:       writer,
		writeTimeout: 5 * time.Second,
	}
}

// MarkOnline records the identity as online and stores its connection handle
// for targeted delivery. The durable write happens asynchronously.
func (p *PresenceRegistry) MarkOnline(identity domain.Identity, conn Conn) {
	now := time.Now()

	p.mu.Lock()
	prev := p.entries[identity.RoomKey()]
	p.entries[identity.RoomKey()] = &presenceEntry{conn: conn, online: true, lastSeen: now}
	p.mu.Unlock()

	// Close the replaced handle outside the lock to avoid deadlocking with
	// a broadcaster holding a reference to it.
	if prev != nil && prev.conn != nil && (conn == nil || prev.conn.ID() != conn.ID()) {
		go func(old Conn) {
			if err := old.Close(); err != nil {
				log.Printf("[PresenceRegistry] Failed to close replaced connection for %s: %v", identity.RoomKey(), err)
			}
		}(prev.conn)
	}

	p.persist(identity, true, now)
}

// MarkOffline flips the identity offline and drops its connection handle.
func (p *PresenceRegistry) MarkOffline(identity domain.Identity) {
	now := time.Now()

	p.mu.Lock()
	if entry, ok := p.entries[identity.RoomKey()]; ok {
		entry.conn = nil
		entry.online = false
		entry.lastSeen = now
	} else {
		p.entries[identity.RoomKey()] = &presenceEntry{online: false, lastSeen: now}
	}
	p.mu.Unlock()

	p.persist(identity, false, now)
}

// MarkOfflineIfCurrent marks offline only when conn is still the registered
// handle. Keeps a replaced tab's deferred cleanup from knocking the live
// connection offline.
func (p *PresenceRegistry) MarkOfflineIfCurrent(identity domain.Identity, conn Conn) bool {
	p.mu.RLock()
	entry, ok := p.entries[identity.RoomKey()]
	current := ok && entry.conn != nil && conn != nil && entry.conn.ID() == conn.ID()
	p.mu.RUnlock()

	if !current {
		return false
	}
	p.MarkOffline(identity)
	return true
}

// IsOnline reports the live online flag for the identity.
func (p *PresenceRegistry) IsOnline(identity domain.Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[identity.RoomKey()]
	return ok && entry.online
}

// LastSeen returns the identity's last observed transition time.
func (p *PresenceRegistry) LastSeen(identity domain.Identity) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[identity.RoomKey()]
	if !ok {
		return time.Time{}, false
	}
	return entry.lastSeen, true
}

// Connection returns the identity's live connection handle, if any.
func (p *PresenceRegistry) Connection(identity domain.Identity) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[identity.RoomKey()]
	if !ok || entry.conn == nil || !entry.online {
		return nil, false
	}
	return entry.conn, true
}

// persist writes the durable fallback in the background. A transient store
// failure leaves in-memory state correct, so it is logged and swallowed.
func (p *PresenceRegistry) persist(identity domain.Identity, online bool, lastSeen time.Time) {
	if p.writer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		defer cancel()

		if err := p.writer.UpdatePresence(ctx, identity, online, lastSeen); err != nil {
			log.Printf("[PresenceRegistry] Durable presence write failed for %s (online=%v): %v", identity.RoomKey(), online, err)
		}
	}()
}
