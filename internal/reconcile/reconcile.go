// File: internal/reconcile/reconcile.go

// Package reconcile implements the optimistic message view a chat client
// keeps per consultation. Outgoing messages appear immediately as pending
// entries under a temporary id, then get confirmed or rolled back when the
// server answers, while live broadcasts and history fetches merge in
// without duplicating anything already shown.
package reconcile

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// EntryState tags whether an entry has a server-assigned id yet.
type EntryState int

const (
	StatePending EntryState = iota
	StateConfirmed
)

var ErrUnknownTempID = errors.New("reconcile: unknown temp id")

// Entry is one message in the view. Pending entries carry only TempID;
// confirmed ones carry the persisted message with its real id.
type Entry struct {
	State   EntryState
	TempID  string
	Message domain.Message
}

// View holds the per-consultation message list a client renders.
// It is not safe for concurrent use; a client owns one view per open
// consultation and mutates it from its event loop.
type View struct {
	entries []Entry
	pending map[string]int  // temp id -> index into entries
	seen    map[uint]bool   // confirmed real ids
}

func NewView() *View {
	return &View{
		pending: make(map[string]int),
		seen:    make(map[uint]bool),
	}
}

// NewTempID mints an id for an optimistic send.
func NewTempID() string {
	return "tmp-" + uuid.NewString()
}

// AddPending appends an optimistic entry for a message the client has sent
// but the server has not yet acknowledged.
func (v *View) AddPending(tempID string, msg domain.Message) {
	v.pending[tempID] = len(v.entries)
	v.entries = append(v.entries, Entry{
		State:   StatePending,
		TempID:  tempID,
		Message: msg,
	})
}

// Confirm swaps a pending entry for the persisted message the server
// returned. The real id is recorded so a later broadcast of the same
// message is ignored.
func (v *View) Confirm(tempID string, persisted domain.Message) error {
	idx, ok := v.pending[tempID]
	if !ok {
		return ErrUnknownTempID
	}
	delete(v.pending, tempID)

	v.entries[idx] = Entry{State: StateConfirmed, Message: persisted}
	v.seen[persisted.ID] = true
	return nil
}

// Fail removes a pending entry after a rejected send and hands the body
// back so the client can restore it into the compose box.
func (v *View) Fail(tempID string) (string, error) {
	idx, ok := v.pending[tempID]
	if !ok {
		return "", ErrUnknownTempID
	}
	delete(v.pending, tempID)

	body := v.entries[idx].Message.Body
	v.entries = append(v.entries[:idx], v.entries[idx+1:]...)
	for id, i := range v.pending {
		if i > idx {
			v.pending[id] = i - 1
		}
	}
	return body, nil
}

// Apply folds a broadcast message into the view. A message whose id was
// already confirmed is dropped, which makes the sender's own echo and
// repeated deliveries harmless.
func (v *View) Apply(msg domain.Message) bool {
	if msg.ID != 0 && v.seen[msg.ID] {
		return false
	}
	v.entries = append(v.entries, Entry{State: StateConfirmed, Message: msg})
	if msg.ID != 0 {
		v.seen[msg.ID] = true
	}
	return true
}

// Merge folds a history fetch into the view, skipping ids already present.
// It is the backstop for anything missed while the socket was down.
func (v *View) Merge(history []domain.Message) int {
	added := 0
	for _, msg := range history {
		if v.Apply(msg) {
			added++
		}
	}
	return added
}

// Messages returns the rendered list: confirmed entries in timestamp order
// with id as the tiebreak, pending entries after anything they do not
// precede in time.
func (v *View) Messages() []domain.Message {
	out := make([]domain.Message, 0, len(v.entries))
	entries := make([]Entry, len(v.entries))
	copy(entries, v.entries)

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Message, entries[j].Message
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

// PendingCount reports how many entries still await acknowledgement.
func (v *View) PendingCount() int {
	return len(v.pending)
}
