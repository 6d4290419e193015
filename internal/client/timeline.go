// Package client implements the connection-side view of a chat room: a
// timeline that renders sent messages optimistically and reconciles them
// against the server's authoritative broadcasts.
package client

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
)

// tempIdPrefix marks locally generated placeholder ids so they can never be
// mistaken for server-assigned message ids.
const tempIdPrefix = "temp-"

// Status tracks a timeline entry's position in the optimistic send cycle.
type Status int

const (
	// StatusPending means the entry is a local placeholder awaiting the
	// server's broadcast.
	StatusPending Status = iota
	// StatusConfirmed means the entry carries the server-assigned message.
	StatusConfirmed
	// StatusFailed means the server rejected the send; the entry stays
	// visible so the user can retry or dismiss it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is a single message in the timeline together with its optimistic
// state. Deleted is set while a local delete awaits server confirmation;
// confirmed deletions remove the entry entirely.
type Entry struct {
	Message types.Message
	Status  Status
	Deleted bool
}

// IsPlaceholder reports whether the entry still carries a locally generated
// id.
func (e Entry) IsPlaceholder() bool {
	return strings.HasPrefix(e.Message.Id, tempIdPrefix)
}

// NewTempId returns a fresh placeholder message id.
func NewTempId() string {
	return tempIdPrefix + uuid.NewString()
}

// Timeline is the ordered message list for one room. All methods are safe
// for concurrent use; the read loop and the UI may touch it from different
// goroutines.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// AppendPlaceholder adds a pending entry for a message the user just sent
// and returns it. The placeholder renders immediately; ApplyMessage swaps it
// for the authoritative copy when the broadcast arrives.
func (t *Timeline) AppendPlaceholder(msg types.Message) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.Id == "" {
		msg.Id = NewTempId()
	}

	entry := Entry{Message: msg, Status: StatusPending}
	t.entries = append(t.entries, entry)
	return entry
}

// ApplyMessage folds a broadcast message into the timeline. If a pending
// placeholder matches on sender and content the server copy replaces it in
// place, keeping the message's visual position; otherwise the message is
// appended as a new confirmed entry. Replacement takes the oldest match so
// repeated identical sends confirm in order.
func (t *Timeline) ApplyMessage(msg types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		e := &t.entries[i]
		if e.Status == StatusPending &&
			e.Message.Sender == msg.Sender &&
			e.Message.Content == msg.Content {
			e.Message = msg
			e.Status = StatusConfirmed
			return
		}
	}

	t.entries = append(t.entries, Entry{Message: msg, Status: StatusConfirmed})
}

// ApplyDeleted removes the entry with the given server id. It reports
// whether an entry was removed; applying the same deletion twice is a no-op,
// so replayed broadcasts are harmless.
func (t *Timeline) ApplyDeleted(messageId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Message.Id == messageId {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveOptimistic hides the entry with the given id ahead of server
// confirmation. The entry is retained so Restore can bring it back if the
// delete fails. It reports whether the id was found.
func (t *Timeline) RemoveOptimistic(messageId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Message.Id == messageId {
			t.entries[i].Deleted = true
			return true
		}
	}
	return false
}

// Restore undoes an optimistic removal after the server rejected the delete.
func (t *Timeline) Restore(messageId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Message.Id == messageId && t.entries[i].Deleted {
			t.entries[i].Deleted = false
			return true
		}
	}
	return false
}

// Fail marks the pending entry with the given placeholder id as failed. It
// reports whether the id was found and pending.
func (t *Timeline) Fail(messageId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Message.Id == messageId && t.entries[i].Status == StatusPending {
			t.entries[i].Status = StatusFailed
			return true
		}
	}
	return false
}

// FailLatestPending marks the most recently appended pending entry as
// failed. Errors arrive on the same connection that sent the message and
// events are processed in order, so the newest pending placeholder is the
// one the error refers to.
func (t *Timeline) FailLatestPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Status == StatusPending {
			t.entries[i].Status = StatusFailed
			return true
		}
	}
	return false
}

// Reset replaces the timeline with history fetched from the server, marking
// every entry confirmed. Used on room entry and after reconnects.
func (t *Timeline) Reset(messages []types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make([]Entry, 0, len(messages))
	for _, msg := range messages {
		t.entries = append(t.entries, Entry{Message: msg, Status: StatusConfirmed})
	}
}

// Entries returns a snapshot of the visible timeline, excluding entries
// hidden by an unconfirmed delete.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Deleted {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of visible entries.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.entries {
		if !e.Deleted {
			n++
		}
	}
	return n
}
