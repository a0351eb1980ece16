package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMessageNotFound is returned when an outbox entry does not exist.
var ErrMessageNotFound = errors.New("outbox message not found")

// Failure records the outcome of an unsuccessful delivery round.
type Failure struct {
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	// Dead stops further delivery attempts.
	Dead bool
}

// Outbox stores messages until they are delivered.
type Outbox interface {
	// Claim leases up to limit due messages so concurrent dispatchers skip them until lease expires.
	Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]Message, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, failure Failure) error
}

// EntryStatus is the lifecycle state of an outbox entry.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusDelivered EntryStatus = "delivered"
	StatusDead      EntryStatus = "dead"
)

// Entry is a stored message plus its delivery bookkeeping.
type Entry struct {
	Message
	Status        EntryStatus
	NextAttemptAt time.Time
	DeliveredAt   *time.Time
	LastError     string
}

// MemoryOutbox is an in-process Outbox.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
}

// NewMemoryOutbox returns an empty MemoryOutbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{entries: make(map[uuid.UUID]*Entry)}
}

// Enqueue stores msg as immediately due.
func (o *MemoryOutbox) Enqueue(msg Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries[msg.ID] = &Entry{
		Message:       msg,
		Status:        StatusPending,
		NextAttemptAt: msg.CreatedAt,
	}
}

// Claim implements Outbox.
func (o *MemoryOutbox) Claim(_ context.Context, limit int, now time.Time, lease time.Duration) ([]Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	due := make([]*Entry, 0)
	for _, entry := range o.entries {
		if entry.Status == StatusPending && !entry.NextAttemptAt.After(now) {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]Message, 0, len(due))
	for _, entry := range due {
		entry.NextAttemptAt = now.Add(lease)
		out = append(out, entry.Message)
	}
	return out, nil
}

// MarkDelivered implements Outbox.
func (o *MemoryOutbox) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[id]
	if !ok {
		return ErrMessageNotFound
	}
	entry.Status = StatusDelivered
	entry.DeliveredAt = &at
	entry.LastError = ""
	return nil
}

// MarkFailed implements Outbox.
func (o *MemoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, failure Failure) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[id]
	if !ok {
		return ErrMessageNotFound
	}
	entry.Attempts = failure.Attempts
	entry.NextAttemptAt = failure.NextAttemptAt
	entry.LastError = failure.LastError
	if failure.Dead {
		entry.Status = StatusDead
	}
	return nil
}

// Entries returns a copy of every stored entry ordered by creation time.
func (o *MemoryOutbox) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Entry, 0, len(o.entries))
	for _, entry := range o.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
