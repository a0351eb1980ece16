package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

type recordKey struct {
	email string
	id    uuid.UUID
}

type memoryRepository struct {
	mu         sync.RWMutex
	partitions map[string]map[recordKey]persistence.ReportScheduleRecord
	outbox     *notify.MemoryOutbox
}

// NewMemoryRepository keeps schedules in two in-process partitions. Saved notifications
// are enqueued into outbox under the same lock as the write.
func NewMemoryRepository(outbox *notify.MemoryOutbox) Repository {
	if outbox == nil {
		panic("memory outbox is required")
	}
	return &memoryRepository{
		partitions: map[string]map[recordKey]persistence.ReportScheduleRecord{
			persistence.ScheduleStatusActive:   {},
			persistence.ScheduleStatusInactive: {},
		},
		outbox: outbox,
	}
}

func (r *memoryRepository) List(_ context.Context, session tenant.Session) ([]persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	records := make([]persistence.ReportScheduleRecord, 0)
	for _, status := range []string{persistence.ScheduleStatusActive, persistence.ScheduleStatusInactive} {
		for key, record := range r.partitions[status] {
			if key.email != session.Email {
				continue
			}
			if _, dup := seen[key.id]; dup {
				return nil, ErrInconsistentState
			}
			seen[key.id] = struct{}{}
			records = append(records, cloneRecord(record))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
	return records, nil
}

func (r *memoryRepository) Get(_ context.Context, session tenant.Session, id uuid.UUID, status string) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	partition, ok := r.partitions[status]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}
	record, ok := partition[recordKey{email: session.Email, id: id}]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}
	return cloneRecord(record), nil
}

func (r *memoryRepository) Create(_ context.Context, session tenant.Session, record persistence.ReportScheduleRecord, msg notify.Message) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey{email: session.Email, id: record.ID}
	for _, partition := range r.partitions {
		if _, exists := partition[key]; exists {
			return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleConflict
		}
	}

	record.Email = session.Email
	record.Status = persistence.ScheduleStatusActive
	r.partitions[persistence.ScheduleStatusActive][key] = cloneRecord(record)
	r.outbox.Enqueue(msg)
	return cloneRecord(record), nil
}

func (r *memoryRepository) Update(_ context.Context, session tenant.Session, record persistence.ReportScheduleRecord, status string, msg notify.Message) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	partition, ok := r.partitions[status]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}
	key := recordKey{email: session.Email, id: record.ID}
	existing, ok := partition[key]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}

	record.Email = existing.Email
	record.Status = existing.Status
	record.CreatedAt = existing.CreatedAt
	partition[key] = cloneRecord(record)
	r.outbox.Enqueue(msg)
	return cloneRecord(record), nil
}

func (r *memoryRepository) Move(_ context.Context, session tenant.Session, id uuid.UUID, from, to string, updatedAt time.Time) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	source, ok := r.partitions[from]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}
	destination, ok := r.partitions[to]
	if !ok || from == to {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}

	key := recordKey{email: session.Email, id: id}
	record, ok := source[key]
	if !ok {
		return persistence.ReportScheduleRecord{}, persistence.ErrReportScheduleNotFound
	}
	if _, exists := destination[key]; exists {
		return persistence.ReportScheduleRecord{}, ErrInconsistentState
	}

	record.Status = to
	record.UpdatedAt = updatedAt
	destination[key] = record
	delete(source, key)
	return cloneRecord(record), nil
}

func (r *memoryRepository) Delete(_ context.Context, session tenant.Session, id uuid.UUID, status string) error {
	if err := requireSession(session); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	partition, ok := r.partitions[status]
	if !ok {
		return persistence.ErrReportScheduleNotFound
	}
	key := recordKey{email: session.Email, id: id}
	if _, ok := partition[key]; !ok {
		return persistence.ErrReportScheduleNotFound
	}
	delete(partition, key)
	return nil
}

func cloneRecord(record persistence.ReportScheduleRecord) persistence.ReportScheduleRecord {
	out := record
	out.ContactEmails = append([]string{}, record.ContactEmails...)
	out.ReportName = clonePtr(record.ReportName)
	out.TotalLossPerOrderPack = clonePtr(record.TotalLossPerOrderPack)
	out.LossPerOrderedPack = clonePtr(record.LossPerOrderedPack)
	out.GrandTotalLoss = clonePtr(record.GrandTotalLoss)
	out.DeliveryDayOfWeek = clonePtr(record.DeliveryDayOfWeek)
	out.DeliveryDayOfMonth = clonePtr(record.DeliveryDayOfMonth)
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
