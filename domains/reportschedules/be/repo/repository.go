package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// ErrInconsistentState is returned when a schedule id is found in both partitions.
var ErrInconsistentState = errors.New("report schedule present in both partitions")

// Repository defines the persistence operations required by the report schedules service.
// Status arguments name the partition expected to hold the record; a record held by the
// other partition is reported as persistence.ErrReportScheduleNotFound.
type Repository interface {
	List(ctx context.Context, session tenant.Session) ([]persistence.ReportScheduleRecord, error)
	Get(ctx context.Context, session tenant.Session, id uuid.UUID, status string) (persistence.ReportScheduleRecord, error)
	// Create stores record and enqueues msg atomically.
	Create(ctx context.Context, session tenant.Session, record persistence.ReportScheduleRecord, msg notify.Message) (persistence.ReportScheduleRecord, error)
	// Update overwrites the configuration of record in status and enqueues msg atomically.
	Update(ctx context.Context, session tenant.Session, record persistence.ReportScheduleRecord, status string, msg notify.Message) (persistence.ReportScheduleRecord, error)
	Move(ctx context.Context, session tenant.Session, id uuid.UUID, from, to string, updatedAt time.Time) (persistence.ReportScheduleRecord, error)
	Delete(ctx context.Context, session tenant.Session, id uuid.UUID, status string) error
}

type postgresRepository struct {
	store *persistence.ReportScheduleStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ReportScheduleStore) Repository {
	if store == nil {
		panic("report schedule store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) List(ctx context.Context, session tenant.Session) ([]persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return r.store.List(ctx, session.Email)
}

func (r *postgresRepository) Get(ctx context.Context, session tenant.Session, id uuid.UUID, status string) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}
	return r.store.Get(ctx, session.Email, id, status)
}

func (r *postgresRepository) Create(ctx context.Context, session tenant.Session, record persistence.ReportScheduleRecord, msg notify.Message) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}
	record.Email = session.Email
	return r.store.Create(ctx, record, msg)
}

func (r *postgresRepository) Update(ctx context.Context, session tenant.Session, record persistence.ReportScheduleRecord, status string, msg notify.Message) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}
	record.Email = session.Email
	return r.store.Update(ctx, record, status, msg)
}

func (r *postgresRepository) Move(ctx context.Context, session tenant.Session, id uuid.UUID, from, to string, updatedAt time.Time) (persistence.ReportScheduleRecord, error) {
	if err := requireSession(session); err != nil {
		return persistence.ReportScheduleRecord{}, err
	}
	return r.store.SetStatus(ctx, session.Email, id, from, to, updatedAt)
}

func (r *postgresRepository) Delete(ctx context.Context, session tenant.Session, id uuid.UUID, status string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	return r.store.Delete(ctx, session.Email, id, status)
}

func requireSession(session tenant.Session) error {
	if session.Email == "" {
		return errors.New("tenant session is required")
	}
	return nil
}
