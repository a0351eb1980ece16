package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
)

const ReportSchedulesTable = "report_schedules"

// Report schedule status values; each row lives in exactly one.
const (
	ScheduleStatusActive   = "active"
	ScheduleStatusInactive = "inactive"
)

var (
	// ErrReportScheduleNotFound indicates no row matched the id, email and status.
	ErrReportScheduleNotFound = errors.New("report schedule not found")
	// ErrReportScheduleConflict indicates the id is already taken.
	ErrReportScheduleConflict = errors.New("report schedule conflict")
)

// ReportScheduleRecord is a row of the report_schedules table.
type ReportScheduleRecord struct {
	ID                     uuid.UUID
	Email                  string
	Status                 string
	PersonName             string
	CustomerID             string
	ContactEmails          []string
	ReportName             *string
	ReportType             string
	DateRange              string
	ApplyLossThreshold     bool
	TotalLossPerOrderPack  *float64
	LossPerOrderedPack     *float64
	GrandTotalLoss         *float64
	Frequency              string
	DeliveryDayOfWeek      *int
	DeliveryDayOfMonth     *int
	DeliveryTimeHour       int
	SendNotificationNoData bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

const reportScheduleColumns = `id, email, status, person_name, customer_id, contact_email, report_name,
        report_type, date_range, apply_loss_threshold, total_loss_per_order_pack,
        loss_per_ordered_pack, grand_total_loss, frequency, delivery_day_of_week,
        delivery_day_of_month, delivery_time_hour, send_notification_no_data,
        created_at, updated_at`

// ReportScheduleStore owns the SQL for report schedules. Every statement is scoped by tenant email.
type ReportScheduleStore struct {
	pool *pgxpool.Pool
}

// NewReportScheduleStore returns a store over pool. Run Migrate first.
func NewReportScheduleStore(pool *pgxpool.Pool) (*ReportScheduleStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ReportScheduleStore{pool: pool}, nil
}

// List returns every schedule of email, newest first. Ties are broken by id.
func (s *ReportScheduleStore) List(ctx context.Context, email string) ([]ReportScheduleRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE email = $1
        ORDER BY created_at DESC, id
    `, reportScheduleColumns, ReportSchedulesTable), email)
	if err != nil {
		return nil, fmt.Errorf("list report schedules: %w", err)
	}
	defer rows.Close()

	records := make([]ReportScheduleRecord, 0)
	for rows.Next() {
		record, scanErr := scanReportSchedule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan report schedule: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report schedules: %w", err)
	}
	return records, nil
}

// Get returns the schedule with id when it belongs to email and currently has status.
func (s *ReportScheduleStore) Get(ctx context.Context, email string, id uuid.UUID, status string) (ReportScheduleRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE id = $1 AND email = $2 AND status = $3
    `, reportScheduleColumns, ReportSchedulesTable), id, email, status)

	record, err := scanReportSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportScheduleRecord{}, ErrReportScheduleNotFound
		}
		return ReportScheduleRecord{}, fmt.Errorf("get report schedule: %w", err)
	}
	return record, nil
}

// Create inserts record and enqueues msg in the same transaction.
func (s *ReportScheduleStore) Create(ctx context.Context, record ReportScheduleRecord, msg notify.Message) (ReportScheduleRecord, error) {
	if record.ID == uuid.Nil {
		return ReportScheduleRecord{}, errors.New("report schedule id is required")
	}

	var created ReportScheduleRecord
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (%s)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
            RETURNING %s
        `, ReportSchedulesTable, reportScheduleColumns, reportScheduleColumns),
			record.ID,
			record.Email,
			record.Status,
			record.PersonName,
			record.CustomerID,
			record.ContactEmails,
			record.ReportName,
			record.ReportType,
			record.DateRange,
			record.ApplyLossThreshold,
			record.TotalLossPerOrderPack,
			record.LossPerOrderedPack,
			record.GrandTotalLoss,
			record.Frequency,
			record.DeliveryDayOfWeek,
			record.DeliveryDayOfMonth,
			record.DeliveryTimeHour,
			record.SendNotificationNoData,
			record.CreatedAt,
			record.UpdatedAt,
		)

		var err error
		created, err = scanReportSchedule(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrReportScheduleConflict
			}
			return fmt.Errorf("insert report schedule: %w", err)
		}
		return insertOutboxMessage(ctx, tx, msg)
	})
	if err != nil {
		return ReportScheduleRecord{}, err
	}
	return created, nil
}

// Update overwrites the mutable columns of the row matching record.ID, record.Email and status,
// and enqueues msg in the same transaction. Identity columns and created_at are never touched.
func (s *ReportScheduleStore) Update(ctx context.Context, record ReportScheduleRecord, status string, msg notify.Message) (ReportScheduleRecord, error) {
	var updated ReportScheduleRecord
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            UPDATE %s SET
                person_name = $4,
                customer_id = $5,
                contact_email = $6,
                report_name = $7,
                report_type = $8,
                date_range = $9,
                apply_loss_threshold = $10,
                total_loss_per_order_pack = $11,
                loss_per_ordered_pack = $12,
                grand_total_loss = $13,
                frequency = $14,
                delivery_day_of_week = $15,
                delivery_day_of_month = $16,
                delivery_time_hour = $17,
                send_notification_no_data = $18,
                updated_at = $19
            WHERE id = $1 AND email = $2 AND status = $3
            RETURNING %s
        `, ReportSchedulesTable, reportScheduleColumns),
			record.ID,
			record.Email,
			status,
			record.PersonName,
			record.CustomerID,
			record.ContactEmails,
			record.ReportName,
			record.ReportType,
			record.DateRange,
			record.ApplyLossThreshold,
			record.TotalLossPerOrderPack,
			record.LossPerOrderedPack,
			record.GrandTotalLoss,
			record.Frequency,
			record.DeliveryDayOfWeek,
			record.DeliveryDayOfMonth,
			record.DeliveryTimeHour,
			record.SendNotificationNoData,
			record.UpdatedAt,
		)

		var err error
		updated, err = scanReportSchedule(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrReportScheduleNotFound
			}
			return fmt.Errorf("update report schedule: %w", err)
		}
		return insertOutboxMessage(ctx, tx, msg)
	})
	if err != nil {
		return ReportScheduleRecord{}, err
	}
	return updated, nil
}

// SetStatus moves a row from one status to the other in a single statement.
func (s *ReportScheduleStore) SetStatus(ctx context.Context, email string, id uuid.UUID, from, to string, updatedAt time.Time) (ReportScheduleRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $4, updated_at = $5
        WHERE id = $1 AND email = $2 AND status = $3
        RETURNING %s
    `, ReportSchedulesTable, reportScheduleColumns), id, email, from, to, updatedAt)

	record, err := scanReportSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportScheduleRecord{}, ErrReportScheduleNotFound
		}
		return ReportScheduleRecord{}, fmt.Errorf("set report schedule status: %w", err)
	}
	return record, nil
}

// Delete removes the row matching id, email and status.
func (s *ReportScheduleStore) Delete(ctx context.Context, email string, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE id = $1 AND email = $2 AND status = $3
    `, ReportSchedulesTable), id, email, status)
	if err != nil {
		return fmt.Errorf("delete report schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportScheduleNotFound
	}
	return nil
}

func scanReportSchedule(row pgx.Row) (ReportScheduleRecord, error) {
	var record ReportScheduleRecord
	if err := row.Scan(
		&record.ID,
		&record.Email,
		&record.Status,
		&record.PersonName,
		&record.CustomerID,
		&record.ContactEmails,
		&record.ReportName,
		&record.ReportType,
		&record.DateRange,
		&record.ApplyLossThreshold,
		&record.TotalLossPerOrderPack,
		&record.LossPerOrderedPack,
		&record.GrandTotalLoss,
		&record.Frequency,
		&record.DeliveryDayOfWeek,
		&record.DeliveryDayOfMonth,
		&record.DeliveryTimeHour,
		&record.SendNotificationNoData,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return ReportScheduleRecord{}, err
	}
	if record.ContactEmails == nil {
		record.ContactEmails = []string{}
	}
	return record, nil
}
