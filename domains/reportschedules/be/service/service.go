package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/repo"
	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-reports/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("report schedule not found")
	// ErrInconsistentState means a schedule was observed in both partitions.
	ErrInconsistentState  = errors.New("report schedule in inconsistent state")
	ErrConflict           = errors.New("report schedule conflict")
	ErrNotificationFailed = errors.New("notification failed")
)

// Service defines the business operations for report schedules.
// Every call acts on behalf of exactly one tenant session.
type Service interface {
	List(ctx context.Context, session tenant.Session) ([]Schedule, error)
	Get(ctx context.Context, session tenant.Session, id uuid.UUID) (Schedule, error)
	Create(ctx context.Context, session tenant.Session, cfg Configuration) (Schedule, error)
	Update(ctx context.Context, session tenant.Session, id uuid.UUID, cfg Configuration, current Partition) (Schedule, error)
	Toggle(ctx context.Context, session tenant.Session, id uuid.UUID, current Partition) (Schedule, error)
	Delete(ctx context.Context, session tenant.Session, id uuid.UUID, current Partition) error
	SendTest(ctx context.Context, session tenant.Session, cfg Configuration) error
}

// Options configures optional collaborators.
type Options struct {
	// Notifier delivers test emails synchronously. SendTest fails without one.
	Notifier        notify.Sender
	TestSendTimeout time.Duration
	Clock           func() time.Time
}

type service struct {
	repo            repo.Repository
	notifier        notify.Sender
	testSendTimeout time.Duration
	now             func() time.Time
}

// New constructs a report schedules Service backed by the provided repository.
func New(r repo.Repository, opts Options) Service {
	if r == nil {
		panic("report schedules repository is required")
	}
	svc := &service{
		repo:            r,
		notifier:        opts.Notifier,
		testSendTimeout: opts.TestSendTimeout,
		now:             opts.Clock,
	}
	if svc.testSendTimeout <= 0 {
		svc.testSendTimeout = 10 * time.Second
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

func (s *service) List(ctx context.Context, session tenant.Session) ([]Schedule, error) {
	records, err := s.repo.List(ctx, session)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	schedules := make([]Schedule, 0, len(records))
	for _, record := range records {
		schedules = append(schedules, mapSchedule(record))
	}
	return schedules, nil
}

func (s *service) Get(ctx context.Context, session tenant.Session, id uuid.UUID) (Schedule, error) {
	if id == uuid.Nil {
		return Schedule{}, ErrNotFound
	}

	for _, partition := range []Partition{PartitionActive, PartitionInactive} {
		record, err := s.repo.Get(ctx, session, id, string(partition))
		if err == nil {
			return mapSchedule(record), nil
		}
		if !errors.Is(err, persistence.ErrReportScheduleNotFound) {
			return Schedule{}, mapPersistenceError(err)
		}
	}
	return Schedule{}, ErrNotFound
}

func (s *service) Create(ctx context.Context, session tenant.Session, cfg Configuration) (Schedule, error) {
	cfg = normalize(cfg)
	if err := validateConfiguration(cfg); err != nil {
		return Schedule{}, err
	}

	now := s.now().UTC()
	schedule := Schedule{
		ID:            uuid.New(),
		Email:         session.Email,
		Configuration: cfg,
		Partition:     PartitionActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	msg, err := s.savedMessage(ctx, schedule, now)
	if err != nil {
		return Schedule{}, err
	}

	record, err := s.repo.Create(ctx, session, toRecord(schedule), msg)
	if err != nil {
		return Schedule{}, mapPersistenceError(err)
	}
	return mapSchedule(record), nil
}

func (s *service) Update(ctx context.Context, session tenant.Session, id uuid.UUID, cfg Configuration, current Partition) (Schedule, error) {
	if id == uuid.Nil {
		return Schedule{}, ErrNotFound
	}

	cfg = normalize(cfg)
	if err := validateConfiguration(cfg); err != nil {
		return Schedule{}, err
	}

	now := s.now().UTC()
	schedule := Schedule{
		ID:            id,
		Email:         session.Email,
		Configuration: cfg,
		Partition:     current,
		UpdatedAt:     now,
	}

	msg, err := s.savedMessage(ctx, schedule, now)
	if err != nil {
		return Schedule{}, err
	}

	record, err := s.repo.Update(ctx, session, toRecord(schedule), string(current), msg)
	if err != nil {
		return Schedule{}, mapPersistenceError(err)
	}
	return mapSchedule(record), nil
}

func (s *service) Toggle(ctx context.Context, session tenant.Session, id uuid.UUID, current Partition) (Schedule, error) {
	if id == uuid.Nil {
		return Schedule{}, ErrNotFound
	}

	record, err := s.repo.Move(ctx, session, id, string(current), string(current.Other()), s.now().UTC())
	if err != nil {
		return Schedule{}, mapPersistenceError(err)
	}
	return mapSchedule(record), nil
}

func (s *service) Delete(ctx context.Context, session tenant.Session, id uuid.UUID, current Partition) error {
	if id == uuid.Nil {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, session, id, string(current)); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

func (s *service) SendTest(ctx context.Context, session tenant.Session, cfg Configuration) error {
	cfg = normalize(cfg)
	if err := validateTestSend(cfg); err != nil {
		return err
	}
	if s.notifier == nil {
		return fmt.Errorf("%w: no notifier configured", ErrNotificationFailed)
	}

	msg, err := notify.NewMessage(notify.TopicScheduleTest, newTestPayload(session.Email, cfg), requestID(ctx), s.now())
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.testSendTimeout)
	defer cancel()

	if err := s.notifier.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return nil
}

func (s *service) savedMessage(ctx context.Context, schedule Schedule, now time.Time) (notify.Message, error) {
	return notify.NewMessage(notify.TopicScheduleSaved, newSavedPayload(schedule), requestID(ctx), now)
}

func requestID(ctx context.Context) string {
	if audit, ok := requesttrace.FromContext(ctx); ok {
		return audit.RequestID
	}
	return ""
}

func toRecord(schedule Schedule) persistence.ReportScheduleRecord {
	cfg := schedule.Configuration
	return persistence.ReportScheduleRecord{
		ID:                     schedule.ID,
		Email:                  schedule.Email,
		Status:                 string(schedule.Partition),
		PersonName:             cfg.PersonName,
		CustomerID:             cfg.CustomerID,
		ContactEmails:          append([]string(nil), cfg.ContactEmails...),
		ReportName:             cfg.ReportName,
		ReportType:             cfg.ReportType,
		DateRange:              cfg.DateRange,
		ApplyLossThreshold:     cfg.ApplyLossThreshold,
		TotalLossPerOrderPack:  cfg.TotalLossPerOrderPack,
		LossPerOrderedPack:     cfg.LossPerOrderedPack,
		GrandTotalLoss:         cfg.GrandTotalLoss,
		Frequency:              string(cfg.Frequency),
		DeliveryDayOfWeek:      cfg.DeliveryDayOfWeek,
		DeliveryDayOfMonth:     cfg.DeliveryDayOfMonth,
		DeliveryTimeHour:       cfg.DeliveryTimeHour,
		SendNotificationNoData: cfg.SendNotificationNoData,
		CreatedAt:              schedule.CreatedAt,
		UpdatedAt:              schedule.UpdatedAt,
	}
}

func mapSchedule(record persistence.ReportScheduleRecord) Schedule {
	emails := record.ContactEmails
	if emails == nil {
		emails = []string{}
	}
	return Schedule{
		ID:    record.ID,
		Email: record.Email,
		Configuration: Configuration{
			PersonName:             record.PersonName,
			CustomerID:             record.CustomerID,
			ContactEmails:          emails,
			ReportName:             record.ReportName,
			ReportType:             record.ReportType,
			DateRange:              record.DateRange,
			ApplyLossThreshold:     record.ApplyLossThreshold,
			TotalLossPerOrderPack:  record.TotalLossPerOrderPack,
			LossPerOrderedPack:     record.LossPerOrderedPack,
			GrandTotalLoss:         record.GrandTotalLoss,
			Frequency:              Frequency(record.Frequency),
			DeliveryDayOfWeek:      record.DeliveryDayOfWeek,
			DeliveryDayOfMonth:     record.DeliveryDayOfMonth,
			DeliveryTimeHour:       record.DeliveryTimeHour,
			SendNotificationNoData: record.SendNotificationNoData,
		},
		Partition: Partition(record.Status),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrReportScheduleNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrReportScheduleConflict):
		return ErrConflict
	case errors.Is(err, repo.ErrInconsistentState):
		return ErrInconsistentState
	default:
		return err
	}
}
