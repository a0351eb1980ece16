package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
)

// Partition names the record set currently holding a schedule.
type Partition string

const (
	PartitionActive   Partition = persistence.ScheduleStatusActive
	PartitionInactive Partition = persistence.ScheduleStatusInactive
)

// ParsePartition validates a partition name supplied by a caller.
func ParsePartition(raw string) (Partition, error) {
	switch Partition(raw) {
	case PartitionActive, PartitionInactive:
		return Partition(raw), nil
	default:
		return "", fmt.Errorf("unknown partition %q", raw)
	}
}

// Other returns the partition a toggle moves a schedule into.
func (p Partition) Other() Partition {
	if p == PartitionActive {
		return PartitionInactive
	}
	return PartitionActive
}

// Frequency controls how often a report is delivered.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ReportTypePackOptimizationLoss is the only report type currently offered.
const ReportTypePackOptimizationLoss = "Pack Optimization Loss Report"

// DeliveryTimeZone is the zone delivery_time_hour is interpreted in.
const DeliveryTimeZone = "Europe/London"

const (
	minDateRangeDays = 1
	maxDateRangeDays = 31
	maxContactEmails = 5
	minDeliveryHour  = 7
	maxDeliveryHour  = 21
	testReportName   = "Test Report"
)

// DateRanges lists every accepted date_range value, shortest first.
func DateRanges() []string {
	out := make([]string, 0, maxDateRangeDays)
	for n := minDateRangeDays; n <= maxDateRangeDays; n++ {
		out = append(out, DateRangeForDays(n))
	}
	return out
}

// DateRangeForDays formats the date_range value covering the last n days.
func DateRangeForDays(n int) string {
	return fmt.Sprintf("last_%d_days", n)
}

// Configuration is the user-editable part of a report schedule.
type Configuration struct {
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
	Frequency              Frequency
	DeliveryDayOfWeek      *int
	DeliveryDayOfMonth     *int
	DeliveryTimeHour       int
	SendNotificationNoData bool
}

// DefaultConfiguration is the starting point of a new schedule form.
func DefaultConfiguration() Configuration {
	return Configuration{
		ContactEmails:    []string{""},
		ReportType:       ReportTypePackOptimizationLoss,
		DateRange:        DateRangeForDays(1),
		Frequency:        FrequencyDaily,
		DeliveryTimeHour: minDeliveryHour,
	}
}

// Schedule is a stored configuration owned by one tenant.
type Schedule struct {
	ID    uuid.UUID
	Email string
	Configuration
	Partition Partition
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the schedule currently sits in the active partition.
func (s Schedule) IsActive() bool {
	return s.Partition == PartitionActive
}
