// Package api holds the JSON wire types of contracts/report-schedules.yaml.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// BasePath is where the report schedules routes are mounted.
const BasePath = "/api/v1/report-schedules"

// TenantEmailHeader carries the self-asserted tenant email.
const TenantEmailHeader = "X-Tenant-Email"

// Partition values accepted by the partition query parameter.
const (
	PartitionActive   = "active"
	PartitionInactive = "inactive"
)

// ReportConfiguration is the editable body of a schedule.
type ReportConfiguration struct {
	PersonName             string   `json:"person_name"`
	CustomerID             string   `json:"customer_id"`
	ContactEmail           []string `json:"contact_email"`
	ReportName             *string  `json:"report_name,omitempty"`
	ReportType             string   `json:"report_type"`
	DateRange              string   `json:"date_range"`
	ApplyLossThreshold     bool     `json:"apply_loss_threshold"`
	TotalLossPerOrderPack  *float64 `json:"total_loss_per_order_pack"`
	LossPerOrderedPack     *float64 `json:"loss_per_ordered_pack"`
	GrandTotalLoss         *float64 `json:"grand_total_loss"`
	Frequency              string   `json:"frequency"`
	DeliveryDayOfWeek      *int     `json:"delivery_day_of_week"`
	DeliveryDayOfMonth     *int     `json:"delivery_day_of_month"`
	DeliveryTimeHour       *int     `json:"delivery_time_hour"`
	SendNotificationNoData bool     `json:"send_notification_no_data"`
}

// ReportSchedule is a stored configuration as returned by the API.
type ReportSchedule struct {
	ReportConfiguration
	ID        openapi_types.UUID `json:"id"`
	Email     string             `json:"email"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Partition returns the partition value to pass back on update, toggle and delete.
func (s ReportSchedule) Partition() string {
	if s.IsActive {
		return PartitionActive
	}
	return PartitionInactive
}

// ReportScheduleList wraps a list response.
type ReportScheduleList struct {
	Items []ReportSchedule `json:"items"`
}

// ProblemDetails is an RFC 7807 error document.
type ProblemDetails struct {
	Type   *string              `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail *string              `json:"detail,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
}
