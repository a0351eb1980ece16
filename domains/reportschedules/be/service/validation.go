package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when a configuration is rejected before any write.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

var (
	validate = validator.New()

	dateRangeTag = "oneof=" + strings.Join(DateRanges(), " ")
	frequencyTag = fmt.Sprintf("oneof=%s %s %s", FrequencyDaily, FrequencyWeekly, FrequencyMonthly)
)

// normalize applies the storage rules that do not depend on validity: trimming,
// blank filtering, zero thresholds as unset, and day fields owned by frequency.
func normalize(cfg Configuration) Configuration {
	out := cfg
	out.PersonName = strings.TrimSpace(cfg.PersonName)
	out.CustomerID = strings.TrimSpace(cfg.CustomerID)
	out.ReportType = strings.TrimSpace(cfg.ReportType)
	out.DateRange = strings.TrimSpace(cfg.DateRange)
	out.Frequency = Frequency(strings.TrimSpace(string(cfg.Frequency)))

	out.ReportName = nil
	if cfg.ReportName != nil {
		if name := strings.TrimSpace(*cfg.ReportName); name != "" {
			out.ReportName = &name
		}
	}

	out.ContactEmails = make([]string, 0, len(cfg.ContactEmails))
	for _, email := range cfg.ContactEmails {
		if trimmed := strings.TrimSpace(email); trimmed != "" {
			out.ContactEmails = append(out.ContactEmails, trimmed)
		}
	}

	out.TotalLossPerOrderPack = nonZero(cfg.TotalLossPerOrderPack)
	out.LossPerOrderedPack = nonZero(cfg.LossPerOrderedPack)
	out.GrandTotalLoss = nonZero(cfg.GrandTotalLoss)

	if out.Frequency != FrequencyWeekly {
		out.DeliveryDayOfWeek = nil
	}
	if out.Frequency != FrequencyMonthly {
		out.DeliveryDayOfMonth = nil
	}
	return out
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	value := *v
	return &value
}

// validateConfiguration checks a normalized configuration.
func validateConfiguration(cfg Configuration) error {
	fieldErrors := FieldErrors{}

	if validate.Var(cfg.PersonName, "required") != nil {
		fieldErrors.add("person_name", "person_name is required")
	}
	if validate.Var(cfg.CustomerID, "required") != nil {
		fieldErrors.add("customer_id", "customer_id is required")
	}

	validateContactEmails(cfg.ContactEmails, fieldErrors)

	if cfg.ReportType != ReportTypePackOptimizationLoss {
		fieldErrors.add("report_type", fmt.Sprintf("report_type must be %q", ReportTypePackOptimizationLoss))
	}
	if validate.Var(cfg.DateRange, dateRangeTag) != nil || cfg.DateRange == "" {
		fieldErrors.add("date_range", fmt.Sprintf("date_range must be one of last_%d_days..last_%d_days", minDateRangeDays, maxDateRangeDays))
	}
	if validate.Var(string(cfg.Frequency), frequencyTag) != nil || cfg.Frequency == "" {
		fieldErrors.add("frequency", "frequency must be one of daily, weekly, monthly")
	}
	if validate.Var(cfg.DeliveryTimeHour, fmt.Sprintf("min=%d,max=%d", minDeliveryHour, maxDeliveryHour)) != nil {
		fieldErrors.add("delivery_time_hour", fmt.Sprintf("delivery_time_hour must be between %d and %d", minDeliveryHour, maxDeliveryHour))
	}
	if cfg.DeliveryDayOfWeek != nil && validate.Var(*cfg.DeliveryDayOfWeek, "min=0,max=6") != nil {
		fieldErrors.add("delivery_day_of_week", "delivery_day_of_week must be between 0 (Sunday) and 6")
	}
	if cfg.DeliveryDayOfMonth != nil && validate.Var(*cfg.DeliveryDayOfMonth, "min=1,max=28") != nil {
		fieldErrors.add("delivery_day_of_month", "delivery_day_of_month must be between 1 and 28")
	}

	thresholds := map[string]*float64{
		"total_loss_per_order_pack": cfg.TotalLossPerOrderPack,
		"loss_per_ordered_pack":     cfg.LossPerOrderedPack,
		"grand_total_loss":          cfg.GrandTotalLoss,
	}
	for field, value := range thresholds {
		if value != nil && validate.Var(*value, "gte=0") != nil {
			fieldErrors.add(field, field+" must not be negative")
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

// validateTestSend checks the subset a test email needs.
func validateTestSend(cfg Configuration) error {
	fieldErrors := FieldErrors{}

	if validate.Var(cfg.PersonName, "required") != nil {
		fieldErrors.add("person_name", "person_name is required")
	}
	if validate.Var(cfg.CustomerID, "required") != nil {
		fieldErrors.add("customer_id", "customer_id is required")
	}
	if len(cfg.ContactEmails) == 0 {
		fieldErrors.add("contact_email", "at least one contact email is required")
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func validateContactEmails(emails []string, fieldErrors FieldErrors) {
	switch {
	case len(emails) == 0:
		fieldErrors.add("contact_email", "at least one contact email is required")
		return
	case len(emails) > maxContactEmails:
		fieldErrors.add("contact_email", fmt.Sprintf("at most %d contact emails are allowed", maxContactEmails))
	}
	for _, email := range emails {
		if validate.Var(email, "email") != nil {
			fieldErrors.add("contact_email", fmt.Sprintf("%q is not a valid email", email))
		}
	}
}
