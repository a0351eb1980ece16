package service

import "github.com/google/uuid"

// configurationPayload is the wire form of a Configuration shared by both webhooks.
type configurationPayload struct {
	PersonName             string    `json:"person_name"`
	ContactEmail           []string  `json:"contact_email"`
	CustomerID             string    `json:"customer_id"`
	ReportName             *string   `json:"report_name"`
	ReportType             string    `json:"report_type"`
	DateRange              string    `json:"date_range"`
	ApplyLossThreshold     bool      `json:"apply_loss_threshold"`
	TotalLossPerOrderPack  *float64  `json:"total_loss_per_order_pack"`
	LossPerOrderedPack     *float64  `json:"loss_per_ordered_pack"`
	GrandTotalLoss         *float64  `json:"grand_total_loss"`
	Frequency              Frequency `json:"frequency"`
	DeliveryDayOfWeek      *int      `json:"delivery_day_of_week"`
	DeliveryDayOfMonth     *int      `json:"delivery_day_of_month"`
	DeliveryTimeHour       int       `json:"delivery_time_hour"`
	DeliveryTimeZone       string    `json:"delivery_time_zone"`
	SendNotificationNoData bool      `json:"send_notification_no_data"`
}

// SavedPayload is posted to the configuration webhook after a create or update.
type SavedPayload struct {
	configurationPayload
	ReportID uuid.UUID `json:"report_id"`
	Email    string    `json:"email"`
	IsActive bool      `json:"is_active"`
}

// TestPayload is posted to the test-mail webhook.
type TestPayload struct {
	configurationPayload
	Email  string `json:"email"`
	IsTest bool   `json:"is_test"`
}

func newConfigurationPayload(cfg Configuration) configurationPayload {
	emails := cfg.ContactEmails
	if emails == nil {
		emails = []string{}
	}
	return configurationPayload{
		PersonName:             cfg.PersonName,
		ContactEmail:           emails,
		CustomerID:             cfg.CustomerID,
		ReportName:             cfg.ReportName,
		ReportType:             cfg.ReportType,
		DateRange:              cfg.DateRange,
		ApplyLossThreshold:     cfg.ApplyLossThreshold,
		TotalLossPerOrderPack:  cfg.TotalLossPerOrderPack,
		LossPerOrderedPack:     cfg.LossPerOrderedPack,
		GrandTotalLoss:         cfg.GrandTotalLoss,
		Frequency:              cfg.Frequency,
		DeliveryDayOfWeek:      cfg.DeliveryDayOfWeek,
		DeliveryDayOfMonth:     cfg.DeliveryDayOfMonth,
		DeliveryTimeHour:       cfg.DeliveryTimeHour,
		DeliveryTimeZone:       DeliveryTimeZone,
		SendNotificationNoData: cfg.SendNotificationNoData,
	}
}

func newSavedPayload(schedule Schedule) SavedPayload {
	return SavedPayload{
		configurationPayload: newConfigurationPayload(schedule.Configuration),
		ReportID:             schedule.ID,
		Email:                schedule.Email,
		IsActive:             schedule.IsActive(),
	}
}

func newTestPayload(email string, cfg Configuration) TestPayload {
	if cfg.ReportName == nil {
		name := testReportName
		cfg.ReportName = &name
	}
	return TestPayload{
		configurationPayload: newConfigurationPayload(cfg),
		Email:                email,
		IsTest:               true,
	}
}
