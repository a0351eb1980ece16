package handler

import (
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
)

func toServiceConfiguration(body api.ReportConfiguration) service.Configuration {
	cfg := service.Configuration{
		PersonName:             body.PersonName,
		CustomerID:             body.CustomerID,
		ContactEmails:          body.ContactEmail,
		ReportName:             body.ReportName,
		ReportType:             body.ReportType,
		DateRange:              body.DateRange,
		ApplyLossThreshold:     body.ApplyLossThreshold,
		TotalLossPerOrderPack:  body.TotalLossPerOrderPack,
		LossPerOrderedPack:     body.LossPerOrderedPack,
		GrandTotalLoss:         body.GrandTotalLoss,
		Frequency:              service.Frequency(body.Frequency),
		DeliveryDayOfWeek:      body.DeliveryDayOfWeek,
		DeliveryDayOfMonth:     body.DeliveryDayOfMonth,
		SendNotificationNoData: body.SendNotificationNoData,
	}
	if body.DeliveryTimeHour != nil {
		cfg.DeliveryTimeHour = *body.DeliveryTimeHour
	}
	return cfg
}

func toAPISchedule(schedule service.Schedule) api.ReportSchedule {
	hour := schedule.DeliveryTimeHour
	emails := schedule.ContactEmails
	if emails == nil {
		emails = []string{}
	}
	return api.ReportSchedule{
		ReportConfiguration: api.ReportConfiguration{
			PersonName:             schedule.PersonName,
			CustomerID:             schedule.CustomerID,
			ContactEmail:           emails,
			ReportName:             schedule.ReportName,
			ReportType:             schedule.ReportType,
			DateRange:              schedule.DateRange,
			ApplyLossThreshold:     schedule.ApplyLossThreshold,
			TotalLossPerOrderPack:  schedule.TotalLossPerOrderPack,
			LossPerOrderedPack:     schedule.LossPerOrderedPack,
			GrandTotalLoss:         schedule.GrandTotalLoss,
			Frequency:              string(schedule.Frequency),
			DeliveryDayOfWeek:      schedule.DeliveryDayOfWeek,
			DeliveryDayOfMonth:     schedule.DeliveryDayOfMonth,
			DeliveryTimeHour:       &hour,
			SendNotificationNoData: schedule.SendNotificationNoData,
		},
		ID:        openapi_types.UUID(schedule.ID),
		Email:     schedule.Email,
		IsActive:  schedule.IsActive(),
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
	}
}
