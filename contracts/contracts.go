// Package contracts embeds the OpenAPI documents served and enforced by the API.
package contracts

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed report-schedules.yaml
var ReportSchedulesYAML []byte

// LoadReportSchedules parses and validates the embedded report schedules contract.
func LoadReportSchedules() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(ReportSchedulesYAML)
	if err != nil {
		return nil, fmt.Errorf("load report schedules contract: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate report schedules contract: %w", err)
	}
	return doc, nil
}
