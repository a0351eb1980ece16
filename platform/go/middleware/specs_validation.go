package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	tenantmiddleware "github.com/zenGate-Global/palmyra-reports/platform/go/tenant/middleware"
)

// TenantEmailScheme is the security scheme name declared by the contracts.
const TenantEmailScheme = "tenantEmail"

// ValidateAuthenticationViaSwagger satisfies operations that declare the tenantEmail scheme.
// The email is a self-asserted claim, so only its presence and shape are checked here.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != TenantEmailScheme {
		return nil
	}

	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	email := strings.TrimSpace(r.Header.Get(tenantmiddleware.HeaderTenantEmail))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("missing or invalid %s header", tenantmiddleware.HeaderTenantEmail)
	}
	return nil
}

// NewSpecValidator builds the request validator middleware for a loaded contract.
// Rejections are rendered as problem documents.
func NewSpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: writeValidationProblem,
	})
}

func writeValidationProblem(w http.ResponseWriter, message string, statusCode int) {
	title := http.StatusText(statusCode)
	if title == "" {
		title = "Request rejected"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  title,
		"status": statusCode,
		"detail": message,
	})
}
