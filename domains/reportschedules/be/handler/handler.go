package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-reports/platform/go/logging"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

const (
	problemTypeValidation   = "https://palmyra.reports/problems/validation-error"
	problemTypeUnauthorized = "https://palmyra.reports/problems/unauthorized"
	problemTypeNotFound     = "https://palmyra.reports/problems/not-found"
	problemTypeConflict     = "https://palmyra.reports/problems/conflict"
	problemTypeUpstream     = "https://palmyra.reports/problems/notification-failed"
	problemTypeInternal     = "https://palmyra.reports/problems/internal-error"
)

type operation string

const (
	listOperation     operation = "reportSchedulesList"
	createOperation   operation = "reportSchedulesCreate"
	getOperation      operation = "reportSchedulesGet"
	updateOperation   operation = "reportSchedulesUpdate"
	toggleOperation   operation = "reportSchedulesToggle"
	deleteOperation   operation = "reportSchedulesDelete"
	sendTestOperation operation = "reportSchedulesSendTest"
)

const maxBodyBytes = 1 << 20

// Handler exposes the report schedules service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("report schedules service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes registers the report schedule endpoints on r, relative to /report-schedules.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/report-schedules", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/test-send", h.sendTest)
		r.Get("/{scheduleId}", h.get)
		r.Put("/{scheduleId}", h.update)
		r.Delete("/{scheduleId}", h.delete)
		r.Post("/{scheduleId}/toggle", h.toggle)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, listOperation)
	if !ok {
		return
	}

	schedules, err := h.svc.List(r.Context(), session)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]api.ReportSchedule, 0, len(schedules))
	for _, schedule := range schedules {
		items = append(items, toAPISchedule(schedule))
	}
	writeJSON(w, http.StatusOK, api.ReportScheduleList{Items: items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, createOperation)
	if !ok {
		return
	}
	body, ok := h.decodeConfiguration(w, r, createOperation)
	if !ok {
		return
	}

	created, err := h.svc.Create(r.Context(), session, toServiceConfiguration(body))
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", api.BasePath, created.ID))
	writeJSON(w, http.StatusCreated, toAPISchedule(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, getOperation)
	if !ok {
		return
	}
	id, ok := h.scheduleID(w, r, getOperation)
	if !ok {
		return
	}

	schedule, err := h.svc.Get(r.Context(), session, id)
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPISchedule(schedule))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, updateOperation)
	if !ok {
		return
	}
	id, ok := h.scheduleID(w, r, updateOperation)
	if !ok {
		return
	}
	partition, ok := h.partition(w, r, updateOperation)
	if !ok {
		return
	}
	body, ok := h.decodeConfiguration(w, r, updateOperation)
	if !ok {
		return
	}

	updated, err := h.svc.Update(r.Context(), session, id, toServiceConfiguration(body), partition)
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPISchedule(updated))
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, toggleOperation)
	if !ok {
		return
	}
	id, ok := h.scheduleID(w, r, toggleOperation)
	if !ok {
		return
	}
	partition, ok := h.partition(w, r, toggleOperation)
	if !ok {
		return
	}

	toggled, err := h.svc.Toggle(r.Context(), session, id, partition)
	if err != nil {
		h.writeError(w, r, err, toggleOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPISchedule(toggled))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, deleteOperation)
	if !ok {
		return
	}
	id, ok := h.scheduleID(w, r, deleteOperation)
	if !ok {
		return
	}
	partition, ok := h.partition(w, r, deleteOperation)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), session, id, partition); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendTest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r, sendTestOperation)
	if !ok {
		return
	}
	body, ok := h.decodeConfiguration(w, r, sendTestOperation)
	if !ok {
		return
	}

	if err := h.svc.SendTest(r.Context(), session, toServiceConfiguration(body)); err != nil {
		h.writeError(w, r, err, sendTestOperation)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request, op operation) (tenant.Session, bool) {
	session, ok := tenant.FromContext(r.Context())
	if !ok {
		h.loggerFrom(r.Context()).Warn("report schedules request without tenant session", zap.String("operation", string(op)))
		writeProblem(w, buildProblem("Unauthorized", "tenant email is required", problemTypeUnauthorized, http.StatusUnauthorized, nil))
		return tenant.Session{}, false
	}
	return session, true
}

func (h *Handler) scheduleID(w http.ResponseWriter, r *http.Request, op operation) (uuid.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "scheduleId", chi.URLParam(r, "scheduleId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		h.rejectParameter(w, r, op, "scheduleId", err)
		return uuid.Nil, false
	}
	return uuid.UUID(id), true
}

func (h *Handler) partition(w http.ResponseWriter, r *http.Request, op operation) (service.Partition, bool) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, true, "partition", r.URL.Query(), &raw); err != nil {
		h.rejectParameter(w, r, op, "partition", err)
		return "", false
	}
	partition, err := service.ParsePartition(raw)
	if err != nil {
		h.rejectParameter(w, r, op, "partition", err)
		return "", false
	}
	return partition, true
}

func (h *Handler) rejectParameter(w http.ResponseWriter, r *http.Request, op operation, name string, err error) {
	h.loggerFrom(r.Context()).Warn("report schedules request rejected",
		zap.String("operation", string(op)),
		zap.String("parameter", name),
		zap.Error(err),
	)
	writeProblem(w, buildProblem("Invalid parameter", err.Error(), problemTypeValidation, http.StatusBadRequest,
		service.FieldErrors{name: {err.Error()}}))
}

func (h *Handler) decodeConfiguration(w http.ResponseWriter, r *http.Request, op operation) (api.ReportConfiguration, bool) {
	var body api.ReportConfiguration
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		h.loggerFrom(r.Context()).Warn("report schedules request rejected",
			zap.String("operation", string(op)),
			zap.Error(err),
		)
		writeProblem(w, buildProblem("Invalid request body", "request body must be a report configuration object", problemTypeValidation, http.StatusBadRequest, nil))
		return api.ReportConfiguration{}, false
	}
	return body, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	status, problem := h.problemForError(r.Context(), err, op)
	problem.Status = status
	writeProblem(w, problem)
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) (int, api.ProblemDetails) {
	status, title, detail, problemType, fields := classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("report schedules operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("report schedule not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("report schedules request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return status, buildProblem(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problemTypeValidation,
			validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"report schedule not found in the given partition",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrInconsistentState):
		return http.StatusConflict,
			"Inconsistent state",
			"report schedule is present in both partitions",
			problemTypeConflict,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"report schedule conflict",
			problemTypeConflict,
			nil
	case errors.Is(err, service.ErrNotificationFailed):
		return http.StatusBadGateway,
			"Notification failed",
			"the test email could not be sent",
			problemTypeUpstream,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problemTypeInternal,
			nil
	}
}

func buildProblem(title, detail, problemType string, status int, fieldErrors service.FieldErrors) api.ProblemDetails {
	problem := api.ProblemDetails{
		Title:  title,
		Status: status,
	}

	if detail != "" {
		problem.Detail = &detail
	}
	if problemType != "" {
		problem.Type = &problemType
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = &copied
	}

	return problem
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, problem api.ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
