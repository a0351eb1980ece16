package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

type mockService struct {
	listFn     func(ctx context.Context, session tenant.Session) ([]service.Schedule, error)
	getFn      func(ctx context.Context, session tenant.Session, id uuid.UUID) (service.Schedule, error)
	createFn   func(ctx context.Context, session tenant.Session, cfg service.Configuration) (service.Schedule, error)
	updateFn   func(ctx context.Context, session tenant.Session, id uuid.UUID, cfg service.Configuration, current service.Partition) (service.Schedule, error)
	toggleFn   func(ctx context.Context, session tenant.Session, id uuid.UUID, current service.Partition) (service.Schedule, error)
	deleteFn   func(ctx context.Context, session tenant.Session, id uuid.UUID, current service.Partition) error
	sendTestFn func(ctx context.Context, session tenant.Session, cfg service.Configuration) error
}

func (m *mockService) List(ctx context.Context, session tenant.Session) ([]service.Schedule, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, session)
}

func (m *mockService) Get(ctx context.Context, session tenant.Session, id uuid.UUID) (service.Schedule, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, session, id)
}

func (m *mockService) Create(ctx context.Context, session tenant.Session, cfg service.Configuration) (service.Schedule, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, session, cfg)
}

func (m *mockService) Update(ctx context.Context, session tenant.Session, id uuid.UUID, cfg service.Configuration, current service.Partition) (service.Schedule, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, session, id, cfg, current)
}

func (m *mockService) Toggle(ctx context.Context, session tenant.Session, id uuid.UUID, current service.Partition) (service.Schedule, error) {
	if m.toggleFn == nil {
		panic("toggleFn not configured")
	}
	return m.toggleFn(ctx, session, id, current)
}

func (m *mockService) Delete(ctx context.Context, session tenant.Session, id uuid.UUID, current service.Partition) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, session, id, current)
}

func (m *mockService) SendTest(ctx context.Context, session tenant.Session, cfg service.Configuration) error {
	if m.sendTestFn == nil {
		panic("sendTestFn not configured")
	}
	return m.sendTestFn(ctx, session, cfg)
}

const tenantEmail = "jane@example.com"

func newRouter(t *testing.T, svc service.Service, withSession bool) http.Handler {
	t.Helper()

	r := chi.NewRouter()
	if withSession {
		session, err := tenant.NewSession(tenantEmail)
		require.NoError(t, err)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(tenant.WithSession(req.Context(), session)))
			})
		})
	}
	r.Route("/api/v1", New(svc, zaptest.NewLogger(t)).Routes)
	return r
}

func sampleSchedule(partition service.Partition) service.Schedule {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day := 2
	return service.Schedule{
		ID:    uuid.New(),
		Email: tenantEmail,
		Configuration: service.Configuration{
			PersonName:        "Jane Doe",
			CustomerID:        "CUST-1",
			ContactEmails:     []string{"ops@example.com"},
			ReportType:        service.ReportTypePackOptimizationLoss,
			DateRange:         "last_7_days",
			Frequency:         service.FrequencyWeekly,
			DeliveryDayOfWeek: &day,
			DeliveryTimeHour:  9,
		},
		Partition: partition,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

const validBody = `{
	"person_name": "Jane Doe",
	"customer_id": "CUST-1",
	"contact_email": ["ops@example.com"],
	"report_type": "Pack Optimization Loss Report",
	"date_range": "last_7_days",
	"apply_loss_threshold": false,
	"frequency": "weekly",
	"delivery_day_of_week": 2,
	"delivery_time_hour": 9,
	"send_notification_no_data": true
}`

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) api.ProblemDetails {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem api.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestListReturnsItems(t *testing.T) {
	t.Parallel()

	active := sampleSchedule(service.PartitionActive)
	inactive := sampleSchedule(service.PartitionInactive)
	svc := &mockService{
		listFn: func(ctx context.Context, session tenant.Session) ([]service.Schedule, error) {
			require.Equal(t, tenantEmail, session.Email)
			return []service.Schedule{active, inactive}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report-schedules", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.ReportScheduleList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	require.True(t, body.Items[0].IsActive)
	require.False(t, body.Items[1].IsActive)
	require.Equal(t, active.ID, uuid.UUID(body.Items[0].ID))
	require.Equal(t, 9, *body.Items[0].DeliveryTimeHour)
}

func TestListEmptyEncodesEmptyArray(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		listFn: func(context.Context, tenant.Session) ([]service.Schedule, error) {
			return nil, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report-schedules", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestMissingSessionIsUnauthorized(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report-schedules", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, problemTypeUnauthorized, *problem.Type)
}

func TestCreateReturnsLocation(t *testing.T) {
	t.Parallel()

	created := sampleSchedule(service.PartitionActive)
	svc := &mockService{
		createFn: func(ctx context.Context, session tenant.Session, cfg service.Configuration) (service.Schedule, error) {
			require.Equal(t, "Jane Doe", cfg.PersonName)
			require.Equal(t, service.FrequencyWeekly, cfg.Frequency)
			require.Equal(t, 9, cfg.DeliveryTimeHour)
			require.Equal(t, 2, *cfg.DeliveryDayOfWeek)
			require.Nil(t, cfg.DeliveryDayOfMonth)
			require.True(t, cfg.SendNotificationNoData)
			return created, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, api.BasePath+"/"+created.ID.String(), rec.Header().Get("Location"))

	var body api.ReportSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.IsActive)
	require.Equal(t, tenantEmail, body.Email)
}

func TestCreateValidationErrorsCarryFields(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		createFn: func(context.Context, tenant.Session, service.Configuration) (service.Schedule, error) {
			return service.Schedule{}, &service.ValidationError{Fields: service.FieldErrors{
				"person_name": {"is required"},
			}}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.NotNil(t, problem.Errors)
	require.Equal(t, []string{"is required"}, (*problem.Errors)["person_name"])
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules", strings.NewReader(`[1,2`))
	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, problemTypeValidation, *problem.Type)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{
		getFn: func(ctx context.Context, session tenant.Session, got uuid.UUID) (service.Schedule, error) {
			require.Equal(t, id, got)
			return service.Schedule{}, service.ErrNotFound
		},
	}

	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report-schedules/"+id.String(), nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, http.StatusNotFound, decodeProblem(t, rec).Status)
}

func TestGetRejectsMalformedID(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report-schedules/not-a-uuid", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Contains(t, *problem.Errors, "scheduleId")
}

func TestUpdatePassesPartition(t *testing.T) {
	t.Parallel()

	existing := sampleSchedule(service.PartitionInactive)
	svc := &mockService{
		updateFn: func(ctx context.Context, session tenant.Session, id uuid.UUID, cfg service.Configuration, current service.Partition) (service.Schedule, error) {
			require.Equal(t, existing.ID, id)
			require.Equal(t, service.PartitionInactive, current)
			return existing, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/report-schedules/"+existing.ID.String()+"?partition=inactive", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.ReportSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.IsActive)
}

func TestUpdateRequiresPartition(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/report-schedules/"+uuid.NewString(), strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, *decodeProblem(t, rec).Errors, "partition")
}

func TestToggleRejectsUnknownPartition(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules/"+uuid.NewString()+"/toggle?partition=archived", nil)
	rec := httptest.NewRecorder()
	newRouter(t, &mockService{}, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleReturnsMovedSchedule(t *testing.T) {
	t.Parallel()

	moved := sampleSchedule(service.PartitionInactive)
	svc := &mockService{
		toggleFn: func(ctx context.Context, session tenant.Session, id uuid.UUID, current service.Partition) (service.Schedule, error) {
			require.Equal(t, service.PartitionActive, current)
			return moved, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules/"+moved.ID.String()+"/toggle?partition=active", nil)
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.ReportSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.IsActive)
}

func TestToggleInconsistentStateIsConflict(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		toggleFn: func(context.Context, tenant.Session, uuid.UUID, service.Partition) (service.Schedule, error) {
			return service.Schedule{}, service.ErrInconsistentState
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules/"+uuid.NewString()+"/toggle?partition=active", nil)
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteReturnsNoContent(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{
		deleteFn: func(ctx context.Context, session tenant.Session, got uuid.UUID, current service.Partition) error {
			require.Equal(t, id, got)
			require.Equal(t, service.PartitionActive, current)
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/report-schedules/"+id.String()+"?partition=active", nil)
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestSendTestAccepted(t *testing.T) {
	t.Parallel()

	called := false
	svc := &mockService{
		sendTestFn: func(ctx context.Context, session tenant.Session, cfg service.Configuration) error {
			called = true
			require.Equal(t, []string{"ops@example.com"}, cfg.ContactEmails)
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules/test-send", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.True(t, called)
}

func TestSendTestUpstreamFailure(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		sendTestFn: func(context.Context, tenant.Session, service.Configuration) error {
			return errors.Join(service.ErrNotificationFailed, errors.New("webhook returned 503"))
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report-schedules/test-send", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(t, svc, true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, problemTypeUpstream, *decodeProblem(t, rec).Type)
}

func TestClassifyErrorDefaultsToInternal(t *testing.T) {
	t.Parallel()

	status, _, _, problemType, fields := classifyError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, problemTypeInternal, problemType)
	require.Nil(t, fields)
}

func TestBuildProblemCopiesFieldErrors(t *testing.T) {
	t.Parallel()

	fields := service.FieldErrors{"frequency": {"is invalid"}}
	problem := buildProblem("Validation failed", "", problemTypeValidation, http.StatusBadRequest, fields)
	fields["frequency"][0] = "mutated"

	require.Nil(t, problem.Detail)
	require.Equal(t, []string{"is invalid"}, (*problem.Errors)["frequency"])
}
