package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/repo"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
)

const scheduleBody = `{
	"person_name": "Jane Doe",
	"customer_id": "CUST-1",
	"contact_email": ["ops@example.com", "  "],
	"report_type": "Pack Optimization Loss Report",
	"date_range": "last_7_days",
	"apply_loss_threshold": false,
	"frequency": "daily",
	"delivery_time_hour": 8,
	"send_notification_no_data": false
}`

type testServer struct {
	handler http.Handler
	outbox  *notify.MemoryOutbox
	sent    []notify.Message
}

func newTestServer(t *testing.T, ready func(context.Context) error) *testServer {
	t.Helper()

	ts := &testServer{outbox: notify.NewMemoryOutbox()}
	svc := service.New(repo.NewMemoryRepository(ts.outbox), service.Options{
		Notifier: notify.SenderFunc(func(_ context.Context, msg notify.Message) error {
			ts.sent = append(ts.sent, msg)
			return nil
		}),
		TestSendTimeout: time.Second,
	})

	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	handler, err := newRouter(routerDeps{
		cfg:      config{RequestTimeout: 5 * time.Second, TenantCacheTTL: time.Minute},
		logger:   zaptest.NewLogger(t),
		service:  svc,
		registry: prometheus.NewRegistry(),
		ready:    ready,
	})
	require.NoError(t, err)
	ts.handler = handler
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, email, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set(api.TenantEmailHeader, email)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestScheduleLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	const email = "jane@example.com"

	rec := ts.do(t, http.MethodPost, api.BasePath, email, scheduleBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.ReportSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.IsActive)
	require.Equal(t, []string{"ops@example.com"}, created.ContactEmail)
	require.Len(t, ts.outbox.Entries(), 1)

	id := created.ID.String()

	rec = ts.do(t, http.MethodPost, api.BasePath+"/"+id+"/toggle?partition=active", email, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, api.BasePath+"/"+id+"/toggle?partition=active", email, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, api.BasePath, email, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.ReportScheduleList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.False(t, list.Items[0].IsActive)

	rec = ts.do(t, http.MethodGet, api.BasePath, "someone@else.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, api.BasePath+"/"+id+"?partition=inactive", email, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, api.BasePath+"/"+id, email, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationProblemOverHTTP(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	body := strings.Replace(scheduleBody, `"delivery_time_hour": 8`, `"delivery_time_hour": 23`, 1)

	rec := ts.do(t, http.MethodPost, api.BasePath, "jane@example.com", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem api.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.NotNil(t, problem.Errors)
	require.Contains(t, *problem.Errors, "delivery_time_hour")
	require.Empty(t, ts.outbox.Entries())
}

func TestSendTestOverHTTP(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, api.BasePath+"/test-send", "jane@example.com", scheduleBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, ts.sent, 1)
	require.Equal(t, notify.TopicScheduleTest, ts.sent[0].Topic)
}

func TestMissingTenantHeaderIsRejected(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, api.BasePath, "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContractRejectsUnknownPartition(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, api.BasePath+"/00000000-0000-0000-0000-000000000001/toggle?partition=archived", "jane@example.com", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(context.Context) error { return errors.New("db down") })

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/readyz", "", "").Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/metrics", "", "").Code)

	rec := ts.do(t, http.MethodGet, "/openapi/report-schedules.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/api/v1/report-schedules")
}
