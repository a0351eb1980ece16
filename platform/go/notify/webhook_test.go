package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const (
	configHook = "https://hooks.example.com/config"
	testHook   = "https://hooks.example.com/test"
)

func newMockedWebhook(t *testing.T) (*WebhookClient, *httpmock.MockTransport) {
	t.Helper()
	httpClient := &http.Client{}
	transport := httpmock.NewMockTransport()
	httpClient.Transport = transport

	client := NewWebhookClient(WebhookConfig{
		URLs: map[Topic]string{
			TopicScheduleSaved: configHook,
			TopicScheduleTest:  testHook,
		},
		Timeout:    time.Second,
		HTTPClient: httpClient,
	})
	return client, transport
}

func TestWebhookClientPostsPayload(t *testing.T) {
	t.Parallel()

	client, transport := newMockedWebhook(t)

	var gotBody []byte
	var gotHeaders http.Header
	transport.RegisterResponder(http.MethodPost, configHook, func(req *http.Request) (*http.Response, error) {
		gotHeaders = req.Header.Clone()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		gotBody = body
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	msg, err := NewMessage(TopicScheduleSaved, map[string]any{"report_id": "r-1"}, "req-9", time.Now())
	require.NoError(t, err)

	require.NoError(t, client.Send(context.Background(), msg))
	require.JSONEq(t, `{"report_id":"r-1"}`, string(gotBody))
	require.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	require.Equal(t, "req-9", gotHeaders.Get("X-Request-Id"))
	require.Equal(t, msg.ID.String(), gotHeaders.Get("X-Notification-Id"))
	require.Equal(t, 1, transport.GetCallCountInfo()["POST "+configHook])
	require.Zero(t, transport.GetCallCountInfo()["POST "+testHook])
}

func TestWebhookClientStatusErrors(t *testing.T) {
	t.Parallel()

	client, transport := newMockedWebhook(t)
	transport.RegisterResponder(http.MethodPost, configHook, httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))
	transport.RegisterResponder(http.MethodPost, testHook, httpmock.NewStringResponder(http.StatusBadRequest, "bad"))

	saved, err := NewMessage(TopicScheduleSaved, map[string]any{}, "", time.Now())
	require.NoError(t, err)
	err = client.Send(context.Background(), saved)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	require.True(t, statusErr.Retryable())

	test, err := NewMessage(TopicScheduleTest, map[string]any{}, "", time.Now())
	require.NoError(t, err)
	err = client.Send(context.Background(), test)
	require.ErrorAs(t, err, &statusErr)
	require.False(t, statusErr.Retryable())
}

func TestWebhookClientMissingEndpoint(t *testing.T) {
	t.Parallel()

	client := NewWebhookClient(WebhookConfig{URLs: map[Topic]string{TopicScheduleSaved: ""}})
	msg, err := NewMessage(TopicScheduleSaved, map[string]any{}, "", time.Now())
	require.NoError(t, err)

	err = client.Send(context.Background(), msg)
	require.True(t, errors.Is(err, ErrNoEndpoint))
}
