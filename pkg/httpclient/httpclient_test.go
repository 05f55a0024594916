package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func newMockedClient(attempts int) (*RetryableHTTPClient, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	client := NewRetryableHTTPClient(
		WithHTTPClient(&http.Client{Transport: transport}),
		WithMaxAttempts(attempts),
		WithBackoff(time.Millisecond, time.Millisecond),
	)
	return client, transport
}

func TestGetReturnsBody(t *testing.T) {
	client, transport := newMockedClient(3)
	transport.RegisterResponder(http.MethodGet, "http://registry.test/status", httpmock.NewStringResponder(http.StatusOK, "<xml/>"))

	resp, body, err := client.Get(context.Background(), "http://registry.test/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<xml/>", string(body))
	require.Equal(t, 1, transport.GetTotalCallCount())
}

func TestGetRetriesServerErrors(t *testing.T) {
	client, transport := newMockedClient(3)
	transport.RegisterResponder(http.MethodGet, "http://registry.test/status", httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	_, _, err := client.Get(context.Background(), "http://registry.test/status")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, http.StatusServiceUnavailable, serverErr.StatusCode)
	require.Equal(t, "down", string(serverErr.Body))
	require.Equal(t, 3, transport.GetTotalCallCount())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	client, transport := newMockedClient(3)
	transport.RegisterResponder(http.MethodGet, "http://registry.test/status", httpmock.NewStringResponder(http.StatusNotFound, ""))

	resp, _, err := client.Get(context.Background(), "http://registry.test/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, 1, transport.GetTotalCallCount())
}

func TestGetRetriesTransportErrors(t *testing.T) {
	client, transport := newMockedClient(2)
	boom := errors.New("connection reset")
	transport.RegisterResponder(http.MethodGet, "http://registry.test/status", httpmock.NewErrorResponder(boom))

	_, _, err := client.Get(context.Background(), "http://registry.test/status")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, transport.GetTotalCallCount())
}
