package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	errs "github.com/openfga/consentsync/internal/errors"
)

const testRegistryURL = "http://registry.test/GetSampleStatus.cgi"

func newMockedClient(t *testing.T, opts ...ClientOption) (*Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	opts = append([]ClientOption{
		WithHTTPClient(&http.Client{Transport: transport}),
		WithMaxAttempts(3),
		WithBackoff(time.Millisecond, time.Millisecond),
	}, opts...)

	return NewClient(testRegistryURL, opts...), transport
}

func TestFetchConsentTuples(t *testing.T) {
	fixture, err := os.ReadFile("testdata/phs001168.xml")
	require.NoError(t, err)

	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testRegistryURL,
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "phs001168.v2.p2", req.URL.Query().Get("study_id"))
			require.Equal(t, "xml", req.URL.Query().Get("rettype"))
			return httpmock.NewBytesResponse(http.StatusOK, fixture), nil
		})

	iter, err := client.FetchConsentTuples(context.Background(), "phs001168.v2.p2")
	require.NoError(t, err)

	tuples, err := Collect(context.Background(), iter)
	require.NoError(t, err)
	require.Equal(t, []ConsentTuple{
		{ConsentCode: "1", SampleID: "A1", ConsentShortName: "GRU"},
		{ConsentCode: "2", SampleID: "A2", ConsentShortName: "HMB-MDS"},
		{ConsentCode: "1", SampleID: "A3", ConsentShortName: "GRU"},
	}, tuples)

	_, err = iter.Next(context.Background())
	require.ErrorIs(t, err, ErrIteratorDone)
}

func TestFetchConsentTuplesIsLazy(t *testing.T) {
	fixture, err := os.ReadFile("testdata/phs001168.xml")
	require.NoError(t, err)

	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewBytesResponder(http.StatusOK, fixture))

	iter, err := client.FetchConsentTuples(context.Background(), "phs001168.v2.p2")
	require.NoError(t, err)

	first, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A1", first.SampleID)

	iter.Stop()
	_, err = iter.Next(context.Background())
	require.ErrorIs(t, err, ErrIteratorDone)
}

func TestFetchConsentTuplesNotReleased(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusOK,
		`<DbGap><Study accession="phs1.v1.p1" registration_status="unreleased"><SampleList><Sample submitted_sample_id="A1" consent_code="1" consent_short_name="GRU"/></SampleList></Study></DbGap>`))

	_, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
	require.ErrorIs(t, err, errs.ErrNotReleased)
	require.ErrorContains(t, err, "registration_status: unreleased")
	require.Equal(t, errs.ClassFatal, errs.Classify(err))
}

func TestFetchConsentTuplesCustomReleasedStatuses(t *testing.T) {
	client, transport := newMockedClient(t, WithReleasedStatuses("released", "public"))
	transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusOK,
		`<DbGap><Study registration_status="public"><SampleList/></Study></DbGap>`))

	iter, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
	require.NoError(t, err)

	tuples, err := Collect(context.Background(), iter)
	require.NoError(t, err)
	require.Empty(t, tuples)
}

func TestFetchConsentTuplesMissingStudy(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusOK, `<DbGap/>`))

	_, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
	require.ErrorIs(t, err, errs.ErrNotReleased)
}

func TestFetchConsentTuplesUnavailable(t *testing.T) {
	t.Run("server_error_after_retries", func(t *testing.T) {
		client, transport := newMockedClient(t)
		transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusBadGateway, ""))

		_, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
		require.ErrorIs(t, err, errs.ErrRegistryUnavailable)
		require.Equal(t, 3, transport.GetTotalCallCount())
	})

	t.Run("client_error", func(t *testing.T) {
		client, transport := newMockedClient(t)
		transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusNotFound, ""))

		_, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
		require.ErrorIs(t, err, errs.ErrRegistryUnavailable)
		require.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("malformed_document", func(t *testing.T) {
		client, transport := newMockedClient(t)
		transport.RegisterResponder(http.MethodGet, testRegistryURL, httpmock.NewStringResponder(http.StatusOK, `<DbGap><Study`))

		_, err := client.FetchConsentTuples(context.Background(), "phs1.v1.p1")
		require.ErrorIs(t, err, errs.ErrRegistryUnavailable)
	})
}

func TestFetchConsentTuplesOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "testdata/phs001168.xml")
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL + "/GetSampleStatus.cgi")

	iter, err := client.FetchConsentTuples(context.Background(), "phs001168.v2.p2")
	require.NoError(t, err)

	tuples, err := Collect(context.Background(), iter)
	require.NoError(t, err)
	require.Len(t, tuples, 3)
}

func TestStaticIterator(t *testing.T) {
	iter := NewStaticIterator(ConsentTuple{SampleID: "A1"}, ConsentTuple{SampleID: "A2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := iter.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)

	tuples, err := Collect(context.Background(), iter)
	require.NoError(t, err)
	require.Len(t, tuples, 2)
}
