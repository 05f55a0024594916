package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/internal/build"
	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/telemetry"
)

const (
	defaultPageSize = 100
	maxPages        = 10_000
)

var tracer = otel.Tracer("consentsync/pkg/dataservice")

var requestDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace:                       build.ProjectName,
	Name:                            "dataservice_request_duration_ms",
	Help:                            "The duration (in ms) of a record store request, retries included.",
	Buckets:                         []float64{5, 25, 100, 250, 1000, 5000, 30000},
	NativeHistogramBucketFactor:     1.1,
	NativeHistogramMaxBucketNumber:  100,
	NativeHistogramMinResetDuration: time.Hour,
}, []string{"method", "resource", "outcome"})

// Client is a RecordStore backed by the dataservice REST API. Instances may be safely
// shared by multiple goroutines.
type Client struct {
	baseURL  *url.URL
	http     *retryablehttp.Client
	pageSize int
	logger   logger.Logger
}

var _ RecordStore = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithLogger sets the logger used for retry attempts and paging diagnostics.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets the underlying HTTP client. Tests use it to install mock transports.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithRetry bounds the retries done for 5xx and transport errors. retryMax is the number of
// retries after the first attempt; waits grow exponentially from waitMin to waitMax.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryMax = retryMax
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = timeout
	}
}

// WithPageSize sets the 'limit' query parameter of list requests.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// NewClient returns a Client for the dataservice at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("no dataservice url set")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid dataservice url %q: %w", baseURL, err)
	}

	hc := retryablehttp.NewClient()
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:  u,
		http:     hc,
		pageSize: defaultPageSize,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.http.Logger = &leveledLogger{logger: c.logger}

	return c, nil
}

func (c *Client) FindStudies(ctx context.Context, externalID string) ([]Study, error) {
	query := url.Values{"external_id": []string{externalID}}

	var studies []Study
	_, err := c.getPage(ctx, "studies", c.resolve("/studies", query), &studies)
	if err != nil {
		return nil, err
	}

	return studies, nil
}

func (c *Client) ListStudies(ctx context.Context) ([]Study, error) {
	query := url.Values{"limit": []string{strconv.Itoa(c.pageSize)}}
	return listAll[Study](ctx, c, "studies", c.resolve("/studies", query))
}

func (c *Client) FindBiospecimens(ctx context.Context, studyID, externalSampleID string) ([]Biospecimen, error) {
	query := url.Values{
		"study_id":           []string{studyID},
		"external_sample_id": []string{externalSampleID},
	}

	var biospecimens []Biospecimen
	_, err := c.getPage(ctx, "biospecimens", c.resolve("/biospecimens", query), &biospecimens)
	if err != nil {
		return nil, err
	}

	return biospecimens, nil
}

func (c *Client) PatchBiospecimen(ctx context.Context, id string, patch BiospecimenPatch) error {
	return c.patch(ctx, "biospecimens", c.resolve("/biospecimens/"+url.PathEscape(id), nil), patch)
}

func (c *Client) ListGenomicFiles(ctx context.Context, biospecimenID string) ([]GenomicFile, error) {
	query := url.Values{
		"biospecimen_id": []string{biospecimenID},
		"limit":          []string{strconv.Itoa(c.pageSize)},
	}
	return listAll[GenomicFile](ctx, c, "genomic-files", c.resolve("/genomic-files", query))
}

func (c *Client) PatchGenomicFile(ctx context.Context, id string, patch GenomicFilePatch) error {
	return c.patch(ctx, "genomic-files", c.resolve("/genomic-files/"+url.PathEscape(id), nil), patch)
}

// listAll follows the '_links.next' chain of a list endpoint and collects every result.
func listAll[T any](ctx context.Context, c *Client, resource, first string) ([]T, error) {
	var all []T
	next := first
	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%s listing exceeded %d pages", resource, maxPages)
		}

		var results []T
		link, err := c.getPage(ctx, resource, next, &results)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)

		next = ""
		if link != "" {
			next = c.resolveLink(link)
		}
	}

	return all, nil
}

// getPage issues a GET and decodes the 'results' array into out. It returns the
// '_links.next' reference, empty on the last page.
func (c *Client) getPage(ctx context.Context, resource, target string, out any) (string, error) {
	body, err := c.do(ctx, http.MethodGet, resource, target, nil)
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON returned by GET %s", target)
	}

	results := gjson.GetBytes(body, "results")
	if results.Exists() && results.IsArray() {
		if err := json.Unmarshal([]byte(results.Raw), out); err != nil {
			return "", fmt.Errorf("decode %s results: %w", resource, err)
		}
	}

	return gjson.GetBytes(body, "_links.next").String(), nil
}

func (c *Client) patch(ctx context.Context, resource, target string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", resource, err)
	}

	_, err = c.do(ctx, http.MethodPatch, resource, target, raw)
	return err
}

func (c *Client) do(ctx context.Context, method, resource, target string, payload []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "dataservice."+method, trace.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("url", target),
	))
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		requestDurationHistogram.WithLabelValues(method, resource, outcome).Observe(float64(time.Since(start).Milliseconds()))
	}()

	var rawBody any
	if payload != nil {
		rawBody = payload
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.ProjectName+"/"+build.Version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.TraceError(span, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.With(fmt.Errorf("%s %s: %w", method, target, err), errs.ErrUpstreamTimeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, errs.With(fmt.Errorf("read %s response: %w", resource, err), errs.ErrUpstreamTimeout)
	}

	span.SetAttributes(attribute.Int("status_code", resp.StatusCode))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		outcome = "ok"
		return body, nil
	case resp.StatusCode == http.StatusNotFound && method == http.MethodPatch:
		outcome = "not_found"
		return nil, errs.NotFound(strings.TrimSuffix(resource, "s"), target)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		err := &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: snippet(body)}
		telemetry.TraceError(span, err)
		return nil, errs.With(err, errs.ErrUpstreamTimeout)
	default:
		err := &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: snippet(body)}
		telemetry.TraceError(span, err)
		return nil, errs.With(err, errs.ErrUnexpectedStatus)
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// resolveLink turns a '_links.next' reference, which the dataservice returns as a path
// relative to its root, into an absolute URL.
func (c *Client) resolveLink(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return c.baseURL.String() + link
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + ref.Path
	u.RawQuery = ref.RawQuery
	return u.String()
}

// StatusError is returned when the record store answers with a non-success status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func snippet(body []byte) string {
	const limit = 256
	body = bytes.TrimSpace(body)
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// leveledLogger adapts logger.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logger.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues)...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}
