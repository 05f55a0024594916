//go:generate mockgen -source registry.go -destination ../../internal/mocks/mock_registry.go -package mocks Fetcher

// Package registry reads per-sample consent metadata published by the genomics consent
// registry (dbGaP).
package registry

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/pkg/httpclient"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/telemetry"
)

var tracer = otel.Tracer("consentsync/pkg/registry")

// ConsentTuple is the consent the registry publishes for one sample.
type ConsentTuple struct {
	ConsentCode      string
	SampleID         string
	ConsentShortName string
}

// Fetcher fetches the consent tuples of a study accession, e.g. 'phs001168.v2.p2'.
type Fetcher interface {
	FetchConsentTuples(ctx context.Context, accession string) (TupleIterator, error)
}

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithLogger sets the logger of the client.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets the client used for single attempts.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, httpclient.WithHTTPClient(hc))
	}
}

// WithMaxAttempts bounds the requests sent for one accession.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, httpclient.WithMaxAttempts(n))
	}
}

// WithBackoff sets the first and the longest wait between two registry attempts.
func WithBackoff(initial, maxInterval time.Duration) ClientOption {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, httpclient.WithBackoff(initial, maxInterval))
	}
}

// WithReleasedStatuses sets the registration statuses under which samples are published.
func WithReleasedStatuses(statuses ...string) ClientOption {
	return func(c *Client) {
		c.releasedStatuses = statuses
	}
}

// Client is a Fetcher over the registry's sample status endpoint.
type Client struct {
	url              string
	http             *httpclient.RetryableHTTPClient
	httpOpts         []httpclient.Option
	releasedStatuses []string
	logger           logger.Logger
}

var _ Fetcher = (*Client)(nil)

func NewClient(registryURL string, opts ...ClientOption) *Client {
	c := &Client{
		url:              registryURL,
		releasedStatuses: []string{"released"},
		logger:           logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.http = httpclient.NewRetryableHTTPClient(c.httpOpts...)

	return c
}

// FetchConsentTuples fetches the registry document of accession and checks the study is
// released before handing back an iterator over its samples.
func (c *Client) FetchConsentTuples(ctx context.Context, accession string) (TupleIterator, error) {
	ctx, span := tracer.Start(ctx, "registry.FetchConsentTuples")
	span.SetAttributes(attribute.String("accession", accession))
	defer span.End()

	target, err := c.documentURL(accession)
	if err != nil {
		return nil, err
	}

	resp, body, err := c.http.Get(ctx, target)
	if err != nil {
		telemetry.TraceError(span, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.With(fmt.Errorf("fetch %s: %w", accession, err), errs.ErrRegistryUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch %s: registry responded with status %d", accession, resp.StatusCode)
		telemetry.TraceError(span, err)
		return nil, errs.With(err, errs.ErrRegistryUnavailable)
	}

	iter, err := c.openDocument(accession, io.NopCloser(bytes.NewReader(body)))
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}

	return iter, nil
}

// openDocument consumes rd up to the <Study> element, validates its registration status
// and returns an iterator positioned on the remaining <Sample> elements.
func (c *Client) openDocument(accession string, rd io.ReadCloser) (TupleIterator, error) {
	decoder := xml.NewDecoder(rd)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			_ = rd.Close()
			return nil, errs.NotReleased(accession, "missing")
		}
		if err != nil {
			_ = rd.Close()
			return nil, errs.With(fmt.Errorf("parse registry document for %s: %w", accession, err), errs.ErrRegistryUnavailable)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Study" {
			continue
		}

		status := attr(start, "registration_status")
		if !slices.Contains(c.releasedStatuses, status) {
			_ = rd.Close()
			return nil, errs.NotReleased(accession, status)
		}

		c.logger.Debug("registry study released",
			zap.String("accession", accession),
			zap.String("registration_status", status))

		return newSampleIterator(decoder, rd), nil
	}
}

func (c *Client) documentURL(accession string) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid registry url %q: %w", c.url, err)
	}

	query := u.Query()
	query.Set("study_id", accession)
	query.Set("rettype", "xml")
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
