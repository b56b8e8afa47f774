package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds every request issued by a Client. File
	// uploads and peer synchronisation can run for a long time.
	DefaultTimeout = 60 * time.Minute

	// FixtureSuffix is appended to every path in local fixture mode so
	// that a static file server can answer with sample envelopes.
	FixtureSuffix = ".json"
)

// HeaderAugmenter mutates the outgoing headers of a single request.
// A non-nil error rejects the request before it is sent.
type HeaderAugmenter func(ctx context.Context, header http.Header) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper. The
// client is copied; its timeout is replaced by the configured one.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAugmenter registers a header augmentation step. Steps run in
// registration order for every request.
func WithAugmenter(fn HeaderAugmenter) Option {
	return func(c *Client) {
		if fn != nil {
			c.augmenters = append(c.augmenters, fn)
		}
	}
}

// WithLocalFixtureMode toggles the FixtureSuffix on request paths.
func WithLocalFixtureMode(enabled bool) Option {
	return func(c *Client) {
		c.fixture = enabled
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client resolves relative API paths against a base URL and executes
// requests through resty. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	rest       *resty.Client
	headers    http.Header
	augmenters []HeaderAugmenter
	timeout    time.Duration
	fixture    bool
	log        logrus.FieldLogger
}

// Part is a file attached to a multipart request.
type Part struct {
	Field       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// Request describes a single outbound request.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string

	// Files switch the request to multipart/form-data and Form values
	// travel as its plain fields. Form alone is sent url-encoded.
	Form  url.Values
	Files []Part
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewClient creates a Client for the provided base URL. The base path
// is treated as a directory so relative API paths nest beneath it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL: parsed,
		headers: make(http.Header),
		timeout: DefaultTimeout,
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{}
	if c.httpClient != nil {
		clone := *c.httpClient
		hc = &clone
	}
	c.rest = resty.NewWithClient(hc).
		SetTimeout(c.timeout).
		SetLogger(c.log)
	return c, nil
}

// Timeout reports the client-wide request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// LocalFixtureMode reports whether paths carry FixtureSuffix.
func (c *Client) LocalFixtureMode() bool {
	return c.fixture
}

// Do executes the provided request and returns the read response, or an
// HTTPError when the status is not 2xx.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}

	fullURL, err := c.ResolveURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	header := cloneHeader(c.headers)
	for k, values := range req.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	if err := c.augment(ctx, header); err != nil {
		return nil, err
	}

	r := c.rest.R().SetContext(ctx)
	for k, values := range header {
		r.Header[k] = values
	}

	switch {
	case len(req.Form) > 0 || len(req.Files) > 0:
		r.Header.Del("Content-Type")
		r.SetFormDataFromValues(req.Form)
		for _, p := range req.Files {
			r.SetMultipartField(p.Field, p.FileName, p.ContentType, p.Reader)
		}
	case req.Body != nil:
		if req.ContentType != "" {
			r.Header.Set("Content-Type", req.ContentType)
		}
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, fullURL)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": req.Method, "url": fullURL, "err": err}).Error("httpx: request failed")
		return nil, fmt.Errorf("httpx: %s %s: %w", req.Method, req.Path, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header().Clone(),
		Body:       resp.Body(),
	}
	c.log.WithFields(logrus.Fields{"method": req.Method, "url": fullURL, "status": out.StatusCode}).Debug("httpx: response")
	if out.StatusCode >= 400 {
		return nil, newHTTPError(out)
	}
	return out, nil
}

// ResolveURL builds the absolute URL for a relative API path, applying
// the fixture suffix when enabled.
func (c *Client) ResolveURL(path string, q url.Values) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errors.New("httpx: path is required")
	}
	if c.fixture {
		path += FixtureSuffix
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("httpx: invalid path %q: %w", path, err)
	}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) augment(ctx context.Context, header http.Header) error {
	for _, fn := range c.augmenters {
		if err := fn(ctx, header); err != nil {
			return err
		}
	}
	return nil
}

// BearerAuth returns an augmenter that sets "Authorization: Bearer <token>"
// with a token fetched from source on every request.
func BearerAuth(source func(ctx context.Context) (string, error)) HeaderAugmenter {
	return func(ctx context.Context, header http.Header) error {
		token, err := source(ctx)
		if err != nil {
			return &TokenError{Err: err}
		}
		header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// JSONBody serializes v without HTML escaping.
func JSONBody(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
