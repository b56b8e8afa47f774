package filebed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/filebed/filebed_sdk_go/internal/httpx"
	"github.com/filebed/filebed_sdk_go/pkg/auth"
	"github.com/filebed/filebed_sdk_go/pkg/prompt"
	"github.com/sirupsen/logrus"
)

// Client wraps every file bed operation with argument validation, the
// confirmation gates and the error funnel.
type Client struct {
	backend       Backend
	prompt        prompt.UserPrompt
	reporter      *Reporter
	log           logrus.FieldLogger
	confirmCreate bool

	tokens   auth.TokenSource
	fixture  bool
	timeout  time.Duration
	httpOpts []httpx.Option
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the source queried for a bearer token on every
// request. Without one every HTTP request fails with auth.ErrNoToken.
func WithTokenSource(ts auth.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithPrompt sets the confirmation and notification surface. The default
// confirms everything and logs notifications.
func WithPrompt(p prompt.UserPrompt) Option {
	return func(c *Client) {
		if p != nil {
			c.prompt = p
		}
	}
}

// WithLogger sets the logger shared by the client and its HTTP helper.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLocalFixtureMode appends ".json" to every request path.
func WithLocalFixtureMode(enabled bool) Option {
	return func(c *Client) {
		c.fixture = enabled
	}
}

// WithTimeout overrides the 60 minute request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCreateConfirmation asks the user before AddURL and AddFile.
func WithCreateConfirmation(enabled bool) Option {
	return func(c *Client) {
		c.confirmCreate = enabled
	}
}

// WithHTTPOptions passes extra options to the underlying httpx.Client.
func WithHTTPOptions(opts ...httpx.Option) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, opts...)
	}
}

// New constructs an HTTP-backed client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := newClient(nil, opts...)
	tokens := c.tokens
	if tokens == nil {
		tokens = auth.StaticToken("")
	}
	httpOpts := []httpx.Option{
		httpx.WithLogger(c.log),
		httpx.WithLocalFixtureMode(c.fixture),
		httpx.WithTimeout(c.timeout),
		httpx.WithAugmenter(httpx.BearerAuth(tokens.Token)),
	}
	httpOpts = append(httpOpts, c.httpOpts...)
	hc, err := httpx.NewClient(baseURL, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("filebed: %w", err)
	}
	c.backend = NewHTTPBackend(hc)
	return c, nil
}

// NewWithBackend allows callers to provide a custom backend (e.g., mocks).
// Transport options are ignored.
func NewWithBackend(b Backend, opts ...Option) *Client {
	return newClient(b, opts...)
}

func newClient(b Backend, opts ...Option) *Client {
	c := &Client{backend: b, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	if c.prompt == nil {
		c.prompt = prompt.Auto{Answer: true, Log: c.log}
	}
	c.reporter = &Reporter{Prompt: c.prompt, Log: c.log}
	return c
}

// Backend exposes the backend the client delegates to.
func (c *Client) Backend() Backend {
	return c.backend
}

// Reporter returns the error funnel used by the client.
func (c *Client) Reporter() *Reporter {
	return c.reporter
}

// Ping checks that the service is reachable and returns its raw payload.
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	data, err := c.backend.Ping(ctx)
	if err != nil {
		return nil, c.fail("ping", err)
	}
	return data, nil
}

// AddURL registers the file at link under path.
func (c *Client) AddURL(ctx context.Context, path, link string, raw bool) (*URLAddResponse, error) {
	if err := c.require(map[string]string{"path": path, "url": link}, "path", "url"); err != nil {
		return nil, err
	}
	if c.confirmCreate && !c.prompt.Confirm(fmt.Sprintf("Create %s from %s?", path, link)) {
		return nil, ErrDeclined
	}
	resp, err := c.backend.AddURL(ctx, URLAddRequest{Path: path, URL: link, Raw: raw})
	if err != nil {
		return nil, c.fail("add url", err)
	}
	return resp, nil
}

// AddFile uploads file to path as multipart/form-data.
func (c *Client) AddFile(ctx context.Context, path string, file io.Reader, opts *AddFileOptions) (*FileAddResponse, error) {
	if err := c.require(map[string]string{"path": path}, "path"); err != nil {
		return nil, err
	}
	if isEmpty(file) {
		return nil, c.invalid("file")
	}
	if c.confirmCreate && !c.prompt.Confirm(fmt.Sprintf("Create %s?", path)) {
		return nil, ErrDeclined
	}
	req := FileAddRequest{Path: path, Data: file}
	if opts != nil {
		req.FileName = opts.FileName
		req.Raw = opts.Raw
	}
	resp, err := c.backend.AddFile(ctx, req)
	if err != nil {
		return nil, c.fail("add file", err)
	}
	return resp, nil
}

// RemoveFile deletes path after the user confirms. A declined
// confirmation returns ErrDeclined without contacting the service.
func (c *Client) RemoveFile(ctx context.Context, path string) (*FileRemoveResponse, error) {
	if err := c.require(map[string]string{"path": path}, "path"); err != nil {
		return nil, err
	}
	if !c.prompt.Confirm(fmt.Sprintf("Remove %s?", path)) {
		return nil, ErrDeclined
	}
	resp, err := c.backend.RemoveFile(ctx, FileRemoveRequest{Path: path})
	if err != nil {
		return nil, c.fail("remove file", err)
	}
	return resp, nil
}

// GetFileCompleteInfo returns size, count and checksum data for path.
func (c *Client) GetFileCompleteInfo(ctx context.Context, path string) (*FileCompleteInfoGetResponse, error) {
	if err := c.require(map[string]string{"path": path}, "path"); err != nil {
		return nil, err
	}
	resp, err := c.backend.GetFileCompleteInfo(ctx, path)
	if err != nil {
		return nil, c.fail("get file complete info", err)
	}
	return resp, nil
}

// ListServerConf is an alias of GetFileCompleteInfo, kept for callers of
// the older API name.
func (c *Client) ListServerConf(ctx context.Context, path string) (*FileCompleteInfoGetResponse, error) {
	return c.GetFileCompleteInfo(ctx, path)
}

// ListFileSimpleInfo lists the entries under path. An empty path lists
// the root.
func (c *Client) ListFileSimpleInfo(ctx context.Context, path string) (*FileSimpleInfoListResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := c.backend.ListFileSimpleInfo(ctx, path)
	if err != nil {
		return nil, c.fail("list file simple info", err)
	}
	return resp, nil
}

// ListFileCompleteInfo lists the entries under path with size and
// checksum data.
func (c *Client) ListFileCompleteInfo(ctx context.Context, path string) (*FileCompleteInfoListResponse, error) {
	if err := c.require(map[string]string{"path": path}, "path"); err != nil {
		return nil, err
	}
	resp, err := c.backend.ListFileCompleteInfo(ctx, path)
	if err != nil {
		return nil, c.fail("list file complete info", err)
	}
	return resp, nil
}

// ListLastFileInfo lists the most recently modified files.
func (c *Client) ListLastFileInfo(ctx context.Context) (*LastFileInfoListResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := c.backend.ListLastFileInfo(ctx)
	if err != nil {
		return nil, c.fail("list last file info", err)
	}
	return resp, nil
}

// PushSyncFile asks the service to copy path (or everything) to the peer
// at address.
func (c *Client) PushSyncFile(ctx context.Context, address, secret, path string) (*SyncFileResponse, error) {
	return c.sync(ctx, "push sync file", c.backendPush, address, secret, path)
}

// PullSyncFile asks the service to copy path (or everything) from the
// peer at address.
func (c *Client) PullSyncFile(ctx context.Context, address, secret, path string) (*SyncFileResponse, error) {
	return c.sync(ctx, "pull sync file", c.backendPull, address, secret, path)
}

func (c *Client) backendPush(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error) {
	return c.backend.PushSyncFile(ctx, req)
}

func (c *Client) backendPull(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error) {
	return c.backend.PullSyncFile(ctx, req)
}

func (c *Client) sync(ctx context.Context, op string, call func(context.Context, SyncFileRequest) (*SyncFileResponse, error), address, secret, path string) (*SyncFileResponse, error) {
	if err := c.require(map[string]string{"address": address, "secret": secret}, "address", "secret"); err != nil {
		return nil, err
	}
	resp, err := call(ctx, SyncFileRequest{Address: address, Secret: secret, Path: path})
	if err != nil {
		return nil, c.fail(op, err)
	}
	return resp, nil
}

func (c *Client) ready() error {
	if c == nil || c.backend == nil {
		return errors.New("filebed: client is nil")
	}
	return nil
}

// require checks the named arguments in order and reports the first
// blank one.
func (c *Client) require(args map[string]string, names ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	for _, name := range names {
		if strings.TrimSpace(args[name]) == "" {
			return c.invalid(name)
		}
	}
	return nil
}

func (c *Client) invalid(field string) error {
	err := &ValidationError{Field: field}
	c.reporter.Report(err)
	return err
}

func (c *Client) fail(op string, err error) error {
	c.reporter.Report(err)
	return fmt.Errorf("filebed: %s: %w", op, err)
}

func isEmpty(r io.Reader) bool {
	if r == nil {
		return true
	}
	if l, ok := r.(interface{ Len() int }); ok {
		return l.Len() == 0
	}
	return false
}
