package filebed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/filebed/filebed_sdk_go/internal/filebedapi"
	"github.com/filebed/filebed_sdk_go/internal/httpx"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes of an upload are used to detect its
// content type.
const sniffLen = 3072

// Backend is the transport-neutral surface of the file bed service. The
// HTTP backend talks to a live instance; mock.Store keeps everything in
// memory.
type Backend interface {
	Ping(ctx context.Context) (json.RawMessage, error)
	AddURL(ctx context.Context, req URLAddRequest) (*URLAddResponse, error)
	AddFile(ctx context.Context, req FileAddRequest) (*FileAddResponse, error)
	RemoveFile(ctx context.Context, req FileRemoveRequest) (*FileRemoveResponse, error)
	GetFileCompleteInfo(ctx context.Context, path string) (*FileCompleteInfoGetResponse, error)
	ListFileSimpleInfo(ctx context.Context, path string) (*FileSimpleInfoListResponse, error)
	ListFileCompleteInfo(ctx context.Context, path string) (*FileCompleteInfoListResponse, error)
	ListLastFileInfo(ctx context.Context) (*LastFileInfoListResponse, error)
	PushSyncFile(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error)
	PullSyncFile(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error)
}

type httpBackend struct {
	client *httpx.Client
}

// NewHTTPBackend returns a Backend issuing requests through client.
func NewHTTPBackend(client *httpx.Client) Backend {
	return &httpBackend{client: client}
}

func (b *httpBackend) Ping(ctx context.Context) (json.RawMessage, error) {
	resp, err := b.post(ctx, PingPath, struct{}{})
	if err != nil {
		return nil, err
	}
	return filebedapi.Unwrap(resp.Body)
}

func (b *httpBackend) AddURL(ctx context.Context, req URLAddRequest) (*URLAddResponse, error) {
	out := &URLAddResponse{}
	if err := b.postJSON(ctx, AddURLPath, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) AddFile(ctx context.Context, req FileAddRequest) (*FileAddResponse, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("filebed: http backend not configured")
	}
	data, contentType, err := sniff(req.Data)
	if err != nil {
		return nil, fmt.Errorf("filebed: read upload: %w", err)
	}
	name := req.FileName
	if name == "" {
		name = path.Base(req.Path)
	}
	form := url.Values{"path": {req.Path}}
	if req.Raw {
		form.Set("raw", strconv.FormatBool(req.Raw))
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   AddFilePath,
		Form:   form,
		Files: []httpx.Part{{
			Field:       "file",
			FileName:    name,
			ContentType: contentType,
			Reader:      data,
		}},
	})
	if err != nil {
		return nil, err
	}
	out := &FileAddResponse{}
	if err := filebedapi.Decode(resp.Body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) RemoveFile(ctx context.Context, req FileRemoveRequest) (*FileRemoveResponse, error) {
	out := &FileRemoveResponse{}
	if err := b.postJSON(ctx, RemoveFilePath, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) GetFileCompleteInfo(ctx context.Context, p string) (*FileCompleteInfoGetResponse, error) {
	out := &FileCompleteInfoGetResponse{}
	if err := b.get(ctx, GetFileCompleteInfoPath, PathQuery{Path: p}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) ListFileSimpleInfo(ctx context.Context, p string) (*FileSimpleInfoListResponse, error) {
	out := &FileSimpleInfoListResponse{}
	if err := b.get(ctx, ListFileSimpleInfoPath, PathQuery{Path: p}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) ListFileCompleteInfo(ctx context.Context, p string) (*FileCompleteInfoListResponse, error) {
	out := &FileCompleteInfoListResponse{}
	if err := b.get(ctx, ListFileCompleteInfoPath, PathQuery{Path: p}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) ListLastFileInfo(ctx context.Context) (*LastFileInfoListResponse, error) {
	out := &LastFileInfoListResponse{}
	if err := b.get(ctx, ListLastFileInfoPath, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) PushSyncFile(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error) {
	out := &SyncFileResponse{}
	if err := b.postJSON(ctx, PushSyncFilePath, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) PullSyncFile(ctx context.Context, req SyncFileRequest) (*SyncFileResponse, error) {
	out := &SyncFileResponse{}
	if err := b.postJSON(ctx, PullSyncFilePath, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) postJSON(ctx context.Context, p string, body any, out any) error {
	resp, err := b.post(ctx, p, body)
	if err != nil {
		return err
	}
	return filebedapi.Decode(resp.Body, out)
}

func (b *httpBackend) post(ctx context.Context, p string, body any) (*httpx.Response, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("filebed: http backend not configured")
	}
	payload, err := httpx.JSONBody(body)
	if err != nil {
		return nil, fmt.Errorf("filebed: encode %s body: %w", p, err)
	}
	return b.client.Do(ctx, &httpx.Request{
		Method:      http.MethodPost,
		Path:        p,
		Body:        payload,
		ContentType: "application/json",
	})
}

func (b *httpBackend) get(ctx context.Context, p string, params any, out any) error {
	if b == nil || b.client == nil {
		return errors.New("filebed: http backend not configured")
	}
	q, err := httpx.RepeatedKeys(params)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   p,
		Query:  q,
	})
	if err != nil {
		return err
	}
	return filebedapi.Decode(resp.Body, out)
}

// sniff detects the content type of r from its leading bytes and returns
// a reader yielding the full, unconsumed stream.
func sniff(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", err
	}
	return br, mimetype.Detect(head).String(), nil
}
