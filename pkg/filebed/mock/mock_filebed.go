// Package mock provides an in-memory file bed that implements
// filebed.Backend, including push and pull synchronisation with peers.
package mock

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/filebed/filebed_sdk_go/internal/devseed"
	"github.com/filebed/filebed_sdk_go/internal/filebedapi"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
)

// DefaultLastFileCount is how many entries ListLastFileInfo returns.
const DefaultLastFileCount = 10

// Dialer connects to the peer instance at address for synchronisation.
type Dialer func(ctx context.Context, address, secret string) (filebed.Backend, error)

// Fetcher downloads the contents behind link.
type Fetcher func(ctx context.Context, link string) ([]byte, error)

// Reader is implemented by backends that can hand out file contents
// directly. Pull synchronisation prefers it over fetching file URLs.
type Reader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

type fileEntry struct {
	data    []byte
	sum     string
	raw     bool
	source  string
	modTime time.Time
}

// Store is an in-memory file tree. Directories exist implicitly while
// they contain at least one file.
type Store struct {
	mu            sync.RWMutex
	files         map[string]*fileEntry
	now           func() time.Time
	lastFileCount int
	dial          Dialer
	fetch         Fetcher
}

var _ filebed.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithDialer sets how peers are reached by PushSyncFile and PullSyncFile.
func WithDialer(d Dialer) Option {
	return func(s *Store) {
		s.dial = d
	}
}

// WithFetcher sets how AddURL and PullSyncFile download contents. Without
// one AddURL records the link with empty contents.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) {
		s.fetch = f
	}
}

// WithLastFileCount overrides DefaultLastFileCount.
func WithLastFileCount(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.lastFileCount = n
		}
	}
}

// WithClock overrides the modification time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		files:         make(map[string]*fileEntry),
		lastFileCount: DefaultLastFileCount,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads files from seed entries.
func (s *Store) Seed(entries []devseed.FileSeedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("mock filebed: seed entry missing path")
		}
		data, err := e.Bytes()
		if err != nil {
			return fmt.Errorf("mock filebed: %w", err)
		}
		entry := s.putLocked(cleanPath(e.Path), data, e.Raw, e.URL)
		if e.LastModified != nil {
			entry.modTime = e.LastModified.UTC()
		}
	}
	return nil
}

// Ping implements filebed.Backend.
func (s *Store) Ping(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.RawMessage(`"pong"`), nil
}

// AddURL implements filebed.Backend.
func (s *Store) AddURL(ctx context.Context, req filebed.URLAddRequest) (*filebed.URLAddResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("path", req.Path, "url", req.URL); err != nil {
		return nil, err
	}
	var data []byte
	if s.fetch != nil {
		fetched, err := s.fetch(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("mock filebed: fetch %s: %w", req.URL, err)
		}
		data = fetched
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := cleanPath(req.Path)
	if err := s.checkWritableLocked(p); err != nil {
		return nil, err
	}
	s.putLocked(p, data, req.Raw, req.URL)
	info := simpleInfo(p, true)
	return &filebed.URLAddResponse{Info: &info}, nil
}

// AddFile implements filebed.Backend. A path ending in "/" stores the
// upload under FileName inside that directory.
func (s *Store) AddFile(ctx context.Context, req filebed.FileAddRequest) (*filebed.FileAddResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("path", req.Path); err != nil {
		return nil, err
	}
	if req.Data == nil {
		return nil, &filebed.ValidationError{Field: "file"}
	}
	data, err := io.ReadAll(req.Data)
	if err != nil {
		return nil, fmt.Errorf("mock filebed: read upload: %w", err)
	}
	target := req.Path
	if strings.HasSuffix(target, "/") && req.FileName != "" {
		target += req.FileName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := cleanPath(target)
	if err := s.checkWritableLocked(p); err != nil {
		return nil, err
	}
	s.putLocked(p, data, req.Raw, "")
	info := simpleInfo(p, true)
	return &filebed.FileAddResponse{Info: &info}, nil
}

// RemoveFile implements filebed.Backend. Removing a directory removes
// every file below it.
func (s *Store) RemoveFile(ctx context.Context, req filebed.FileRemoveRequest) (*filebed.FileRemoveResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("path", req.Path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := cleanPath(req.Path)
	if p == "/" {
		return nil, failure("cannot remove root directory")
	}
	if _, ok := s.files[p]; ok {
		delete(s.files, p)
		info := simpleInfo(p, true)
		return &filebed.FileRemoveResponse{Info: &info}, nil
	}
	if !s.isDirLocked(p) {
		return nil, failure("file not found: %s", p)
	}
	prefix := dirPrefix(p)
	for k := range s.files {
		if strings.HasPrefix(k, prefix) {
			delete(s.files, k)
		}
	}
	info := simpleInfo(p, false)
	return &filebed.FileRemoveResponse{Info: &info}, nil
}

// GetFileCompleteInfo implements filebed.Backend. A missing path yields
// a response with a nil Info.
func (s *Store) GetFileCompleteInfo(ctx context.Context, p string) (*filebed.FileCompleteInfoGetResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("path", p); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &filebed.FileCompleteInfoGetResponse{Info: s.completeInfoLocked(cleanPath(p))}, nil
}

// ListFileSimpleInfo implements filebed.Backend. An empty path lists the
// root; a file path lists the file itself.
func (s *Store) ListFileSimpleInfo(ctx context.Context, p string) (*filebed.FileSimpleInfoListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := cleanPath(p)
	infos := []filebed.FileSimpleInfo{}
	if _, ok := s.files[dir]; ok {
		return &filebed.FileSimpleInfoListResponse{Infos: append(infos, simpleInfo(dir, true))}, nil
	}
	for _, c := range s.childrenLocked(dir) {
		infos = append(infos, simpleInfo(c.path, c.isFile))
	}
	return &filebed.FileSimpleInfoListResponse{Infos: infos}, nil
}

// ListFileCompleteInfo implements filebed.Backend.
func (s *Store) ListFileCompleteInfo(ctx context.Context, p string) (*filebed.FileCompleteInfoListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("path", p); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := cleanPath(p)
	infos := []filebed.FileCompleteInfo{}
	if _, ok := s.files[dir]; ok {
		return &filebed.FileCompleteInfoListResponse{Infos: append(infos, *s.completeInfoLocked(dir))}, nil
	}
	for _, c := range s.childrenLocked(dir) {
		if info := s.completeInfoLocked(c.path); info != nil {
			infos = append(infos, *info)
		}
	}
	return &filebed.FileCompleteInfoListResponse{Infos: infos}, nil
}

// ListLastFileInfo implements filebed.Backend. Files are ordered by
// modification time, newest first.
func (s *Store) ListLastFileInfo(ctx context.Context) (*filebed.LastFileInfoListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := s.files[paths[i]].modTime, s.files[paths[j]].modTime
		if !a.Equal(b) {
			return a.After(b)
		}
		return paths[i] < paths[j]
	})
	if len(paths) > s.lastFileCount {
		paths = paths[:s.lastFileCount]
	}

	infos := make([]filebed.FileSimpleInfo, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, simpleInfo(p, true))
	}
	return &filebed.LastFileInfoListResponse{Infos: infos}, nil
}

// ReadFile returns a copy of the contents stored at p.
func (s *Store) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.files[cleanPath(p)]
	if !ok {
		return nil, filebed.ErrNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

func (s *Store) putLocked(p string, data []byte, raw bool, source string) *fileEntry {
	sum := md5.Sum(data)
	entry := &fileEntry{
		data:    append([]byte(nil), data...),
		sum:     hex.EncodeToString(sum[:]),
		raw:     raw,
		source:  source,
		modTime: s.now(),
	}
	s.files[p] = entry
	return entry
}

func (s *Store) checkWritableLocked(p string) error {
	if p == "/" || s.isDirLocked(p) {
		return failure("path is a directory: %s", p)
	}
	for parent := path.Dir(p); parent != "/"; parent = path.Dir(parent) {
		if _, ok := s.files[parent]; ok {
			return failure("parent is a file: %s", parent)
		}
	}
	return nil
}

func (s *Store) isDirLocked(p string) bool {
	if p == "/" {
		return true
	}
	prefix := dirPrefix(p)
	for k := range s.files {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (s *Store) completeInfoLocked(p string) *filebed.FileCompleteInfo {
	if entry, ok := s.files[p]; ok {
		return &filebed.FileCompleteInfo{
			FileSimpleInfo: simpleInfo(p, true),
			Size:           int64(len(entry.data)),
			Count:          1,
			MD5:            entry.sum,
		}
	}
	if !s.isDirLocked(p) {
		return nil
	}
	info := &filebed.FileCompleteInfo{FileSimpleInfo: simpleInfo(p, false)}
	prefix := dirPrefix(p)
	for k, entry := range s.files {
		if strings.HasPrefix(k, prefix) {
			info.Size += int64(len(entry.data))
			info.Count++
		}
	}
	return info
}

type child struct {
	path   string
	isFile bool
}

func (s *Store) childrenLocked(dir string) []child {
	prefix := dirPrefix(dir)
	seen := make(map[string]bool)
	for k := range s.files {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			seen[prefix+rest[:i]] = false
			continue
		}
		seen[k] = true
	}
	out := make([]child, 0, len(seen))
	for p, isFile := range seen {
		out = append(out, child{path: p, isFile: isFile})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].path < out[j].path
	})
	return out
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}

func dirPrefix(p string) string {
	if p == "/" {
		return "/"
	}
	return p + "/"
}

func simpleInfo(p string, isFile bool) filebed.FileSimpleInfo {
	info := filebed.FileSimpleInfo{
		Path:   p,
		Name:   path.Base(p),
		IsFile: isFile,
	}
	if isFile {
		info.URL = fileURL(p)
	}
	return info
}

// fileURL is the escaped download path of the file at p.
func fileURL(p string) string {
	return (&url.URL{Path: filebed.FilePathPrefix + p}).EscapedPath()
}

// required checks name/value pairs in order.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &filebed.ValidationError{Field: pairs[i]}
		}
	}
	return nil
}

func failure(format string, args ...any) error {
	return &filebed.ServerError{Code: filebedapi.FailCode, Msg: fmt.Sprintf(format, args...)}
}

func readerOf(data []byte) io.Reader {
	return bytes.NewReader(data)
}
