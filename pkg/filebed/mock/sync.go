package mock

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/filebed/filebed_sdk_go/pkg/filebed"
)

type localFile struct {
	path string
	data []byte
	sum  string
}

// PushSyncFile implements filebed.Backend. Every local file under
// req.Path whose checksum differs from the peer's copy is uploaded to the
// peer as raw, so the peer stores the exact bytes; identical files are
// skipped.
func (s *Store) PushSyncFile(ctx context.Context, req filebed.SyncFileRequest) (*filebed.SyncFileResponse, error) {
	peer, err := s.dialPeer(ctx, req)
	if err != nil {
		return nil, err
	}

	root := cleanPath(req.Path)
	files := s.snapshot(root)
	if len(files) == 0 && root != "/" {
		return nil, failure("file not found: %s", root)
	}

	var (
		failed   int
		firstErr error
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remote, err := peer.GetFileCompleteInfo(ctx, f.path)
		if err == nil && remote != nil && remote.Info != nil && remote.Info.IsFile && remote.Info.MD5 == f.sum {
			continue
		}
		_, err = peer.AddFile(ctx, filebed.FileAddRequest{
			Path:     f.path,
			FileName: path.Base(f.path),
			Data:     readerOf(f.data),
			Raw:      true,
		})
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("mock filebed: push %d of %d files failed: %w", failed, len(files), firstErr)
	}
	return &filebed.SyncFileResponse{}, nil
}

// PullSyncFile implements filebed.Backend. Every peer file under
// req.Path whose checksum differs from the local copy is downloaded and
// stored as raw.
func (s *Store) PullSyncFile(ctx context.Context, req filebed.SyncFileRequest) (*filebed.SyncFileResponse, error) {
	peer, err := s.dialPeer(ctx, req)
	if err != nil {
		return nil, err
	}

	root := cleanPath(req.Path)
	remote, err := collectRemote(ctx, peer, root)
	if err != nil {
		return nil, fmt.Errorf("mock filebed: list peer files: %w", err)
	}

	var (
		failed   int
		firstErr error
	)
	for _, info := range remote {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := cleanPath(info.Path)
		if s.checksum(p) == info.MD5 && info.MD5 != "" {
			continue
		}
		data, err := s.readPeer(ctx, peer, req.Address, info)
		if err == nil {
			s.mu.Lock()
			if err = s.checkWritableLocked(p); err == nil {
				s.putLocked(p, data, true, info.URL)
			}
			s.mu.Unlock()
		}
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("mock filebed: pull %d of %d files failed: %w", failed, len(remote), firstErr)
	}
	return &filebed.SyncFileResponse{}, nil
}

func (s *Store) dialPeer(ctx context.Context, req filebed.SyncFileRequest) (filebed.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := required("address", req.Address, "secret", req.Secret); err != nil {
		return nil, err
	}
	if s.dial == nil {
		return nil, errors.New("mock filebed: no peer dialer configured")
	}
	peer, err := s.dial(ctx, req.Address, req.Secret)
	if err != nil {
		return nil, fmt.Errorf("mock filebed: dial %s: %w", req.Address, err)
	}
	return peer, nil
}

func (s *Store) snapshot(root string) []localFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := dirPrefix(root)
	var out []localFile
	for p, entry := range s.files {
		if p != root && !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, localFile{
			path: p,
			data: append([]byte(nil), entry.data...),
			sum:  entry.sum,
		})
	}
	return out
}

func (s *Store) checksum(p string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.files[p]; ok {
		return entry.sum
	}
	return ""
}

func (s *Store) readPeer(ctx context.Context, peer filebed.Backend, address string, info filebed.FileCompleteInfo) ([]byte, error) {
	if r, ok := peer.(Reader); ok {
		return r.ReadFile(ctx, info.Path)
	}
	if s.fetch == nil {
		return nil, fmt.Errorf("mock filebed: no fetcher to read %s from peer", info.Path)
	}
	return s.fetch(ctx, resolveFileURL(address, info))
}

// collectRemote walks the peer tree below root and returns every file.
func collectRemote(ctx context.Context, peer filebed.Backend, root string) ([]filebed.FileCompleteInfo, error) {
	resp, err := peer.GetFileCompleteInfo(ctx, root)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Info == nil {
		if root == "/" {
			return nil, nil
		}
		return nil, failure("file not found: %s", root)
	}
	if resp.Info.IsFile {
		return []filebed.FileCompleteInfo{*resp.Info}, nil
	}

	list, err := peer.ListFileCompleteInfo(ctx, root)
	if err != nil {
		return nil, err
	}
	var out []filebed.FileCompleteInfo
	for _, info := range list.Infos {
		if info.IsFile {
			out = append(out, info)
			continue
		}
		if cleanPath(info.Path) == root {
			continue
		}
		nested, err := collectRemote(ctx, peer, cleanPath(info.Path))
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func resolveFileURL(address string, info filebed.FileCompleteInfo) string {
	link := info.URL
	if link == "" {
		link = fileURL(cleanPath(info.Path))
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimRight(address, "/") + "/" + strings.TrimLeft(link, "/")
}
