package mock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/filebed/filebed_sdk_go/internal/devseed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// md5 of "hello"
const helloMD5 = "5d41402abc4b2a76b9719d911017c592"

func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func addText(t *testing.T, s *Store, p, content string) {
	t.Helper()
	_, err := s.AddFile(context.Background(), filebed.FileAddRequest{Path: p, Data: strings.NewReader(content)})
	require.NoError(t, err)
}

func TestAddAndInfo(t *testing.T) {
	s := New(WithClock(tickingClock()))
	ctx := context.Background()

	resp, err := s.AddFile(ctx, filebed.FileAddRequest{Path: "docs/a.txt", Data: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, filebed.FileSimpleInfo{Path: "/docs/a.txt", Name: "a.txt", IsFile: true, URL: "/file/docs/a.txt"}, *resp.Info)

	addText(t, s, "/docs/sub/b.txt", "abc")

	info, err := s.GetFileCompleteInfo(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Info.Size)
	assert.Equal(t, int32(1), info.Info.Count)
	assert.Equal(t, helloMD5, info.Info.MD5)

	dir, err := s.GetFileCompleteInfo(ctx, "/docs/")
	require.NoError(t, err)
	assert.False(t, dir.Info.IsFile)
	assert.Equal(t, int64(8), dir.Info.Size)
	assert.Equal(t, int32(2), dir.Info.Count)
	assert.Empty(t, dir.Info.MD5)

	missing, err := s.GetFileCompleteInfo(ctx, "/nope")
	require.NoError(t, err)
	assert.Nil(t, missing.Info)
}

func TestAddFileIntoDirectory(t *testing.T) {
	s := New()
	resp, err := s.AddFile(context.Background(), filebed.FileAddRequest{Path: "/up/", FileName: "x.bin", Data: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "/up/x.bin", resp.Info.Path)
}

func TestWriteConflicts(t *testing.T) {
	s := New()
	addText(t, s, "/a/b.txt", "1")
	ctx := context.Background()

	_, err := s.AddFile(ctx, filebed.FileAddRequest{Path: "/a", Data: strings.NewReader("x")})
	var serverErr *filebed.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Contains(t, serverErr.Msg, "directory")

	_, err = s.AddFile(ctx, filebed.FileAddRequest{Path: "/a/b.txt/c", Data: strings.NewReader("x")})
	require.ErrorAs(t, err, &serverErr)
	assert.Contains(t, serverErr.Msg, "parent is a file")

	_, err = s.AddFile(ctx, filebed.FileAddRequest{Path: " ", Data: strings.NewReader("x")})
	var vErr *filebed.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestAddURL(t *testing.T) {
	var fetched []string
	s := New(WithFetcher(func(ctx context.Context, link string) ([]byte, error) {
		fetched = append(fetched, link)
		return []byte("hello"), nil
	}))

	resp, err := s.AddURL(context.Background(), filebed.URLAddRequest{Path: "/web/index.html", URL: "http://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "index.html", resp.Info.Name)
	assert.Equal(t, []string{"http://example.com/"}, fetched)

	data, err := s.ReadFile(context.Background(), "/web/index.html")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	failing := New(WithFetcher(func(ctx context.Context, link string) ([]byte, error) {
		return nil, errors.New("unreachable")
	}))
	_, err = failing.AddURL(context.Background(), filebed.URLAddRequest{Path: "/x", URL: "http://down"})
	assert.Error(t, err)
}

func TestListings(t *testing.T) {
	s := New()
	addText(t, s, "/b.txt", "b")
	addText(t, s, "/a/one.txt", "1")
	addText(t, s, "/a/two/three.txt", "3")
	ctx := context.Background()

	root, err := s.ListFileSimpleInfo(ctx, "")
	require.NoError(t, err)
	require.Len(t, root.Infos, 2)
	assert.Equal(t, filebed.FileSimpleInfo{Path: "/a", Name: "a"}, root.Infos[0])
	assert.Equal(t, "/b.txt", root.Infos[1].Path)
	assert.True(t, root.Infos[1].IsFile)

	sub, err := s.ListFileCompleteInfo(ctx, "/a")
	require.NoError(t, err)
	require.Len(t, sub.Infos, 2)
	assert.Equal(t, "/a/one.txt", sub.Infos[0].Path)
	assert.Equal(t, int32(1), sub.Infos[0].Count)
	assert.Equal(t, "/a/two", sub.Infos[1].Path)
	assert.False(t, sub.Infos[1].IsFile)

	single, err := s.ListFileSimpleInfo(ctx, "/b.txt")
	require.NoError(t, err)
	require.Len(t, single.Infos, 1)

	empty, err := s.ListFileSimpleInfo(ctx, "/missing")
	require.NoError(t, err)
	assert.NotNil(t, empty.Infos)
	assert.Empty(t, empty.Infos)

	_, err = s.ListFileCompleteInfo(ctx, "")
	assert.Error(t, err)
}

func TestListLastFileInfo(t *testing.T) {
	s := New(WithClock(tickingClock()), WithLastFileCount(2))
	addText(t, s, "/1.txt", "1")
	addText(t, s, "/2.txt", "2")
	addText(t, s, "/3.txt", "3")

	resp, err := s.ListLastFileInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Infos, 2)
	assert.Equal(t, "/3.txt", resp.Infos[0].Path)
	assert.Equal(t, "/2.txt", resp.Infos[1].Path)
}

func TestRemoveFile(t *testing.T) {
	s := New()
	addText(t, s, "/a/1.txt", "1")
	addText(t, s, "/a/b/2.txt", "2")
	addText(t, s, "/c.txt", "c")
	ctx := context.Background()

	resp, err := s.RemoveFile(ctx, filebed.FileRemoveRequest{Path: "/c.txt"})
	require.NoError(t, err)
	assert.True(t, resp.Info.IsFile)

	resp, err = s.RemoveFile(ctx, filebed.FileRemoveRequest{Path: "/a"})
	require.NoError(t, err)
	assert.False(t, resp.Info.IsFile)

	list, err := s.ListFileSimpleInfo(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, list.Infos)

	_, err = s.RemoveFile(ctx, filebed.FileRemoveRequest{Path: "/a"})
	var serverErr *filebed.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "file not found: /a", serverErr.Msg)

	_, err = s.RemoveFile(ctx, filebed.FileRemoveRequest{Path: "/"})
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	mod := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(tickingClock()))
	require.NoError(t, s.Seed([]devseed.FileSeedEntry{
		{Path: "/old.txt", Content: "hello", LastModified: &mod},
		{Path: "new.bin", Base64: "AAE="},
	}))

	data, err := s.ReadFile(context.Background(), "/new.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, data)

	last, err := s.ListLastFileInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, last.Infos, 2)
	assert.Equal(t, "/new.bin", last.Infos[0].Path)

	assert.Error(t, s.Seed([]devseed.FileSeedEntry{{Content: "x"}}))

	_, err = s.ReadFile(context.Background(), "/missing")
	assert.ErrorIs(t, err, filebed.ErrNotFound)
}

type countingPeer struct {
	*Store
	adds int
	raws []bool
}

func (p *countingPeer) AddFile(ctx context.Context, req filebed.FileAddRequest) (*filebed.FileAddResponse, error) {
	p.adds++
	p.raws = append(p.raws, req.Raw)
	return p.Store.AddFile(ctx, req)
}

func dialTo(peer filebed.Backend, wantSecret string) Dialer {
	return func(ctx context.Context, address, secret string) (filebed.Backend, error) {
		if secret != wantSecret {
			return nil, errors.New("bad secret")
		}
		return peer, nil
	}
}

func TestPushSyncSkipsIdenticalFiles(t *testing.T) {
	peer := &countingPeer{Store: New()}
	addText(t, peer.Store, "/docs/same.txt", "same")
	addText(t, peer.Store, "/docs/changed.txt", "old")

	local := New(WithDialer(dialTo(peer, "s3cret")))
	addText(t, local, "/docs/same.txt", "same")
	addText(t, local, "/docs/changed.txt", "new")
	addText(t, local, "/docs/added.txt", "added")
	addText(t, local, "/other.txt", "outside")

	_, err := local.PushSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer", Secret: "s3cret", Path: "/docs"})
	require.NoError(t, err)
	assert.Equal(t, 2, peer.adds)
	assert.Equal(t, []bool{true, true}, peer.raws)

	data, err := peer.ReadFile(context.Background(), "/docs/changed.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = peer.ReadFile(context.Background(), "/other.txt")
	assert.ErrorIs(t, err, filebed.ErrNotFound)

	_, err = local.PushSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer", Secret: "wrong"})
	assert.Error(t, err)
}

func TestPullSyncWholeTree(t *testing.T) {
	peer := New()
	addText(t, peer, "/a.txt", "a")
	addText(t, peer, "/x/y/z.txt", "z")

	local := New(WithDialer(dialTo(peer, "s")))
	addText(t, local, "/a.txt", "stale")

	_, err := local.PullSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer", Secret: "s"})
	require.NoError(t, err)

	for p, want := range map[string]string{"/a.txt": "a", "/x/y/z.txt": "z"} {
		data, err := local.ReadFile(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
		assert.True(t, local.files[p].raw, "pulled copy of %s stored as raw", p)
	}
}

type urlOnlyPeer struct {
	filebed.Backend
}

func TestPullSyncFetchesFileURLs(t *testing.T) {
	peer := New()
	addText(t, peer, "/docs/a.txt", "a")

	var links []string
	local := New(
		WithDialer(dialTo(urlOnlyPeer{peer}, "s")),
		WithFetcher(func(ctx context.Context, link string) ([]byte, error) {
			links = append(links, link)
			return []byte("fetched"), nil
		}),
	)
	_, err := local.PullSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer:8880/", Secret: "s", Path: "/docs/a.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://peer:8880/file/docs/a.txt"}, links)
}

func TestFileURLsAreEscaped(t *testing.T) {
	peer := New()
	for _, p := range []string{"/docs/a#1.txt", "/docs/what?.txt", "/docs/50%.txt", "/docs/two words.txt"} {
		addText(t, peer, p, "x")
	}

	resp, err := peer.ListFileSimpleInfo(context.Background(), "/docs")
	require.NoError(t, err)
	var urls []string
	for _, info := range resp.Infos {
		urls = append(urls, info.URL)
	}
	assert.ElementsMatch(t, []string{
		"/file/docs/a%231.txt",
		"/file/docs/what%3F.txt",
		"/file/docs/50%25.txt",
		"/file/docs/two%20words.txt",
	}, urls)

	var links []string
	local := New(
		WithDialer(dialTo(urlOnlyPeer{peer}, "s")),
		WithFetcher(func(ctx context.Context, link string) ([]byte, error) {
			links = append(links, link)
			return []byte("x"), nil
		}),
	)
	_, err = local.PullSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer", Secret: "s", Path: "/docs/50%.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://peer/file/docs/50%25.txt"}, links)
}

func TestSyncRequiresDialerAndArguments(t *testing.T) {
	s := New()
	_, err := s.PushSyncFile(context.Background(), filebed.SyncFileRequest{Address: "http://peer", Secret: "s"})
	assert.Error(t, err)

	_, err = s.PullSyncFile(context.Background(), filebed.SyncFileRequest{Address: "", Secret: "s"})
	var vErr *filebed.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "address", vErr.Field)
}
