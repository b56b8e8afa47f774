package filebed_sdk

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/filebed/filebed_sdk_go/internal/devseed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed/mock"
)

const (
	EnvMode     = "FILEBED_RUNTIME_MODE"
	EnvMockSeed = "FILEBED_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// NewFromEnv initialises a client according to FILEBED_RUNTIME_MODE and
// returns the resolved mode ("http" or "mock"). An unset mode means auto.
func NewFromEnv(opts ...filebed.Option) (*filebed.Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(EnvMode)))
	apiURL := strings.TrimSpace(os.Getenv(filebed.EnvAPIURL))

	switch mode {
	case "", ModeAuto:
		if apiURL != "" {
			return newHTTPClient(opts)
		}
		return newMockClient(opts)
	case ModeHTTP:
		if apiURL == "" {
			return nil, "", fmt.Errorf("filebed_sdk: HTTP mode requires %s", filebed.EnvAPIURL)
		}
		return newHTTPClient(opts)
	case ModeMock:
		return newMockClient(opts)
	default:
		return nil, "", fmt.Errorf("filebed_sdk: unsupported %s value %q", EnvMode, mode)
	}
}

func newHTTPClient(opts []filebed.Option) (*filebed.Client, string, error) {
	client, err := filebed.NewFromEnv(opts...)
	if err != nil {
		return nil, "", err
	}
	return client, ModeHTTP, nil
}

func newMockClient(opts []filebed.Option) (*filebed.Client, string, error) {
	store, err := NewMockStore()
	if err != nil {
		return nil, "", err
	}
	return filebed.NewWithBackend(store, opts...), ModeMock, nil
}

// NewMockStore returns an in-memory store that synchronises with HTTP
// peers and is seeded from FILEBED_MOCK_SEED when set.
func NewMockStore(opts ...mock.Option) (*mock.Store, error) {
	return NewSeededMockStore(os.Getenv(EnvMockSeed), opts...)
}

// NewSeededMockStore is NewMockStore with an explicit seed file. A blank
// seed leaves the store empty.
func NewSeededMockStore(seed string, opts ...mock.Option) (*mock.Store, error) {
	base := []mock.Option{
		mock.WithDialer(func(ctx context.Context, address, secret string) (filebed.Backend, error) {
			return filebed.Dial(ctx, address, secret)
		}),
		mock.WithFetcher(filebed.FetchURL),
	}
	store := mock.New(append(base, opts...)...)
	if path := strings.TrimSpace(seed); path != "" {
		entries, err := devseed.LoadFileSeed(path)
		if err != nil {
			return nil, fmt.Errorf("filebed_sdk: load seed: %w", err)
		}
		if err := store.Seed(entries); err != nil {
			return nil, fmt.Errorf("filebed_sdk: apply seed: %w", err)
		}
	}
	return store, nil
}
