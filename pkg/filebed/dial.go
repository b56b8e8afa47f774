package filebed

import (
	"context"
	"fmt"

	"github.com/filebed/filebed_sdk_go/internal/httpx"
	"github.com/filebed/filebed_sdk_go/pkg/auth"
	"github.com/go-resty/resty/v2"
)

// Dial returns an HTTP backend for the peer instance at address, signing
// request tokens with the peer's secret.
func Dial(ctx context.Context, address, secret string, opts ...Option) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := []Option{WithTokenSource(auth.NewJWTSource(secret))}
	client, err := New(address, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return client.Backend(), nil
}

// FetchURL downloads the body behind link.
func FetchURL(ctx context.Context, link string) ([]byte, error) {
	resp, err := resty.New().
		SetTimeout(httpx.DefaultTimeout).
		R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, fmt.Errorf("filebed: fetch %s: %w", link, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("filebed: fetch %s: unexpected status %d", link, resp.StatusCode())
	}
	return resp.Body(), nil
}
