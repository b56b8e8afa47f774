package filebed

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/filebed/filebed_sdk_go/pkg/auth"
)

const (
	EnvAPIURL       = "FILEBED_API_URL"
	EnvSecret       = "FILEBED_SECRET"
	EnvToken        = "FILEBED_TOKEN"
	EnvLocalFixture = "FILEBED_LOCAL_FIXTURE"
)

// NewFromEnv initialises an HTTP client from the FILEBED_* environment
// variables. Options given by the caller are applied after the ones
// derived from the environment.
func NewFromEnv(opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv(EnvAPIURL))
	if baseURL == "" {
		return nil, fmt.Errorf("filebed: HTTP mode requires %s", EnvAPIURL)
	}
	envOpts, err := OptionsFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := New(baseURL, append(envOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("filebed: init HTTP client: %w", err)
	}
	return client, nil
}

// OptionsFromEnv returns the token source and fixture mode selected by
// the environment.
func OptionsFromEnv() ([]Option, error) {
	var opts []Option
	if ts := TokenSourceFromEnv(); ts != nil {
		opts = append(opts, WithTokenSource(ts))
	}
	if raw := strings.TrimSpace(os.Getenv(EnvLocalFixture)); raw != "" {
		fixture, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("filebed: invalid %s value %q", EnvLocalFixture, raw)
		}
		opts = append(opts, WithLocalFixtureMode(fixture))
	}
	return opts, nil
}

// TokenSourceFromEnv prefers a pre-issued FILEBED_TOKEN and falls back to
// minting tokens with FILEBED_SECRET. It returns nil when neither is set.
func TokenSourceFromEnv() auth.TokenSource {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return auth.StaticToken(token)
	}
	if secret := os.Getenv(EnvSecret); secret != "" {
		return auth.NewJWTSource(secret)
	}
	return nil
}
