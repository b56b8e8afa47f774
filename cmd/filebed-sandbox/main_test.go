package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed_sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadConfigLayers(t *testing.T) {
	cfgPath := writeFile(t, "filebed.yaml", "secret: from-file\nsandbox:\n  addr: \":9000\"\n")
	t.Setenv(filebed.EnvSecret, "")

	cfg, err := loadConfig([]string{"--config", cfgPath})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Secret)
	assert.Equal(t, ":9000", cfg.Sandbox.Addr)

	t.Setenv(filebed.EnvSecret, "from-env")
	cfg, err = loadConfig([]string{"--config", cfgPath})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secret)

	cfg, err = loadConfig([]string{"--config", cfgPath, "--secret", "from-flag", "--addr", ":7000"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Secret)
	assert.Equal(t, ":7000", cfg.Sandbox.Addr)
}

func TestNewStoreUsesOneSeed(t *testing.T) {
	envSeed := writeFile(t, "env.json", `[{"path":"/env.txt","content":"env"}]`)
	flagSeed := writeFile(t, "flag.json", `[{"path":"/flag.txt","content":"flag"}]`)
	cfgPath := writeFile(t, "filebed.yaml", "log_level: error\n")
	t.Setenv(filebed_sdk.EnvMockSeed, envSeed)
	ctx := context.Background()

	cfg, err := loadConfig([]string{"--config", cfgPath, "--seed", flagSeed})
	require.NoError(t, err)
	store, err := newStore(cfg)
	require.NoError(t, err)
	data, err := store.ReadFile(ctx, "/flag.txt")
	require.NoError(t, err)
	assert.Equal(t, "flag", string(data))
	_, err = store.ReadFile(ctx, "/env.txt")
	assert.ErrorIs(t, err, filebed.ErrNotFound)

	cfg, err = loadConfig([]string{"--config", cfgPath})
	require.NoError(t, err)
	store, err = newStore(cfg)
	require.NoError(t, err)
	data, err = store.ReadFile(ctx, "/env.txt")
	require.NoError(t, err)
	assert.Equal(t, "env", string(data))
}
