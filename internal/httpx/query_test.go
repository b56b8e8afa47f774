package httpx

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepeatedKeysSlices(t *testing.T) {
	values, err := RepeatedKeys(map[string]any{"path": []string{"a", "b"}})
	require.NoError(t, err)

	encoded := values.Encode()
	assert.Equal(t, "path=a&path=b", encoded)
	assert.NotContains(t, encoded, "%5B")
	assert.NotContains(t, encoded, "[")
}

func TestRepeatedKeysStruct(t *testing.T) {
	type params struct {
		Path  []string `url:"path"`
		Limit int      `url:"limit,omitempty"`
		Empty string   `url:"empty,omitempty"`
	}
	values, err := RepeatedKeys(params{Path: []string{"/x", "/y"}})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"path": {"/x", "/y"}}, values)
}

func TestRepeatedKeysMaps(t *testing.T) {
	values, err := RepeatedKeys(map[string]string{"path": "/docs"})
	require.NoError(t, err)
	assert.Equal(t, "path=%2Fdocs", values.Encode())

	src := url.Values{"k": {"1", "2"}}
	values, err = RepeatedKeys(src)
	require.NoError(t, err)
	values.Add("k", "3")
	assert.Len(t, src["k"], 2, "input must not be mutated")

	values, err = RepeatedKeys(nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRepeatedKeysRejectsScalars(t *testing.T) {
	_, err := RepeatedKeys(42)
	assert.Error(t, err)
}
