// Package devseed loads fixture files used to pre-populate the in-memory
// file bed for local development and the sandbox.
package devseed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// FileSeedEntry describes one file. Content holds plain text, Base64 holds
// binary data; at most one of them may be set. URL records the source the
// file was registered from.
type FileSeedEntry struct {
	Path         string     `json:"path" yaml:"path"`
	Content      string     `json:"content,omitempty" yaml:"content,omitempty"`
	Base64       string     `json:"base64,omitempty" yaml:"base64,omitempty"`
	URL          string     `json:"url,omitempty" yaml:"url,omitempty"`
	Raw          bool       `json:"raw,omitempty" yaml:"raw,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
}

// Bytes returns the decoded file contents.
func (e FileSeedEntry) Bytes() ([]byte, error) {
	if e.Content != "" && e.Base64 != "" {
		return nil, fmt.Errorf("devseed: %s sets both content and base64", e.Path)
	}
	if e.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(e.Base64)
		if err != nil {
			return nil, fmt.Errorf("devseed: decode base64 for %s: %w", e.Path, err)
		}
		return data, nil
	}
	return []byte(e.Content), nil
}

// LoadFileSeed reads a JSON or YAML (by .yaml/.yml extension) array of
// entries from path.
func LoadFileSeed(path string) ([]FileSeedEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}

	var entries []FileSeedEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	default:
		err = json.Unmarshal(raw, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("devseed: decode %s: %w", path, err)
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("devseed: entry %d missing path", i)
		}
	}
	return entries, nil
}
