// Package cache keeps fetched newsletter pages on disk so repeated runs can
// revalidate with conditional requests instead of downloading every issue
// again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the metadata stored next to a cached body.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache stores each page as <sha256(url)>.meta.json and <sha256(url)>.body.
type HTTPCache struct {
	Dir string
	// StrictPerms creates the directory 0700 and files 0600.
	StrictPerms bool
}

func (c *HTTPCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(c.Dir, c.dirPerm()); err != nil {
		return err
	}
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode().Perm() != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *HTTPCache) dirPerm() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *HTTPCache) filePerm() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *HTTPCache) metaPath(url string) string { return filepath.Join(c.Dir, key(url)+metaSuffix) }
func (c *HTTPCache) bodyPath(url string) string { return filepath.Join(c.Dir, key(url)+bodySuffix) }

// Lookup returns the metadata for url, or os.ErrNotExist.
func (c *HTTPCache) Lookup(_ context.Context, url string) (Entry, error) {
	if err := c.ensureDir(); err != nil {
		return Entry{}, err
	}
	b, err := os.ReadFile(c.metaPath(url))
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache meta: %w", err)
	}
	return e, nil
}

// Body returns the cached body for url.
func (c *HTTPCache) Body(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(url))
}

// Save writes the body first and the metadata last, so a meta file always
// points at a complete body.
func (c *HTTPCache) Save(_ context.Context, e Entry, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	if err := os.WriteFile(c.bodyPath(e.URL), body, c.filePerm()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	meta, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := c.metaPath(e.URL) + tmpSuffix
	if err := os.WriteFile(tmp, meta, c.filePerm()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(e.URL))
}
