package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	metaSuffix = ".meta.json"
	bodySuffix = ".body"
	tmpSuffix  = ".tmp"
)

// isCacheFile reports names this package writes. Anything else in Dir is
// left alone.
func isCacheFile(name string) bool {
	return strings.HasSuffix(name, metaSuffix) ||
		strings.HasSuffix(name, bodySuffix) ||
		strings.HasSuffix(name, metaSuffix+tmpSuffix)
}

// Clear deletes every cached page and leaves Dir in place with the
// configured permissions.
func (c *HTTPCache) Clear() error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isCacheFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.Dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Purge drops pages saved more than maxAge before now and returns how many
// were removed. A page whose metadata cannot be decoded counts as stale, and
// a body with no metadata beside it is removed without being counted.
func (c *HTTPCache) Purge(maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	if c == nil || c.Dir == "" {
		return 0, errors.New("cache dir not configured")
	}
	entries, err := os.ReadDir(c.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	metas := make(map[string]struct{})
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, metaSuffix) {
			continue
		}
		stem := strings.TrimSuffix(name, metaSuffix)
		if !c.stale(filepath.Join(c.Dir, name), maxAge, now) {
			metas[stem] = struct{}{}
			continue
		}
		_ = os.Remove(filepath.Join(c.Dir, name))
		_ = os.Remove(filepath.Join(c.Dir, stem+bodySuffix))
		removed++
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, bodySuffix) {
			continue
		}
		if _, ok := metas[strings.TrimSuffix(name, bodySuffix)]; !ok {
			_ = os.Remove(filepath.Join(c.Dir, name))
		}
	}
	return removed, nil
}

func (c *HTTPCache) stale(metaPath string, maxAge time.Duration, now time.Time) bool {
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return true
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.SavedAt.IsZero() {
		return true
	}
	return now.Sub(e.SavedAt) > maxAge
}
