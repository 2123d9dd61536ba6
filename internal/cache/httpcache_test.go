package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLookupBody(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://stib.ee/abc"
	if err := c.Save(ctx, Entry{URL: url, ContentType: "text/html", ETag: `"v1"`}, []byte("<p>hi</p>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	e, err := c.Lookup(ctx, url)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if e.ETag != `"v1"` || e.ContentType != "text/html" || e.SavedAt.IsZero() {
		t.Fatalf("unexpected entry: %+v", e)
	}
	body, err := c.Body(ctx, url)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if string(body) != "<p>hi</p>" {
		t.Fatalf("body=%q", body)
	}
}

func TestHTTPCache_LookupMissing(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	_, err := c.Lookup(context.Background(), "https://example.org/none")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestHTTPCache_Unconfigured(t *testing.T) {
	t.Parallel()
	var c *HTTPCache
	if _, err := c.Lookup(context.Background(), "https://example.org"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	url := "https://example.com/x"
	if err := c.Save(context.Background(), Entry{URL: url}, []byte("hello")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(c.bodyPath(url))
	if err != nil {
		t.Fatalf("stat body: %v", err)
	}
	if got := finfo.Mode().Perm(); got != 0o600 {
		t.Fatalf("body mode = %o, want 0600", got)
	}
}

func TestPurge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := c.Save(ctx, Entry{URL: "https://a/old", SavedAt: now.Add(-48 * time.Hour)}, []byte("old")); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := c.Save(ctx, Entry{URL: "https://a/new", SavedAt: now.Add(-time.Hour)}, []byte("new")); err != nil {
		t.Fatalf("save new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.meta.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write broken meta: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "orphan.body"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	removed, err := c.Purge(24*time.Hour, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed=%d, want 2 (old and broken)", removed)
	}
	if _, err := c.Body(ctx, "https://a/old"); err == nil {
		t.Fatalf("expected old body removed")
	}
	if _, err := c.Body(ctx, "https://a/new"); err != nil {
		t.Fatalf("expected new body kept: %v", err)
	}
	for _, name := range []string{"broken.meta.json", "orphan.body"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", name, err)
		}
	}
}

func TestPurge_MissingDirAndDisabled(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: filepath.Join(t.TempDir(), "absent")}
	if n, err := c.Purge(time.Hour, time.Now()); err != nil || n != 0 {
		t.Fatalf("purge missing dir: n=%d err=%v", n, err)
	}
	if n, err := (&HTTPCache{}).Purge(0, time.Now()); err != nil || n != 0 {
		t.Fatalf("purge disabled: n=%d err=%v", n, err)
	}
}

func TestClear_KeepsForeignFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), Entry{URL: "https://a/x"}, []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "README" {
		t.Fatalf("expected only README left, got %v", entries)
	}
	if err := (&HTTPCache{}).Clear(); err == nil {
		t.Fatalf("expected error for unconfigured cache")
	}
}

func TestClear_StrictPermsRestoresMode(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
}
