// Package store reads and writes the newsletter collection, a single JSON
// array of records. Keys the pipeline does not manage are carried through
// untouched and in their original order.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Field names managed by the pipeline.
const (
	FieldTitle       = "title"
	FieldPublishDate = "publishDate"
	FieldLink        = "link"
	FieldSummary     = "summary"
	FieldHighlights  = "highlights"
	FieldThumbnail   = "thumbnail"
	// FieldBadges is the legacy classification list removed by --clear-badges.
	FieldBadges = "badges"
)

var knownOrder = []string{FieldTitle, FieldPublishDate, FieldLink, FieldSummary, FieldHighlights, FieldThumbnail}

// Record is one newsletter issue.
type Record struct {
	Title       string
	PublishDate string
	Link        string
	Summary     string
	Highlights  []string
	Thumbnail   string

	order []string
	extra map[string]json.RawMessage
}

// ID returns the record's id field as text, or "" when absent.
func (r *Record) ID() string {
	raw, ok := r.extra["id"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// Extra returns the raw value of an unmanaged field.
func (r *Record) Extra(key string) (json.RawMessage, bool) {
	v, ok := r.extra[key]
	return v, ok
}

// SetExtra stores a raw value for an unmanaged field.
func (r *Record) SetExtra(key string, v json.RawMessage) {
	if r.extra == nil {
		r.extra = map[string]json.RawMessage{}
	}
	r.extra[key] = v
}

// Delete removes an unmanaged field.
func (r *Record) Delete(key string) {
	delete(r.extra, key)
}

// HasLink reports whether the record points at a fetchable page.
func (r *Record) HasLink() bool { return strings.TrimSpace(r.Link) != "" }

// NeedsSummary reports whether the summary is missing or blank.
func (r *Record) NeedsSummary() bool { return strings.TrimSpace(r.Summary) == "" }

func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("record: expected object")
	}
	*r = Record{extra: map[string]json.RawMessage{}}
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record field %q: %w", key, err)
		}
		if !seen[key] {
			r.order = append(r.order, key)
			seen[key] = true
		}
		var dst any
		switch key {
		case FieldTitle:
			dst = &r.Title
		case FieldPublishDate:
			dst = &r.PublishDate
		case FieldLink:
			dst = &r.Link
		case FieldSummary:
			dst = &r.Summary
		case FieldHighlights:
			dst = &r.Highlights
		case FieldThumbnail:
			dst = &r.Thumbnail
		default:
			r.extra[key] = raw
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("record field %q: %w", key, err)
		}
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON writes fields in their original order. Managed fields that
// are empty are omitted, except title, publishDate and link which are kept
// whenever they were present.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	written := map[string]bool{}
	emit := func(key string) error {
		if written[key] {
			return nil
		}
		var raw []byte
		if isKnown(key) {
			v, ok := r.known(key, containsKey(r.order, key))
			if !ok {
				return nil
			}
			b, err := encode(v)
			if err != nil {
				return fmt.Errorf("record field %q: %w", key, err)
			}
			raw = b
		} else {
			v, ok := r.extra[key]
			if !ok {
				return nil
			}
			raw = v
		}
		if len(written) > 0 {
			buf.WriteByte(',')
		}
		k, _ := encode(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		written[key] = true
		return nil
	}
	for _, k := range r.order {
		if err := emit(k); err != nil {
			return nil, err
		}
	}
	for _, k := range knownOrder {
		if err := emit(k); err != nil {
			return nil, err
		}
	}
	rest := make([]string, 0, len(r.extra))
	for k := range r.extra {
		if !written[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := emit(k); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) known(key string, present bool) (any, bool) {
	switch key {
	case FieldTitle:
		return r.Title, present || r.Title != ""
	case FieldPublishDate:
		return r.PublishDate, present || r.PublishDate != ""
	case FieldLink:
		return r.Link, present || r.Link != ""
	case FieldSummary:
		return r.Summary, r.Summary != ""
	case FieldHighlights:
		return r.Highlights, len(r.Highlights) > 0
	case FieldThumbnail:
		return r.Thumbnail, r.Thumbnail != ""
	}
	return nil, false
}

func isKnown(key string) bool { return containsKey(knownOrder, key) }

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// encode marshals v without escaping <, > and &.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Load reads the whole collection from path.
func Load(path string) ([]*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []*Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Save writes records to path as a two-space indented array with a trailing
// newline. The file is replaced atomically.
func Save(path string, records []*Record) error {
	if records == nil {
		records = []*Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
