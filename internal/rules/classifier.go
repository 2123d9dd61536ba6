package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/nldigest/internal/text"
)

// Classifier is a compiled, read-only view of Rules.
type Classifier struct {
	rules        Rules
	ignored      map[string]struct{}
	placeholders []*regexp.Regexp
	exclusions   []*regexp.Regexp
}

// Compile validates every pattern and returns a Classifier.
func (r Rules) Compile() (*Classifier, error) {
	if err := r.Thresholds.validate(); err != nil {
		return nil, err
	}
	c := &Classifier{rules: r, ignored: make(map[string]struct{}, len(r.IgnoredSummaries))}
	for _, s := range r.IgnoredSummaries {
		if n := text.Normalize(s); n != "" {
			c.ignored[n] = struct{}{}
		}
	}
	var err error
	if c.placeholders, err = compileAll("placeholder", r.PlaceholderPatterns); err != nil {
		return nil, err
	}
	if c.exclusions, err = compileAll("exclusion", r.ExclusionPatterns); err != nil {
		return nil, err
	}
	return c, nil
}

// MustDefault compiles Default and panics on error. The built-in patterns
// are covered by tests, so a panic here is a programming error.
func MustDefault() *Classifier {
	c, err := Default().Compile()
	if err != nil {
		panic(err)
	}
	return c
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Rules returns the source rule set.
func (c *Classifier) Rules() Rules { return c.rules }

// Thresholds returns the numeric knobs.
func (c *Classifier) Thresholds() Thresholds { return c.rules.Thresholds }

// IsPlaceholder reports whether s looks like boilerplate rather than content.
func (c *Classifier) IsPlaceholder(s string) bool {
	if s == "" {
		return false
	}
	for _, re := range c.placeholders {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Sanitize returns the normalized text, or "" when it is an ignored phrase
// or a placeholder.
func (c *Classifier) Sanitize(s string) string {
	cleaned := text.Normalize(s)
	if cleaned == "" {
		return ""
	}
	if _, ok := c.ignored[cleaned]; ok {
		return ""
	}
	if c.IsPlaceholder(cleaned) {
		return ""
	}
	return cleaned
}

// IsExcluded reports a match against the highlight exclusion list.
func (c *Classifier) IsExcluded(s string) bool {
	for _, re := range c.exclusions {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// HasStopPrefix reports whether s opens with a boilerplate phrase.
func (c *Classifier) HasStopPrefix(s string) bool {
	for _, p := range c.rules.StopPrefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// HasKeyword reports whether s contains one of the domain keywords.
func (c *Classifier) HasKeyword(s string) bool {
	for _, k := range c.rules.Keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// HasBulletPrefix reports whether s starts with a bullet glyph.
func (c *Classifier) HasBulletPrefix(s string) bool {
	for _, g := range c.rules.BulletGlyphs {
		if g != "" && strings.HasPrefix(s, g) {
			return true
		}
	}
	return false
}

// StripHonorific removes one trailing honorific suffix from key.
func (c *Classifier) StripHonorific(key string) string {
	for _, h := range c.rules.Honorifics {
		if h != "" && strings.HasSuffix(key, h) {
			return strings.TrimSuffix(key, h)
		}
	}
	return key
}
