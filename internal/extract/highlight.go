package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/nldigest/internal/rules"
	"github.com/hyperifyio/nldigest/internal/text"
)

const (
	headingSelector  = "h1, h2, h3, h4, h5, h6"
	emphasisSelector = "strong, b"
	boldWeight       = 700
)

var (
	numberedPrefix = regexp.MustCompile(`^\d{1,2}\s*[.)]\s*\S`)
	colonClause    = regexp.MustCompile(`^[^:：]+[:：]\s*\S`)
	bareURL        = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)
)

// ExtractHighlights returns up to MaxHighlights heading-like lines. When no
// heading or emphasized line qualifies it falls back to the first
// FallbackHighlights entries of blocks.
func ExtractHighlights(doc *goquery.Document, c *rules.Classifier, blocks []string) []string {
	th := c.Thresholds()
	set := newHighlightSet(c, th.MaxHighlights)

	headings := make(map[*html.Node]struct{})
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isHeadingLike(s, th) {
			return true
		}
		headings[s.Get(0)] = struct{}{}
		set.add(nodeText(s), true)
		return !set.full()
	})

	doc.Find(emphasisSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if set.full() {
			return false
		}
		if _, ok := headings[s.Get(0)]; ok {
			return true
		}
		if s.ParentsFiltered(headingSelector).Length() > 0 {
			return true
		}
		set.add(nodeText(s), false)
		return true
	})

	if len(set.items) > 0 {
		return set.items
	}
	n := th.FallbackHighlights
	if n > len(blocks) {
		n = len(blocks)
	}
	if n <= 0 {
		return nil
	}
	return append([]string(nil), blocks[:n]...)
}

// IsHighlightCandidate applies the highlight filter. Heading-derived text
// only needs to pass the shared checks unless the rules set
// ShapeRuleForHeadings; other text must also look like a numbered item or a
// "keyword: clause" line.
func IsHighlightCandidate(c *rules.Classifier, s string, fromHeading bool) bool {
	th := c.Thresholds()
	n := text.Len(s)
	if n < th.MinHighlightRunes || n > th.MaxHighlightRunes {
		return false
	}
	if c.IsPlaceholder(s) || bareURL.MatchString(s) || c.HasStopPrefix(s) || c.IsExcluded(s) {
		return false
	}
	if !hasLetter(s) || c.HasBulletPrefix(s) {
		return false
	}
	if fromHeading && !c.Rules().ShapeRuleForHeadings {
		return true
	}
	if numberedPrefix.MatchString(s) {
		return true
	}
	return colonClause.MatchString(s) && c.HasKeyword(s)
}

// HighlightKey is the dedup key: NFKC, lowercase, whitespace and punctuation
// removed, trailing honorific stripped.
func HighlightKey(c *rules.Classifier, s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || r == '`' || r == '´' {
			continue
		}
		b.WriteRune(r)
	}
	return c.StripHonorific(b.String())
}

type highlightSet struct {
	c     *rules.Classifier
	limit int
	seen  map[string]struct{}
	items []string
}

func newHighlightSet(c *rules.Classifier, limit int) *highlightSet {
	return &highlightSet{c: c, limit: limit, seen: make(map[string]struct{})}
}

func (h *highlightSet) full() bool { return len(h.items) >= h.limit }

func (h *highlightSet) add(s string, fromHeading bool) {
	if h.full() || !IsHighlightCandidate(h.c, s, fromHeading) {
		return
	}
	key := HighlightKey(h.c, s)
	if _, ok := h.seen[key]; ok {
		return
	}
	h.seen[key] = struct{}{}
	h.items = append(h.items, s)
}

func isHeadingLike(s *goquery.Selection, th rules.Thresholds) bool {
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	style, ok := s.Attr("style")
	if !ok {
		return false
	}
	size, weight := parseFontStyle(style)
	if size >= th.PrimaryFontSizePx {
		return true
	}
	return size >= th.SecondaryFontSizePx && weight >= th.MinFontWeight
}

// parseFontStyle reads font-size (px) and font-weight from an inline style.
// Missing or unparseable values are zero.
func parseFontStyle(style string) (sizePx float64, weight int) {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		switch prop {
		case "font-size":
			if num, ok := strings.CutSuffix(val, "px"); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(num), 64); err == nil {
					sizePx = f
				}
			}
		case "font-weight":
			switch val {
			case "bold", "bolder":
				weight = boldWeight
			default:
				if n, err := strconv.Atoi(val); err == nil {
					weight = n
				}
			}
		}
	}
	return sizePx, weight
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
