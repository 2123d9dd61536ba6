// Package extract derives a short summary, highlight lines and a thumbnail
// from newsletter HTML. Everything here is deterministic and free of I/O.
package extract

import (
	"bytes"
	"net/url"

	readability "github.com/go-shiori/go-readability"

	"github.com/hyperifyio/nldigest/internal/rules"
)

// Result is what one extraction over one newsletter page produces.
type Result struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
}

// Extractor turns newsletter HTML into a Result.
type Extractor struct {
	Rules *rules.Classifier
	// Readability consults the go-readability excerpt when no other source
	// yields a summary.
	Readability bool
}

// New returns an Extractor using c, or the default rules when c is nil.
func New(c *rules.Classifier) *Extractor {
	if c == nil {
		c = rules.MustDefault()
	}
	return &Extractor{Rules: c, Readability: true}
}

// Extract parses body and runs every stage. pageURL is only used to resolve
// links inside the readability pass and may be empty.
func (e *Extractor) Extract(body []byte, contentType string, pageURL string) (Result, error) {
	doc, err := Parse(body, contentType)
	if err != nil {
		return Result{}, err
	}
	return e.ExtractDocument(doc, pageURL), nil
}

// ExtractDocument runs every stage on an already parsed document.
func (e *Extractor) ExtractDocument(doc *Document, pageURL string) Result {
	c := e.Rules
	if c == nil {
		c = rules.MustDefault()
	}
	th := c.Thresholds()

	blocks := CollectBlocks(doc.Content, c)
	first := FirstParagraph(doc.Content, c)
	if first == "" {
		first = FirstContentBlock(doc.Content, c)
	}
	in := SummaryInput{
		MetaDescription: doc.MetaDescription(c),
		FirstBlock:      first,
		Blocks:          blocks,
		Title:           doc.Title(),
	}
	summary := SelectSummary(in, th.SummaryTiers, th.MaxSummaryRunes)
	if summary == "" && e.Readability {
		excerpt := c.Sanitize(readabilityExcerpt(doc.Raw, pageURL))
		summary = SelectSummary(SummaryInput{FirstBlock: excerpt}, th.SummaryTiers, th.MaxSummaryRunes)
	}

	return Result{
		Summary:    summary,
		Highlights: ExtractHighlights(doc.Content, c, blocks),
		Thumbnail:  ExtractThumbnail(doc.Content, th.ThumbnailSkip),
	}
}

func readabilityExcerpt(raw []byte, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		base = &url.URL{Scheme: "https", Host: "localhost"}
	}
	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err != nil {
		return ""
	}
	return article.Excerpt
}
