package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/nldigest/internal/rules"
	"github.com/hyperifyio/nldigest/internal/text"
)

const (
	// Stibee wraps the mail body in this container; the rest of the page is
	// archive chrome.
	emailContentSelector = "div.email-content"
	nonContentSelector   = "script, style, noscript, template"
)

var metaDescriptionSelectors = []string{
	"meta[name='description']",
	"meta[name='twitter:description']",
	"meta[property='og:description']",
}

// Document is a parsed newsletter page. Content is the scoped mail body, or
// the whole page when no mail container exists. Page keeps the head for
// meta tags and the title.
type Document struct {
	Page    *goquery.Document
	Content *goquery.Document
	// Raw is the page decoded to UTF-8.
	Raw []byte
}

// Parse decodes body using contentType for charset detection and builds
// the query trees.
func Parse(body []byte, contentType string) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := &Document{Page: page, Content: page, Raw: decoded}
	if scoped := page.Find(emailContentSelector).First(); scoped.Length() > 0 {
		if markup, err := scoped.Html(); err == nil && strings.TrimSpace(markup) != "" {
			if content, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
				doc.Content = content
			}
		}
	}
	doc.Content.Find(nonContentSelector).Remove()
	return doc, nil
}

// Title returns the normalized page title, falling back to og:title.
func (d *Document) Title() string {
	if t := text.Normalize(d.Page.Find("title").First().Text()); t != "" {
		return t
	}
	if v, ok := d.Page.Find("meta[property='og:title']").First().Attr("content"); ok {
		return text.Normalize(v)
	}
	return ""
}

// MetaDescription returns the first description meta tag that survives
// sanitizing.
func (d *Document) MetaDescription(c *rules.Classifier) string {
	for _, sel := range metaDescriptionSelectors {
		v, ok := d.Page.Find(sel).First().Attr("content")
		if !ok {
			continue
		}
		if s := c.Sanitize(v); s != "" {
			return s
		}
	}
	return ""
}

func nodeText(s *goquery.Selection) string {
	return text.Normalize(s.Text())
}
