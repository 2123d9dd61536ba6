package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/nldigest/internal/rules"
	"github.com/hyperifyio/nldigest/internal/text"
)

const (
	blockSelector        = "p, li, span, div"
	paragraphSelector    = "p"
	contentBlockSelector = "p, span, li, strong, h1, h2, h3, div"
)

// CollectBlocks returns the normalized text of every block node that is long
// enough and not boilerplate, deduplicated by exact text, in document order.
func CollectBlocks(doc *goquery.Document, c *rules.Classifier) []string {
	minRunes := c.Thresholds().MinBlockRunes
	seen := make(map[string]struct{})
	var out []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		t := nodeText(s)
		if text.Len(t) < minRunes || c.IsPlaceholder(t) {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	})
	return out
}

// FirstParagraph returns the first <p> with real content, or "".
func FirstParagraph(doc *goquery.Document, c *rules.Classifier) string {
	return firstMatching(doc, paragraphSelector, c)
}

// FirstContentBlock is FirstParagraph widened to inline and heading nodes,
// for mails that never use <p>.
func FirstContentBlock(doc *goquery.Document, c *rules.Classifier) string {
	return firstMatching(doc, contentBlockSelector, c)
}

func firstMatching(doc *goquery.Document, selector string, c *rules.Classifier) string {
	minRunes := c.Thresholds().MinParagraphRunes
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := nodeText(s)
		if text.Len(t) >= minRunes && !c.IsPlaceholder(t) {
			found = t
			return false
		}
		return true
	})
	return found
}
