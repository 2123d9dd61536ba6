package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractThumbnail returns the first usable <img> src after skipping the
// leading skip images (usually the masthead logo). When none qualifies it
// scans again from the first image.
func ExtractThumbnail(doc *goquery.Document, skip int) string {
	imgs := doc.Find("img")
	if skip < 0 {
		skip = 0
	}
	if u := firstImageURL(imgs, skip); u != "" {
		return u
	}
	return firstImageURL(imgs, 0)
}

func firstImageURL(imgs *goquery.Selection, from int) string {
	for i := from; i < imgs.Length(); i++ {
		src, _ := imgs.Eq(i).Attr("src")
		if u := NormalizeImageURL(src); u != "" {
			return u
		}
	}
	return ""
}

// NormalizeImageURL accepts absolute http(s) URLs and upgrades
// protocol-relative ones to https. Everything else, relative paths and
// data URIs included, yields "".
func NormalizeImageURL(src string) string {
	src = strings.TrimSpace(src)
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(src, "//"):
		if len(src) == len("//") {
			return ""
		}
		return "https:" + src
	case strings.HasPrefix(lower, "https://"):
		if len(src) == len("https://") {
			return ""
		}
		return "https://" + src[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		if len(src) == len("http://") {
			return ""
		}
		return "http://" + src[len("http://"):]
	}
	return ""
}
