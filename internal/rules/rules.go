// Package rules holds the heuristic rule sets used by the extractor. The
// lists are plain data: a YAML or JSON file can extend them without touching
// extraction code.
package rules

import "fmt"

// Rules is the serializable form of every pattern list and threshold the
// extractor consults.
type Rules struct {
	// Replace makes list fields in an overlay file replace the defaults
	// instead of being appended to them.
	Replace bool `yaml:"replace" json:"replace"`

	// IgnoredSummaries are exact (normalized) phrases that never qualify as
	// a summary.
	IgnoredSummaries []string `yaml:"ignoredSummaries" json:"ignoredSummaries"`
	// PlaceholderPatterns are regular expressions describing footer, legal
	// and unsubscribe boilerplate.
	PlaceholderPatterns []string `yaml:"placeholderPatterns" json:"placeholderPatterns"`

	StopPrefixes      []string `yaml:"stopPrefixes" json:"stopPrefixes"`
	ExclusionPatterns []string `yaml:"exclusionPatterns" json:"exclusionPatterns"`
	Keywords          []string `yaml:"keywords" json:"keywords"`
	Honorifics        []string `yaml:"honorifics" json:"honorifics"`
	BulletGlyphs      []string `yaml:"bulletGlyphs" json:"bulletGlyphs"`

	// ShapeRuleForHeadings also applies the numbered-item or "keyword: clause"
	// rule to heading candidates. Off by default.
	ShapeRuleForHeadings bool `yaml:"shapeRuleForHeadings" json:"shapeRuleForHeadings"`

	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// Thresholds are the numeric knobs. In Merge a zero value keeps the default;
// LoadFile honours explicit zeros.
type Thresholds struct {
	MinBlockRunes      int   `yaml:"minBlockRunes" json:"minBlockRunes"`
	MinParagraphRunes  int   `yaml:"minParagraphRunes" json:"minParagraphRunes"`
	SummaryTiers       []int `yaml:"summaryTiers" json:"summaryTiers"`
	MaxSummaryRunes    int   `yaml:"maxSummaryRunes" json:"maxSummaryRunes"`
	MinHighlightRunes  int   `yaml:"minHighlightRunes" json:"minHighlightRunes"`
	MaxHighlightRunes  int   `yaml:"maxHighlightRunes" json:"maxHighlightRunes"`
	MaxHighlights      int   `yaml:"maxHighlights" json:"maxHighlights"`
	FallbackHighlights int   `yaml:"fallbackHighlights" json:"fallbackHighlights"`

	PrimaryFontSizePx   float64 `yaml:"primaryFontSizePx" json:"primaryFontSizePx"`
	SecondaryFontSizePx float64 `yaml:"secondaryFontSizePx" json:"secondaryFontSizePx"`
	MinFontWeight       int     `yaml:"minFontWeight" json:"minFontWeight"`

	// ThumbnailSkip is the number of leading images treated as a logo.
	ThumbnailSkip int `yaml:"thumbnailSkip" json:"thumbnailSkip"`
}

// Default returns the built-in rule set tuned for Stibee-hosted newsletters.
func Default() Rules {
	return Rules{
		IgnoredSummaries: []string{
			"이 메일은 스티비로 만들었습니다",
		},
		PlaceholderPatterns: []string{
			`이 메일은 스티비로 만들었습니다`,
			`수신을 원치 않으시면`,
			`이 메일을 받은 기억이 없으신가요`,
			`이 메일[^\n]*안 ?보이시나요`,
			`수신\s?거부`,
			`웹에서 보기`,
			`(?i)\bunsubscribe\b`,
			`(?i)view (this email )?in (your )?browser`,
			`(?i)\b(made|built|sent) with [a-z0-9]+`,
			`(?i)\bpowered by [a-z0-9]+`,
			`(?i)@media\s*(only\s+)?(screen|print|all|\()`,
			`(?i)\b(max|min)-width\s*:\s*\d+px`,
			`(?i)^(best regards|kind regards|sincerely|sent from my)\b`,
		},
		StopPrefixes: []string{
			"함께 연대하며",
			"일시:",
			"일시 :",
			"장소:",
			"장소 :",
			"문의:",
			"문의 :",
			"신청:",
			"주최:",
		},
		ExclusionPatterns: []string{
			`^\d+(\.\d+)?\s*[xX×*]\s*\d+(\.\d+)?`,
			`^\(?\d{4}[./-]\d{1,2}[./-]\d{1,2}\.?\)?$`,
			`(?i)^photo\s*(by\b|[:：])`,
			`^사진\s*[:：=]`,
			`^(구독하기|후원하기|공유하기)$`,
		},
		Keywords: []string{
			"연대", "보고", "특집", "인터뷰", "캠페인", "앨범",
			"프로젝트", "행사", "워크숍", "공연", "회의",
		},
		Honorifics: []string{
			"동지",
		},
		BulletGlyphs: []string{
			"•", "·", "●", "○", "■", "□", "◆", "◇", "▶", "▷", "►", "※", "✔", "✓", "-", "–", "—", "*",
		},
		Thresholds: Thresholds{
			MinBlockRunes:       20,
			MinParagraphRunes:   10,
			SummaryTiers:        []int{80, 40, 20},
			MaxSummaryRunes:     140,
			MinHighlightRunes:   6,
			MaxHighlightRunes:   90,
			MaxHighlights:       5,
			FallbackHighlights:  3,
			PrimaryFontSizePx:   26,
			SecondaryFontSizePx: 18,
			MinFontWeight:       500,
			ThumbnailSkip:       1,
		},
	}
}

// Merge overlays o onto r. Lists are appended without duplicates unless
// o.Replace is set, in which case any non-empty list in o replaces r's.
func (r Rules) Merge(o Rules) Rules {
	out := r
	pick := func(base, extra []string) []string {
		if len(extra) == 0 {
			return base
		}
		if o.Replace {
			return append([]string(nil), extra...)
		}
		return appendUnique(base, extra)
	}
	out.IgnoredSummaries = pick(r.IgnoredSummaries, o.IgnoredSummaries)
	out.PlaceholderPatterns = pick(r.PlaceholderPatterns, o.PlaceholderPatterns)
	out.StopPrefixes = pick(r.StopPrefixes, o.StopPrefixes)
	out.ExclusionPatterns = pick(r.ExclusionPatterns, o.ExclusionPatterns)
	out.Keywords = pick(r.Keywords, o.Keywords)
	out.Honorifics = pick(r.Honorifics, o.Honorifics)
	out.BulletGlyphs = pick(r.BulletGlyphs, o.BulletGlyphs)
	out.ShapeRuleForHeadings = r.ShapeRuleForHeadings || o.ShapeRuleForHeadings
	out.Thresholds = r.Thresholds.merge(o.Thresholds)
	out.Replace = false
	return out
}

func (t Thresholds) merge(o Thresholds) Thresholds {
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setInt(&t.MinBlockRunes, o.MinBlockRunes)
	setInt(&t.MinParagraphRunes, o.MinParagraphRunes)
	if len(o.SummaryTiers) > 0 {
		t.SummaryTiers = append([]int(nil), o.SummaryTiers...)
	}
	setInt(&t.MaxSummaryRunes, o.MaxSummaryRunes)
	setInt(&t.MinHighlightRunes, o.MinHighlightRunes)
	setInt(&t.MaxHighlightRunes, o.MaxHighlightRunes)
	setInt(&t.MaxHighlights, o.MaxHighlights)
	setInt(&t.FallbackHighlights, o.FallbackHighlights)
	setFloat(&t.PrimaryFontSizePx, o.PrimaryFontSizePx)
	setFloat(&t.SecondaryFontSizePx, o.SecondaryFontSizePx)
	setInt(&t.MinFontWeight, o.MinFontWeight)
	setInt(&t.ThumbnailSkip, o.ThumbnailSkip)
	return t
}

func (t Thresholds) validate() error {
	if len(t.SummaryTiers) == 0 {
		return fmt.Errorf("thresholds: summaryTiers must not be empty")
	}
	for _, n := range t.SummaryTiers {
		if n <= 0 {
			return fmt.Errorf("thresholds: summary tier %d must be positive", n)
		}
	}
	if t.MaxSummaryRunes <= 0 {
		return fmt.Errorf("thresholds: maxSummaryRunes must be positive")
	}
	for name, v := range map[string]int{
		"minBlockRunes":      t.MinBlockRunes,
		"minParagraphRunes":  t.MinParagraphRunes,
		"minHighlightRunes":  t.MinHighlightRunes,
		"maxHighlightRunes":  t.MaxHighlightRunes,
		"maxHighlights":      t.MaxHighlights,
		"fallbackHighlights": t.FallbackHighlights,
		"minFontWeight":      t.MinFontWeight,
		"thumbnailSkip":      t.ThumbnailSkip,
	} {
		if v < 0 {
			return fmt.Errorf("thresholds: %s must not be negative", name)
		}
	}
	if t.PrimaryFontSizePx < 0 || t.SecondaryFontSizePx < 0 {
		return fmt.Errorf("thresholds: font sizes must not be negative")
	}
	return nil
}

func appendUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]struct{}, len(out))
	for _, s := range out {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
