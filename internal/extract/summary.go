package extract

import (
	"github.com/hyperifyio/nldigest/internal/text"
)

// SummaryInput lists the summary sources in priority order.
type SummaryInput struct {
	MetaDescription string
	FirstBlock      string
	Blocks          []string
	Title           string
}

func (in SummaryInput) candidates() []string {
	raw := make([]string, 0, len(in.Blocks)+3)
	raw = append(raw, in.MetaDescription, in.FirstBlock)
	raw = append(raw, in.Blocks...)
	raw = append(raw, in.Title)
	out := raw[:0]
	for _, s := range raw {
		if s = text.Normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SelectSummary walks tiers from the strictest down. Within a tier the first
// candidate, in priority order, that is at least that many runes long wins.
// The winner is truncated to maxRunes. No qualifying candidate yields "".
func SelectSummary(in SummaryInput, tiers []int, maxRunes int) string {
	candidates := in.candidates()
	for _, minRunes := range tiers {
		for _, c := range candidates {
			if text.Len(c) >= minRunes {
				return text.Truncate(c, maxRunes)
			}
		}
	}
	return ""
}
