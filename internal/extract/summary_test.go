package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperifyio/nldigest/internal/text"
)

var (
	defaultTiers = []int{80, 40, 20}
	maxSummary   = 140
)

func TestSelectSummary_PrefersMetaWhenLongEnough(t *testing.T) {
	meta := strings.Repeat("메타 설명 ", 20)
	got := SelectSummary(SummaryInput{
		MetaDescription: meta,
		FirstBlock:      strings.Repeat("본문 ", 30),
		Title:           "제목",
	}, defaultTiers, maxSummary)
	assert.True(t, strings.HasPrefix(got, "메타 설명"))
}

func TestSelectSummary_CascadeMonotonicity(t *testing.T) {
	// One candidate per tier: 20, 40 and 80 runes.
	short := "스무 글자를 조금 넘기는 첫 번째 문단입니다"
	medium := strings.Repeat("사십", 21)
	long := strings.Repeat("긴 본문 ", 17) + "마지막 문장입니다."
	assert.Greater(t, text.Len(text.Normalize(long)), 80)

	got := SelectSummary(SummaryInput{
		FirstBlock: short,
		Blocks:     []string{medium, long},
		Title:      "제목",
	}, defaultTiers, maxSummary)
	assert.Equal(t, text.Normalize(long), got)
	assert.NotEqual(t, medium, got)

	got = SelectSummary(SummaryInput{
		FirstBlock: short,
		Blocks:     []string{medium},
	}, defaultTiers, maxSummary)
	assert.Equal(t, medium, got)
}

func TestSelectSummary_TitleIsLastResort(t *testing.T) {
	got := SelectSummary(SummaryInput{
		Title: "예술해방전선 3월 뉴스레터: 함께 걷는 봄",
	}, defaultTiers, maxSummary)
	assert.Equal(t, "예술해방전선 3월 뉴스레터: 함께 걷는 봄", got)
}

func TestSelectSummary_EmptyAndTooShort(t *testing.T) {
	assert.Equal(t, "", SelectSummary(SummaryInput{}, defaultTiers, maxSummary))
	assert.Equal(t, "", SelectSummary(SummaryInput{Title: "짧은 제목"}, defaultTiers, maxSummary))
}

func TestSelectSummary_TruncatesToBudget(t *testing.T) {
	long := strings.Repeat("가나다라마 ", 60)
	got := SelectSummary(SummaryInput{FirstBlock: long}, defaultTiers, maxSummary)
	assert.LessOrEqual(t, text.Len(got), maxSummary)
	assert.True(t, strings.HasSuffix(got, text.Ellipsis))
	assert.True(t, strings.HasPrefix(text.Normalize(long), strings.TrimSuffix(got, text.Ellipsis)))
}
