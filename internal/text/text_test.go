package text

import (
	"strings"
	"testing"
)

func TestNormalize_CollapsesWhitespaceAndNBSP(t *testing.T) {
	in := "  우리는\u00a0\u00a0오늘\n\t노량진에서   함께했습니다.  "
	got := Normalize(in)
	want := "우리는 오늘 노량진에서 함께했습니다."
	if got != want {
		t.Fatalf("Normalize=%q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"\u00a0",
		"a  b\u00a0 c",
		"\n\n첫 줄\r\n둘째 줄\t",
		"already clean",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestTruncate_ShortInputUnchanged(t *testing.T) {
	s := "짧은 요약"
	if got := Truncate(s, 140); got != s {
		t.Fatalf("Truncate=%q, want unchanged", got)
	}
}

func TestTruncate_Law(t *testing.T) {
	inputs := []string{
		strings.Repeat("가", 200),
		strings.Repeat("word ", 60),
		strings.Repeat("a", 141),
		"exactly ten",
	}
	for _, limit := range []int{1, 10, 80, 140} {
		for _, in := range inputs {
			out := Truncate(in, limit)
			if Len(out) > limit {
				t.Fatalf("limit %d: output %d runes", limit, Len(out))
			}
			if Len(in) <= limit {
				if out != in {
					t.Fatalf("limit %d: expected unchanged, got %q", limit, out)
				}
				continue
			}
			if !strings.HasSuffix(out, Ellipsis) {
				t.Fatalf("limit %d: missing ellipsis in %q", limit, out)
			}
			head := strings.TrimSuffix(out, Ellipsis)
			if !strings.HasPrefix(in, head) {
				t.Fatalf("limit %d: %q is not a prefix of input", limit, head)
			}
		}
	}
}

func TestTruncate_TrimsTrailingSpaceAtCut(t *testing.T) {
	// The cut lands right after "abcd ", the space must not precede the ellipsis.
	got := Truncate("abcd efgh", 6)
	if got != "abcd…" {
		t.Fatalf("Truncate=%q, want %q", got, "abcd…")
	}
}
