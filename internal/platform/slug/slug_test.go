package slug_test

import (
	"strings"
	"testing"

	"retort/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"CV Maju Jaya  batch-3": "cv-maju-jaya-batch-3",
		"Kafé Ayu":              "kafe-ayu",
		"  ---  ":               "batch",
		"Rendang (pedas) #2":    "rendang-pedas-2",
	}
	for in, want := range cases {
		if got := slug.Make(in, "batch"); got != want {
			t.Fatalf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMakeTruncatesOnWordBoundary(t *testing.T) {
	t.Parallel()
	got := slug.Make(strings.Repeat("rendang ", 10), "batch")
	if len(got) > slug.MaxLength || strings.HasSuffix(got, "-") || strings.HasSuffix(got, "renda") {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
