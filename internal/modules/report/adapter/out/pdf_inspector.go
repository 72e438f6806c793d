package out

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rsc.io/pdf"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

var (
	totalPattern   = regexp.MustCompile(`Total\s*F0:\s*([0-9]+(?:\.[0-9]+)?)`)
	verdictPattern = regexp.MustCompile(`Waktu\s*Tahan:\s*(PASS|FAIL)`)
	spaceRun       = regexp.MustCompile(`[ \t]+`)
)

// PDFInspector reads text back out of a rendered report.
type PDFInspector struct{}

var _ reportout.Inspector = PDFInspector{}

func (PDFInspector) Inspect(_ context.Context, path string) (domain.Inspection, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return domain.Inspection{}, fmt.Errorf("open pdf: %w", err)
	}
	total := doc.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			return domain.Inspection{}, fmt.Errorf("pdf page %d is null", i)
		}
		pages = append(pages, pageText(p.Content().Text))
	}
	out := domain.Inspection{Pages: total, Text: strings.Join(pages, "\n")}
	if m := totalPattern.FindStringSubmatch(out.Text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.TotalF0 = v
			out.HasTotal = true
		}
	}
	if m := verdictPattern.FindStringSubmatch(out.Text); m != nil {
		out.Verdict = m[1]
	}
	return out, nil
}

// pageText rebuilds lines from positioned glyphs: same baseline means same
// line, and a horizontal gap wider than a fifth of the font size is a space.
func pageText(glyphs []pdf.Text) string {
	items := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			items = append(items, g)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if math.Abs(items[i].Y-items[j].Y) > 0.5 {
			return items[i].Y > items[j].Y
		}
		return items[i].X < items[j].X
	})
	b := strings.Builder{}
	for i, g := range items {
		if i > 0 {
			prev := items[i-1]
			switch {
			case math.Abs(prev.Y-g.Y) > 0.5:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > g.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	return strings.Join(lines, "\n")
}
