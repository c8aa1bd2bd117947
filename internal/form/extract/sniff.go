package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PatternHints summarizes form-like patterns found in the page text of a PDF
// that has no interactive fields. It shapes the "no fields found" message:
// a scanned or flattened form gets pointed at manual entry.
type PatternHints struct {
	CheckboxMarks  int `json:"checkbox_marks"`
	UnderlineRuns  int `json:"underline_runs"`
	LabeledColons  int `json:"labeled_colons"`
	PagesInspected int `json:"pages_inspected"`
}

// LooksLikeForm reports whether the text carries enough fill-in patterns to
// plausibly be a printed form.
func (h PatternHints) LooksLikeForm() bool {
	return h.CheckboxMarks >= 2 || h.UnderlineRuns >= 3
}

// SniffFieldPatterns scans the page text of pdfBytes for visual form patterns
// (checkbox brackets, underline runs, "Label:" lines). It is strictly a
// best-effort fallback for AcroForm-less documents; any parse trouble yields
// empty hints rather than an error.
func SniffFieldPatterns(pdfBytes []byte) (hints PatternHints) {
	// The text extraction library panics on some malformed content streams.
	defer func() {
		_ = recover()
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return hints
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		var text strings.Builder
		for _, t := range page.Content().Text {
			text.WriteString(t.S)
		}
		s := text.String()
		if s == "" {
			continue
		}
		hints.PagesInspected++
		hints.CheckboxMarks += strings.Count(s, "[ ]") + strings.Count(s, "[x]") + strings.Count(s, "[X]") + strings.Count(s, "☐")
		hints.UnderlineRuns += strings.Count(s, "____") + strings.Count(s, "....")
		hints.LabeledColons += strings.Count(s, ":")
	}
	return hints
}
