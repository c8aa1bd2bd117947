// Package pdftest assembles minimal AcroForm PDFs in memory so extraction
// and filling can be exercised without fixture files on disk.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// TextField returns a text field object body. flags is the Ff bit set;
// pass 2 to mark the field required.
func TextField(name, value string, flags int) string {
	body := fmt.Sprintf("/Type /Annot /Subtype /Widget /Rect [50 700 300 720] /FT /Tx /T (%s)", name)
	if flags != 0 {
		body += fmt.Sprintf(" /Ff %d", flags)
	}
	if value != "" {
		body += fmt.Sprintf(" /V (%s)", value)
	}
	return "<< " + body + " >>"
}

// CheckboxField returns a checkbox field object body with Yes/Off
// appearance states.
func CheckboxField(name string, checked bool) string {
	state := "/Off"
	if checked {
		state = "/Yes"
	}
	return fmt.Sprintf("<< /Type /Annot /Subtype /Widget /Rect [50 650 70 670] /FT /Btn /T (%s) /V %s /AS %s /AP << /N << /Yes << >> /Off << >> >> >> >>",
		name, state, state)
}

// RadioField returns a radio button field object body with one appearance
// state per option and /V naming the selected state ("" selects none).
func RadioField(name, selected string, options ...string) string {
	var states strings.Builder
	for _, o := range options {
		fmt.Fprintf(&states, "/%s << >> ", o)
	}
	state := "/Off"
	if selected != "" {
		state = "/" + selected
	}
	return fmt.Sprintf("<< /Type /Annot /Subtype /Widget /Rect [50 560 70 580] /FT /Btn /Ff %d /T (%s) /V %s /AS %s /AP << /N << %s/Off << >> >> >> >>",
		1<<15, name, state, state, states.String())
}

// ChoiceField returns a choice field object body. flags 1<<17 makes it a
// combo box; without it the field is a list box.
func ChoiceField(name string, flags int, options ...string) string {
	var opts strings.Builder
	for i, o := range options {
		if i > 0 {
			opts.WriteByte(' ')
		}
		fmt.Fprintf(&opts, "(%s)", o)
	}
	body := fmt.Sprintf("/Type /Annot /Subtype /Widget /Rect [50 600 300 620] /FT /Ch /T (%s) /Opt [%s]", name, opts.String())
	if flags != 0 {
		body += fmt.Sprintf(" /Ff %d", flags)
	}
	return "<< " + body + " >>"
}

// Document assembles a one-page PDF whose AcroForm holds the given field
// objects. With no fields the document has a page and no AcroForm entry.
func Document(fields ...string) []byte {
	var refs strings.Builder
	for i := range fields {
		if i > 0 {
			refs.WriteByte(' ')
		}
		fmt.Fprintf(&refs, "%d 0 R", 4+i)
	}

	catalog := "<< /Type /Catalog /Pages 2 0 R >>"
	annots := ""
	if len(fields) > 0 {
		catalog = fmt.Sprintf("<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [%s] >> >>", refs.String())
		annots = fmt.Sprintf(" /Annots [%s]", refs.String())
	}

	objects := []string{
		catalog,
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]%s >>", annots),
	}
	objects = append(objects, fields...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}
