// Package fill writes a value set into the AcroForm fields of a PDF and
// serializes a fresh byte buffer for preview or download.
package fill

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/tributolabs/formfill/internal/form"
)

// ErrNotPDF is returned when the input cannot be parsed as a PDF.
var ErrNotPDF = errors.New("input is not a parseable PDF")

// Filler writes values into form fields. It holds no state between calls:
// Fill is a pure function of its inputs and always allocates a new output
// buffer, leaving the input untouched.
type Filler struct{}

// NewFiller creates a Filler.
func NewFiller() *Filler {
	return &Filler{}
}

// Fill locates each value's field by name in the document, assigns it
// according to the field's kind from the catalog, and serializes a new PDF.
// Value names without a matching field are skipped with a log line only: a
// canonical value set may legitimately carry keys absent from this form.
func (f *Filler) Fill(pdfBytes []byte, catalog *form.Catalog, values form.ValueSet) ([]byte, error) {
	ctx, err := readContext(pdfBytes)
	if err != nil {
		return nil, err
	}

	fieldDicts, acroFormDict, err := collectFieldDicts(ctx)
	if err != nil {
		return nil, err
	}

	for name, value := range values {
		fieldDict, ok := fieldDicts[name]
		if !ok {
			log.Printf("fill: no field named %q in this form, skipping", name)
			continue
		}
		fd, ok := catalog.Lookup(name)
		if !ok {
			log.Printf("fill: field %q missing from catalog, skipping", name)
			continue
		}
		assignValue(ctx, fieldDict, fd, value)
	}

	if acroFormDict != nil {
		// Viewers regenerate appearances for the values written here.
		acroFormDict["NeedAppearances"] = types.Boolean(true)
	}

	return writeContext(ctx)
}

// Flatten produces the one-way download copy: every field is marked
// read-only and the interactive form is detached from the document catalog,
// so the filled values render as static content and can no longer be edited.
// Never flatten the preview copy.
func (f *Filler) Flatten(pdfBytes []byte) ([]byte, error) {
	ctx, err := readContext(pdfBytes)
	if err != nil {
		return nil, err
	}

	fieldDicts, _, err := collectFieldDicts(ctx)
	if err != nil {
		return nil, err
	}
	for _, fieldDict := range fieldDicts {
		flags := 0
		if obj, found := fieldDict.Find("Ff"); found {
			if n, err := ctx.DereferenceInteger(obj); err == nil && n != nil {
				flags = int(*n)
			}
		}
		fieldDict["Ff"] = types.Integer(flags | 1) // bit 1: read-only
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	delete(rootDict, "AcroForm")

	return writeContext(ctx)
}

func readContext(pdfBytes []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return ctx, nil
}

func writeContext(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to serialize PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// collectFieldDicts maps every named field of the interactive form to its
// dictionary, recursing into kids that carry their own partial names.
func collectFieldDicts(ctx *model.Context) (map[string]types.Dict, types.Dict, error) {
	dicts := make(map[string]types.Dict)

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return dicts, nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return dicts, nil, nil
	}
	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return dicts, acroFormDict, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return dicts, acroFormDict, nil
	}

	var walk func(objs []types.Object, prefix string)
	walk = func(objs []types.Object, prefix string) {
		for _, obj := range objs {
			fieldDict, err := ctx.DereferenceDict(obj)
			if err != nil || fieldDict == nil {
				continue
			}
			name := prefix
			if nameObj, found := fieldDict.Find("T"); found {
				if partial, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
					if name != "" {
						name = name + "." + partial
					} else {
						name = partial
					}
				}
			}
			if name != "" {
				dicts[name] = fieldDict
			}
			if kidsObj, found := fieldDict.Find("Kids"); found {
				if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
					walk(kids, name)
				}
			}
		}
	}
	walk(fieldsArray, "")

	return dicts, acroFormDict, nil
}

// assignValue dispatches on the descriptor's kind. Choice values that are not
// among the field's options are a silent no-op per field.
func assignValue(ctx *model.Context, fieldDict types.Dict, fd *form.FieldDescriptor, value string) {
	switch fd.Kind {
	case form.FieldKindCheckbox:
		state := types.Name("Off")
		if value == "true" {
			state = types.Name(onState(ctx, fieldDict))
		}
		fieldDict["V"] = state
		fieldDict["AS"] = state

	case form.FieldKindRadio:
		if len(fd.Options) > 0 && !contains(fd.Options, value) {
			return
		}
		fieldDict["V"] = types.Name(value)
		selectKidState(ctx, fieldDict, value)

	case form.FieldKindDropdown, form.FieldKindMultiSelect:
		// Multi-select lists are filled as a single selection.
		if len(fd.Options) > 0 && !contains(fd.Options, value) {
			return
		}
		fieldDict["V"] = types.StringLiteral(escapeString(value))

	default:
		// text, number, date, email: the value string goes in verbatim;
		// formatting happened upstream.
		fieldDict["V"] = types.StringLiteral(escapeString(value))
	}
}

// onState finds the checked appearance state of a checkbox, defaulting to
// "Yes" when the widget declares none.
func onState(ctx *model.Context, fieldDict types.Dict) string {
	if state := apOnState(ctx, fieldDict); state != "" {
		return state
	}
	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					if state := apOnState(ctx, kidDict); state != "" {
						return state
					}
				}
			}
		}
	}
	return "Yes"
}

func apOnState(ctx *model.Context, dict types.Dict) string {
	apObj, found := dict.Find("AP")
	if !found {
		return ""
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return ""
	}
	nObj, found := apDict.Find("N")
	if !found {
		return ""
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return ""
	}
	for state := range nDict {
		if state != "Off" {
			return state
		}
	}
	return ""
}

// selectKidState flips the appearance state of radio kids so the widget
// matching the selected option shows checked and the rest show Off.
func selectKidState(ctx *model.Context, fieldDict types.Dict, value string) {
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		fieldDict["AS"] = types.Name(value)
		return
	}
	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return
	}
	for _, kid := range kids {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		if apOnState(ctx, kidDict) == value {
			kidDict["AS"] = types.Name(value)
		} else {
			kidDict["AS"] = types.Name("Off")
		}
	}
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// escapeString escapes the characters with special meaning inside a PDF
// literal string.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '(':
			b.WriteString(`\(`)
		case ')':
			b.WriteString(`\)`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
