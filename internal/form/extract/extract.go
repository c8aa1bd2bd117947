// Package extract enumerates the fillable AcroForm fields of a PDF and
// produces the normalized field catalog the rest of the system works with.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/tributolabs/formfill/internal/canonical"
	"github.com/tributolabs/formfill/internal/form"
)

// ErrNotPDF is returned when the input cannot be parsed as a PDF at all.
// It is a recoverable, user-facing condition.
var ErrNotPDF = errors.New("input is not a parseable PDF")

// Result is the outcome of one extraction: the ordered field catalog and the
// values already present in the document, addressable both by raw field name
// and, where classification succeeded, by canonical key.
type Result struct {
	Catalog       *form.Catalog `json:"catalog"`
	ExtractedData form.ValueSet `json:"extracted_data"`
}

// Extractor builds field catalogs from PDF bytes.
type Extractor struct {
	classifier *canonical.Classifier
}

// NewExtractor creates an extractor with the default canonical-key classifier.
func NewExtractor() *Extractor {
	return &Extractor{classifier: canonical.NewClassifier()}
}

// Extract enumerates the form fields of pdfBytes in document order. The input
// buffer is never mutated. A well-formed PDF without any fillable fields
// yields an empty catalog and a nil error; only input that cannot be parsed
// as a PDF produces ErrNotPDF.
func (e *Extractor) Extract(pdfBytes []byte) (*Result, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	result := &Result{
		Catalog:       form.NewCatalog(nil),
		ExtractedData: make(form.ValueSet),
	}

	fieldRefs, err := acroFormFields(ctx)
	if err != nil {
		return nil, err
	}
	if len(fieldRefs) == 0 {
		return result, nil
	}

	var fields []form.FieldDescriptor
	for i, fieldRef := range fieldRefs {
		fd, value, err := e.processField(ctx, fieldRef, len(fields))
		if err != nil {
			log.Printf("extract: skipping field %d: %v", i, err)
			continue
		}
		if fd == nil {
			continue
		}
		fields = append(fields, *fd)
		if value != "" {
			result.ExtractedData[fd.Name] = value
			e.aggregateCanonical(result.ExtractedData, fd, value)
		}
	}

	result.Catalog = form.NewCatalog(fields)
	return result, nil
}

// acroFormFields returns the entries of the AcroForm Fields array, empty when
// the document carries no interactive form.
func acroFormFields(ctx *model.Context) ([]types.Object, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, nil
	}
	return fieldsArray, nil
}

// processField turns a single field dictionary into a descriptor plus its
// current value, if any.
func (e *Extractor) processField(ctx *model.Context, fieldObj types.Object, index int) (*form.FieldDescriptor, string, error) {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil, "", nil
	}

	fd := &form.FieldDescriptor{Index: index}

	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			fd.Name = name
		}
	}
	if fd.Name == "" {
		fd.Name = fmt.Sprintf("field_%d", index)
	}

	fd.Kind = fieldKind(ctx, fieldDict)
	if fd.Kind == form.FieldKindUnknown {
		// Fields without a usable FT entry (pushbuttons, signatures) are not
		// part of the fillable catalog.
		return nil, "", nil
	}

	var value string
	if valueObj, found := fieldDict.Find("V"); found {
		value = fieldValue(ctx, valueObj, fd.Kind)
	}

	switch fd.Kind {
	case form.FieldKindRadio, form.FieldKindDropdown, form.FieldKindMultiSelect:
		fd.Options = fieldOptions(ctx, fieldDict)
	}

	fd.Required = requiredFlag(ctx, fieldDict) || canonical.InferRequired(fd.Name)
	fd.Label = form.Label{
		EN: canonical.ReadableLabel(fd.Name),
		ES: canonical.SpanishLabel(fd.Name),
	}

	if key, ok := e.classifier.Classify(fd.Name); ok {
		fd.CanonicalKey = string(key)
		fd.Kind = refineKind(fd.Kind, key)
	}

	return fd, value, nil
}

// refineKind narrows a structural text field to the semantic kind implied by
// its canonical key, so validators and inputs behave correctly.
func refineKind(kind form.FieldKind, key canonical.Key) form.FieldKind {
	if kind != form.FieldKindText {
		return kind
	}
	switch key {
	case canonical.KeyBirthDate:
		return form.FieldKindDate
	case canonical.KeyEmail:
		return form.FieldKindEmail
	case canonical.KeyIncome:
		return form.FieldKindNumber
	default:
		return kind
	}
}

// fieldKind resolves the structural kind from the FT entry and the field
// flags, checking the parent chain for inherited FT.
func fieldKind(ctx *model.Context, fieldDict types.Dict) form.FieldKind {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return fieldKind(ctx, parentDict)
			}
		}
		return form.FieldKindUnknown
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return form.FieldKindUnknown
	}

	flags := fieldFlags(ctx, fieldDict)

	switch ftName {
	case "Btn":
		if flags&(1<<15) != 0 { // bit 16: radio
			return form.FieldKindRadio
		}
		if flags&(1<<16) != 0 { // bit 17: pushbutton
			return form.FieldKindUnknown
		}
		return form.FieldKindCheckbox
	case "Tx":
		return form.FieldKindText
	case "Ch":
		if flags&(1<<17) != 0 { // bit 18: combo
			return form.FieldKindDropdown
		}
		return form.FieldKindMultiSelect
	default:
		return form.FieldKindUnknown
	}
}

func fieldFlags(ctx *model.Context, fieldDict types.Dict) int {
	flagsObj, found := fieldDict.Find("Ff")
	if !found {
		return 0
	}
	flags, err := ctx.DereferenceInteger(flagsObj)
	if err != nil || flags == nil {
		return 0
	}
	return int(*flags)
}

func requiredFlag(ctx *model.Context, fieldDict types.Dict) bool {
	return fieldFlags(ctx, fieldDict)&2 != 0 // bit 2: required
}

// fieldValue extracts the current value of a field as its textual
// representation; checkbox state normalizes to "true"/"false".
func fieldValue(ctx *model.Context, valueObj types.Object, kind form.FieldKind) string {
	switch kind {
	case form.FieldKindCheckbox:
		if name, err := ctx.DereferenceName(valueObj, model.V10, nil); err == nil {
			if name != "" && name != "Off" {
				return "true"
			}
			return "false"
		}
	case form.FieldKindRadio:
		if name, err := ctx.DereferenceName(valueObj, model.V10, nil); err == nil {
			return string(name)
		}
	case form.FieldKindDropdown, form.FieldKindMultiSelect:
		if val, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil); err == nil {
			return val
		}
		// Multi-value selections arrive as an array; only the first selection
		// is carried, matching the filler's single-selection behavior.
		if arr, err := ctx.DereferenceArray(valueObj); err == nil && len(arr) > 0 {
			if val, err := ctx.DereferenceStringOrHexLiteral(arr[0], model.V10, nil); err == nil {
				return val
			}
		}
	default:
		if val, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil); err == nil {
			return val
		}
	}
	return ""
}

// fieldOptions lists the selectable choices of a choice or radio field, from
// /Opt when present, otherwise from the appearance states of the kids.
func fieldOptions(ctx *model.Context, fieldDict types.Dict) []string {
	var options []string

	if optObj, found := fieldDict.Find("Opt"); found {
		optArray, err := ctx.DereferenceArray(optObj)
		if err == nil {
			for _, opt := range optArray {
				if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
					options = append(options, str)
				} else if arr, err := ctx.DereferenceArray(opt); err == nil && len(arr) >= 2 {
					// [export, display] pairs: keep the display value.
					if display, err := ctx.DereferenceStringOrHexLiteral(arr[1], model.V10, nil); err == nil {
						options = append(options, display)
					}
				}
			}
		}
	}
	if len(options) > 0 {
		return options
	}

	// Radio groups without /Opt carry their states in the kids' /AP /N keys.
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		return options
	}
	kidsArray, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return options
	}
	for _, kid := range kidsArray {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		apObj, found := kidDict.Find("AP")
		if !found {
			continue
		}
		apDict, err := ctx.DereferenceDict(apObj)
		if err != nil || apDict == nil {
			continue
		}
		nObj, found := apDict.Find("N")
		if !found {
			continue
		}
		nDict, err := ctx.DereferenceDict(nObj)
		if err != nil || nDict == nil {
			continue
		}
		for state := range nDict {
			if state != "Off" {
				options = append(options, state)
			}
		}
	}
	return options
}

// aggregateCanonical mirrors a classified field's value under its canonical
// key. Tax-residence style values normalize to "true"/"false".
func (e *Extractor) aggregateCanonical(data form.ValueSet, fd *form.FieldDescriptor, value string) {
	if fd.CanonicalKey == "" {
		return
	}
	if fd.CanonicalKey == string(canonical.KeyTaxResidence) {
		if normalized, ok := canonical.NormalizeBoolean(value); ok {
			data[fd.CanonicalKey] = normalized
		}
		return
	}
	data[fd.CanonicalKey] = value
}
