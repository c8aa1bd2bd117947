// Package form defines the field catalog and value model shared by the
// extractor, the filler and the guided dialogue controller.
package form

// FieldKind represents the interaction type of a form field. It is resolved
// once at extraction time and carried in the descriptor; downstream code
// dispatches on it instead of re-inspecting the PDF object.
type FieldKind string

const (
	FieldKindText        FieldKind = "text"
	FieldKindNumber      FieldKind = "number"
	FieldKindDate        FieldKind = "date"
	FieldKindEmail       FieldKind = "email"
	FieldKindCheckbox    FieldKind = "checkbox"
	FieldKindRadio       FieldKind = "radio"
	FieldKindDropdown    FieldKind = "dropdown"
	FieldKindMultiSelect FieldKind = "multiSelect"
	FieldKindUnknown     FieldKind = "unknown"
)

// Label carries the bilingual caption of a field.
type Label struct {
	EN string `json:"en"`
	ES string `json:"es"`
}

// FieldDescriptor describes one fillable field of a form. Descriptors are
// created fresh on every extraction and are immutable afterwards.
type FieldDescriptor struct {
	Name         string    `json:"name"`
	Kind         FieldKind `json:"kind"`
	Label        Label     `json:"label"`
	Required     bool      `json:"required"`
	Options      []string  `json:"options,omitempty"`
	CanonicalKey string    `json:"canonical_key,omitempty"`
	Index        int       `json:"index"`
}

// ValueSet maps field names (or canonical keys) to their textual values.
// Checkbox values are the literal strings "true"/"false"; every other kind
// stores its textual representation. Merges are last-write-wins per name.
type ValueSet map[string]string

// Merge copies all entries of other into vs, overwriting existing names.
func (vs ValueSet) Merge(other ValueSet) {
	for name, value := range other {
		vs[name] = value
	}
}

// Clone returns an independent copy of the value set.
func (vs ValueSet) Clone() ValueSet {
	out := make(ValueSet, len(vs))
	for name, value := range vs {
		out[name] = value
	}
	return out
}

// Catalog is the ordered collection of field descriptors extracted from one
// PDF, with name-based lookup.
type Catalog struct {
	Fields []FieldDescriptor `json:"fields"`

	byName map[string]int
}

// NewCatalog builds a catalog over the given descriptors, preserving order.
func NewCatalog(fields []FieldDescriptor) *Catalog {
	c := &Catalog{
		Fields: fields,
		byName: make(map[string]int, len(fields)),
	}
	for i := range fields {
		c.byName[fields[i].Name] = i
	}
	return c
}

// Lookup returns the descriptor for a raw field name.
func (c *Catalog) Lookup(name string) (*FieldDescriptor, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return &c.Fields[i], true
}

// Len returns the number of fields in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Fields)
}

// RequiredMissing returns the required fields that have no value in the given
// set, in catalog order. A value under the field's canonical key counts.
func (c *Catalog) RequiredMissing(values ValueSet) []FieldDescriptor {
	var missing []FieldDescriptor
	if c == nil {
		return missing
	}
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if values[f.Name] != "" {
			continue
		}
		if f.CanonicalKey != "" && values[f.CanonicalKey] != "" {
			continue
		}
		missing = append(missing, f)
	}
	return missing
}

// ResolveValues produces the effective per-field value set used for filling:
// a direct value under the raw field name wins; otherwise a value under the
// field's canonical key is borrowed. Entries matching no field are carried
// through untouched (the filler skips them).
func (c *Catalog) ResolveValues(values ValueSet) ValueSet {
	resolved := values.Clone()
	if c == nil {
		return resolved
	}
	for _, f := range c.Fields {
		if resolved[f.Name] != "" {
			continue
		}
		if f.CanonicalKey != "" && values[f.CanonicalKey] != "" {
			resolved[f.Name] = values[f.CanonicalKey]
		}
	}
	return resolved
}

// FieldConfig is the per-field override supplied by form configuration. It
// takes precedence over anything inferred from the PDF.
type FieldConfig struct {
	Name     string    `json:"name"`
	Label    Label     `json:"label"`
	Kind     FieldKind `json:"type,omitempty"`
	Required *bool     `json:"required,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// FormConfig describes a stored government form: where its template PDF
// lives and how its fields should be presented.
type FormConfig struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Year         int                    `json:"year"`
	PDFObjectKey string                 `json:"pdf_object_key"`
	Fields       map[string]FieldConfig `json:"fields,omitempty"`
	Instructions string                 `json:"instructions,omitempty"`
}

// ApplyConfig overlays form configuration onto an extracted catalog: labels,
// kind and requiredness from configuration win over heuristics.
func (c *Catalog) ApplyConfig(cfg *FormConfig) {
	if c == nil || cfg == nil || len(cfg.Fields) == 0 {
		return
	}
	for i := range c.Fields {
		fc, ok := cfg.Fields[c.Fields[i].Name]
		if !ok {
			continue
		}
		if fc.Label.EN != "" {
			c.Fields[i].Label.EN = fc.Label.EN
		}
		if fc.Label.ES != "" {
			c.Fields[i].Label.ES = fc.Label.ES
		}
		if fc.Kind != "" {
			c.Fields[i].Kind = fc.Kind
		}
		if fc.Required != nil {
			c.Fields[i].Required = *fc.Required
		}
		if len(fc.Options) > 0 {
			c.Fields[i].Options = fc.Options
		}
	}
}
