package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() *Catalog {
	return NewCatalog([]FieldDescriptor{
		{Name: "applicant_name", Kind: FieldKindText, Required: true, CanonicalKey: "fullName", Index: 0},
		{Name: "dni", Kind: FieldKindText, Required: true, CanonicalKey: "nationalId", Index: 1},
		{Name: "notes", Kind: FieldKindText, Index: 2},
	})
}

func TestValueSetMerge(t *testing.T) {
	vs := ValueSet{"a": "1", "b": "2"}
	vs.Merge(ValueSet{"b": "3", "c": "4"})
	assert.Equal(t, ValueSet{"a": "1", "b": "3", "c": "4"}, vs)
}

func TestValueSetClone(t *testing.T) {
	vs := ValueSet{"a": "1"}
	clone := vs.Clone()
	clone["a"] = "2"
	assert.Equal(t, "1", vs["a"])
}

func TestCatalogLookup(t *testing.T) {
	c := sampleCatalog()

	fd, ok := c.Lookup("dni")
	require.True(t, ok)
	assert.Equal(t, "nationalId", fd.CanonicalKey)

	_, ok = c.Lookup("unknown")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.Lookup("dni")
	assert.False(t, ok)
	assert.Equal(t, 0, nilCatalog.Len())
}

func TestRequiredMissing(t *testing.T) {
	c := sampleCatalog()

	missing := c.RequiredMissing(nil)
	require.Len(t, missing, 2)
	assert.Equal(t, "applicant_name", missing[0].Name)
	assert.Equal(t, "dni", missing[1].Name)

	// A direct value satisfies the field.
	missing = c.RequiredMissing(ValueSet{"applicant_name": "Maria Lopez"})
	require.Len(t, missing, 1)
	assert.Equal(t, "dni", missing[0].Name)

	// So does a value under the canonical key.
	missing = c.RequiredMissing(ValueSet{"fullName": "Maria Lopez", "nationalId": "12345678Z"})
	assert.Empty(t, missing)

	// Empty strings do not.
	missing = c.RequiredMissing(ValueSet{"applicant_name": ""})
	assert.Len(t, missing, 2)
}

func TestResolveValues(t *testing.T) {
	c := sampleCatalog()

	resolved := c.ResolveValues(ValueSet{
		"fullName":       "Maria Lopez",
		"applicant_name": "Override Name",
		"nationalId":     "12345678Z",
		"stray":          "kept",
	})

	// Direct name wins over the canonical key.
	assert.Equal(t, "Override Name", resolved["applicant_name"])
	// Canonical key fills the gap.
	assert.Equal(t, "12345678Z", resolved["dni"])
	// Unmatched entries pass through.
	assert.Equal(t, "kept", resolved["stray"])
}

func TestApplyConfig(t *testing.T) {
	c := sampleCatalog()
	notRequired := false

	c.ApplyConfig(&FormConfig{
		Fields: map[string]FieldConfig{
			"dni": {
				Label:    Label{EN: "National ID", ES: "Documento de identidad"},
				Required: &notRequired,
			},
			"notes": {
				Kind: FieldKindEmail,
			},
			"missing_from_pdf": {
				Label: Label{EN: "Ignored"},
			},
		},
	})

	fd, _ := c.Lookup("dni")
	assert.Equal(t, "National ID", fd.Label.EN)
	assert.Equal(t, "Documento de identidad", fd.Label.ES)
	assert.False(t, fd.Required)

	fd, _ = c.Lookup("notes")
	assert.Equal(t, FieldKindEmail, fd.Kind)

	// Config entries without a matching PDF field are ignored.
	_, ok := c.Lookup("missing_from_pdf")
	assert.False(t, ok)
}
