package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributolabs/formfill/internal/form"
)

func threeFieldCatalog() *form.Catalog {
	return form.NewCatalog([]form.FieldDescriptor{
		{
			Name:     "fullName",
			Kind:     form.FieldKindText,
			Label:    form.Label{EN: "Full name", ES: "Nombre completo"},
			Required: true,
			Index:    0,
		},
		{
			Name:     "birthDate",
			Kind:     form.FieldKindDate,
			Label:    form.Label{EN: "Birth date", ES: "Fecha de nacimiento"},
			Required: true,
			Index:    1,
		},
		{
			Name:  "newsletter",
			Kind:  form.FieldKindCheckbox,
			Label: form.Label{EN: "Newsletter"},
			Index: 2,
		},
	})
}

func TestDialogueHappyPath(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, fx := c.Start(nil)
	assert.Equal(t, ModeAwaitingLanguageChoice, st.Mode)
	assert.NotEmpty(t, fx.Prompt)
	assert.False(t, fx.Done)

	st, fx = c.Advance(st, "English")
	assert.Equal(t, ModeCollectingField, st.Mode)
	assert.Contains(t, fx.Prompt, "Full name")

	st, fx = c.Advance(st, "Maria Lopez")
	require.True(t, fx.Committed)
	assert.Equal(t, "fullName", fx.CommittedField)
	assert.Equal(t, "Maria Lopez", st.Collected["fullName"])
	assert.Contains(t, fx.Prompt, "Birth date")

	// The optional checkbox is never asked for: committing the last
	// required field completes the dialogue.
	st, fx = c.Advance(st, "1990-02-14")
	require.True(t, fx.Committed)
	assert.Equal(t, "1990-02-14", st.Collected["birthDate"])
	assert.Equal(t, ModeComplete, st.Mode)
	assert.True(t, fx.Done)
	assert.NotContains(t, st.Collected, "newsletter")
}

func TestDialogueSpanish(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(nil)
	st, fx := c.Advance(st, "español")
	assert.Equal(t, "es", st.Lang)
	assert.Contains(t, fx.Prompt, "Nombre completo")
}

func TestDialogueLanguageRetry(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(nil)
	next, fx := c.Advance(st, "klingon")
	assert.Equal(t, ModeAwaitingLanguageChoice, next.Mode)
	assert.Equal(t, st.Pending, next.Pending)
	assert.NotEmpty(t, fx.Prompt)
	assert.False(t, fx.Committed)

	// Retrying with a valid choice still works.
	next, fx = c.Advance(next, "en")
	assert.Equal(t, ModeCollectingField, next.Mode)
	assert.Contains(t, fx.Prompt, "Full name")
}

func TestDialogueInvalidInputDoesNotAdvance(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(nil)
	st, _ = c.Advance(st, "english")
	st, _ = c.Advance(st, "Maria Lopez")

	// Three bad dates in a row: same field, nothing committed.
	for _, bad := range []string{"tomorrow", "14th of Feb", "1990-13-45"} {
		next, fx := c.Advance(st, bad)
		assert.False(t, fx.Committed, "input %q should not commit", bad)
		assert.Equal(t, st.Pending, next.Pending)
		assert.NotEmpty(t, fx.Prompt)
		st = next
	}

	st, fx := c.Advance(st, "14/02/1990")
	assert.True(t, fx.Committed)
	assert.Equal(t, "1990-02-14", st.Collected["birthDate"])
}

func TestDialogueEmptyCatalogCompletesImmediately(t *testing.T) {
	c := NewController(form.NewCatalog(nil))

	st, fx := c.Start(nil)
	assert.Equal(t, ModeComplete, st.Mode)
	assert.True(t, fx.Done)
	assert.NotEmpty(t, fx.Prompt)
}

func TestDialogueSeededValuesSkipFields(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(form.ValueSet{"fullName": "Maria Lopez"})
	assert.Equal(t, []string{"birthDate"}, st.Pending)

	st, fx := c.Advance(st, "english")
	assert.Contains(t, fx.Prompt, "Birth date")

	st, fx = c.Advance(st, "1990-02-14")
	assert.True(t, fx.Done)
	assert.Equal(t, ModeComplete, st.Mode)
}

func TestDialogueFullySeededCompletesOnStart(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, fx := c.Start(form.ValueSet{
		"fullName":  "Maria Lopez",
		"birthDate": "1990-02-14",
	})
	assert.Equal(t, ModeComplete, st.Mode)
	assert.True(t, fx.Done)
}

func TestDialogueExternallySatisfiedFieldSkipped(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(nil)
	st, _ = c.Advance(st, "english")

	// A bulk upload lands between turns and satisfies the current field.
	collected := st.Collected.Clone()
	collected["fullName"] = "Maria Lopez"
	st.Collected = collected

	st, fx := c.Advance(st, "1990-02-14")
	assert.True(t, fx.Committed)
	assert.Equal(t, "birthDate", fx.CommittedField)
	assert.True(t, fx.Done)
}

func TestDialogueCanonicallySatisfiedFieldSkipped(t *testing.T) {
	catalog := form.NewCatalog([]form.FieldDescriptor{
		{
			Name:         "email_address",
			Kind:         form.FieldKindEmail,
			Label:        form.Label{EN: "Email"},
			Required:     true,
			CanonicalKey: "email",
			Index:        0,
		},
		{
			Name:     "fullName",
			Kind:     form.FieldKindText,
			Label:    form.Label{EN: "Full name"},
			Required: true,
			Index:    1,
		},
	})
	c := NewController(catalog)

	st, _ := c.Start(nil)
	st, fx := c.Advance(st, "english")
	assert.Contains(t, fx.Prompt, "Email")

	// A bulk upload lands between turns under the canonical key only; the
	// raw field name never appears in the value set, yet the field counts
	// as satisfied and the answer goes to the next one.
	collected := st.Collected.Clone()
	collected["email"] = "maria@example.com"
	st.Collected = collected

	st, fx = c.Advance(st, "Maria Lopez")
	require.True(t, fx.Committed)
	assert.Equal(t, "fullName", fx.CommittedField)
	assert.Equal(t, "Maria Lopez", st.Collected["fullName"])
	assert.True(t, fx.Done)
}

func TestDialogueCompleteIsTerminal(t *testing.T) {
	c := NewController(form.NewCatalog(nil))

	st, _ := c.Start(nil)
	next, fx := c.Advance(st, "anything")
	assert.Equal(t, ModeComplete, next.Mode)
	assert.True(t, fx.Done)
	assert.False(t, fx.Committed)
}

func TestDialogueOptionPrompt(t *testing.T) {
	catalog := form.NewCatalog([]form.FieldDescriptor{
		{
			Name:     "country",
			Kind:     form.FieldKindDropdown,
			Label:    form.Label{EN: "Country"},
			Required: true,
			Options:  []string{"Spain", "France"},
		},
	})
	c := NewController(catalog)

	st, _ := c.Start(nil)
	st, fx := c.Advance(st, "english")
	assert.Contains(t, fx.Prompt, "Spain")
	assert.Contains(t, fx.Prompt, "France")

	// Wrong option re-prompts with the valid ones.
	st, fx = c.Advance(st, "Italy")
	assert.False(t, fx.Committed)
	assert.Contains(t, fx.Prompt, "Spain")

	// Case-insensitive match commits the canonical spelling.
	st, fx = c.Advance(st, "spain")
	assert.True(t, fx.Committed)
	assert.Equal(t, "Spain", st.Collected["country"])
	assert.True(t, fx.Done)
}

func TestAdvanceDoesNotMutateInputState(t *testing.T) {
	c := NewController(threeFieldCatalog())

	st, _ := c.Start(nil)
	st, _ = c.Advance(st, "english")

	before := st.Collected.Clone()
	_, fx := c.Advance(st, "Maria Lopez")
	require.True(t, fx.Committed)
	assert.Equal(t, before, st.Collected)
}
