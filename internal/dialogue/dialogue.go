// Package dialogue implements the guided field-collection flow: a small
// state machine that asks for one missing required field at a time,
// validates the answer against the field's kind, and commits it on success.
//
// Transitions are pure: Advance takes a state and an input and returns the
// next state plus the effects the caller should apply (assistant prompt,
// preview refresh, completion). The transcript and the live preview belong
// to the session, not to this package.
package dialogue

import (
	"strings"

	"github.com/tributolabs/formfill/internal/form"
	"github.com/tributolabs/formfill/internal/i18n"
)

// Mode is the dialogue phase.
type Mode string

const (
	ModeAwaitingLanguageChoice Mode = "awaitingLanguageChoice"
	ModeCollectingField        Mode = "collectingField"
	ModeComplete               Mode = "complete"
)

// State is the full dialogue state. It is a value: Advance returns a new
// one and never mutates its argument.
type State struct {
	Mode      Mode          `json:"mode"`
	Lang      string        `json:"lang"`
	Pending   []string      `json:"pending"` // required field names still to collect, catalog order
	Collected form.ValueSet `json:"collected"`
}

// Effects is what the caller should do after a transition.
type Effects struct {
	Prompt         string // assistant message to append to the transcript
	Committed      bool   // a value was committed; refresh the live preview
	CommittedField string // field name of the committed value
	Done           bool   // the dialogue reached completion with this step
}

// Controller drives the dialogue over one field catalog.
type Controller struct {
	catalog *form.Catalog
}

// NewController creates a controller for the given catalog.
func NewController(catalog *form.Catalog) *Controller {
	return &Controller{catalog: catalog}
}

// Start produces the initial state and greeting. Values already present
// (saved progress, bulk extraction) seed the collected set; fields they
// satisfy are never asked for. An empty pending list completes immediately
// instead of stalling on a field that does not exist.
func (c *Controller) Start(existing form.ValueSet) (State, Effects) {
	collected := existing.Clone()
	if collected == nil {
		collected = make(form.ValueSet)
	}
	st := State{
		Mode:      ModeAwaitingLanguageChoice,
		Lang:      i18n.LangEnglish,
		Pending:   c.pendingNames(collected),
		Collected: collected,
	}
	if len(st.Pending) == 0 {
		st.Mode = ModeComplete
		return st, Effects{Prompt: i18n.T(st.Lang, "dialogue.noFields"), Done: true}
	}
	return st, Effects{Prompt: i18n.T(st.Lang, "dialogue.chooseLanguage")}
}

// Advance applies one user input to the state.
func (c *Controller) Advance(st State, input string) (State, Effects) {
	switch st.Mode {
	case ModeAwaitingLanguageChoice:
		return c.advanceLanguage(st, input)
	case ModeCollectingField:
		return c.advanceField(st, input)
	default:
		// complete is terminal; only a full session reset leaves it.
		return st, Effects{Prompt: i18n.T(st.Lang, "dialogue.complete"), Done: true}
	}
}

func (c *Controller) advanceLanguage(st State, input string) (State, Effects) {
	lang, ok := matchLanguageChoice(input)
	if !ok {
		return st, Effects{Prompt: i18n.T(st.Lang, "dialogue.languageRetry")}
	}
	st.Lang = lang
	st.Pending = c.pendingNames(st.Collected)
	if len(st.Pending) == 0 {
		st.Mode = ModeComplete
		return st, Effects{Prompt: i18n.T(lang, "dialogue.complete"), Done: true}
	}
	st.Mode = ModeCollectingField
	return st, Effects{Prompt: c.promptFor(st.Lang, st.Pending[0])}
}

func (c *Controller) advanceField(st State, input string) (State, Effects) {
	// Skip anything satisfied since the last turn (bulk extraction, manual
	// edits); the value set is the source of truth, not the pending list.
	st.Pending = c.dropSatisfied(st.Pending, st.Collected)
	if len(st.Pending) == 0 {
		st.Mode = ModeComplete
		return st, Effects{Prompt: i18n.T(st.Lang, "dialogue.complete"), Done: true}
	}

	name := st.Pending[0]
	fd, ok := c.catalog.Lookup(name)
	if !ok {
		// Field vanished from the catalog; never stall on it.
		st.Pending = st.Pending[1:]
		return c.advanceField(st, input)
	}

	value, verdict := Validate(fd, input)
	if verdict != "" {
		// Validation failure: localized re-prompt for the same field, no
		// commit, no advance.
		return st, Effects{Prompt: c.errorPrompt(st.Lang, fd, verdict)}
	}

	collected := st.Collected.Clone()
	collected[name] = value
	st.Collected = collected
	st.Pending = c.dropSatisfied(st.Pending[1:], collected)

	effects := Effects{Committed: true, CommittedField: name}
	if len(st.Pending) == 0 {
		st.Mode = ModeComplete
		effects.Prompt = i18n.T(st.Lang, "dialogue.complete")
		effects.Done = true
		return st, effects
	}
	effects.Prompt = c.promptFor(st.Lang, st.Pending[0])
	return st, effects
}

// pendingNames lists the required fields lacking a value, catalog order.
func (c *Controller) pendingNames(collected form.ValueSet) []string {
	var names []string
	for _, fd := range c.catalog.RequiredMissing(collected) {
		names = append(names, fd.Name)
	}
	return names
}

// dropSatisfied removes pending fields that the value set already covers,
// under the raw name or the field's canonical key, the same rule
// Catalog.RequiredMissing applies.
func (c *Controller) dropSatisfied(pending []string, collected form.ValueSet) []string {
	out := pending[:0:0]
	for _, name := range pending {
		if collected[name] != "" {
			continue
		}
		if fd, ok := c.catalog.Lookup(name); ok && fd.CanonicalKey != "" && collected[fd.CanonicalKey] != "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (c *Controller) promptFor(lang, name string) string {
	fd, ok := c.catalog.Lookup(name)
	if !ok {
		return i18n.T(lang, "dialogue.askField", name)
	}
	label := c.label(lang, fd)
	switch fd.Kind {
	case form.FieldKindCheckbox:
		return i18n.T(lang, "dialogue.askCheckbox", label)
	case form.FieldKindRadio, form.FieldKindDropdown, form.FieldKindMultiSelect:
		return i18n.T(lang, "dialogue.askOptions", label, strings.Join(fd.Options, ", "))
	default:
		return i18n.T(lang, "dialogue.askField", label)
	}
}

func (c *Controller) errorPrompt(lang string, fd *form.FieldDescriptor, key string) string {
	label := c.label(lang, fd)
	if key == "dialogue.invalidOption" {
		return i18n.T(lang, key, label, strings.Join(fd.Options, ", "))
	}
	return i18n.T(lang, key, label)
}

func (c *Controller) label(lang string, fd *form.FieldDescriptor) string {
	if lang == i18n.LangSpanish && fd.Label.ES != "" {
		return fd.Label.ES
	}
	if fd.Label.EN != "" {
		return fd.Label.EN
	}
	if fd.CanonicalKey != "" {
		return i18n.T(lang, "fields."+fd.CanonicalKey)
	}
	return fd.Name
}

// matchLanguageChoice recognizes a language-selection utterance.
func matchLanguageChoice(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "english", "en", "inglés", "ingles":
		return i18n.LangEnglish, true
	case "español", "espanol", "es", "spanish", "castellano":
		return i18n.LangSpanish, true
	default:
		return "", false
	}
}
