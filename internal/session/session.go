// Package session owns the per-form-filling-session state: the template
// bytes, the field catalog, the collected values, the dialogue state and the
// debounced live preview.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/tributolabs/formfill/internal/dialogue"
	"github.com/tributolabs/formfill/internal/form"
	"github.com/tributolabs/formfill/internal/form/extract"
	"github.com/tributolabs/formfill/internal/form/fill"
)

// Message is one transcript entry. The transcript is presentation state
// only; the collected value set is the source of truth.
type Message struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is one user's work on one form. The template buffer is an
// exclusive copy and is never mutated; every render allocates a new buffer.
type Session struct {
	ID   string
	Form *form.FormConfig

	filler    *fill.Filler
	coalescer *Coalescer

	mu         sync.Mutex
	template   []byte
	catalog    *form.Catalog
	values     form.ValueSet
	transcript []Message

	controller *dialogue.Controller
	dlgState   dialogue.State
	dlgStarted bool

	preview    []byte
	previewGen uint64
	renderGen  uint64

	createdAt time.Time
	touchedAt time.Time
}

// New builds a session over template PDF bytes: the catalog is extracted
// once, form configuration is overlaid, and values already present in the
// template seed the collected set. The preview starts as the pristine
// template.
func New(id string, cfg *form.FormConfig, template []byte, previewWindow time.Duration) (*Session, error) {
	result, err := extract.NewExtractor().Extract(template)
	if err != nil {
		return nil, err
	}
	result.Catalog.ApplyConfig(cfg)

	buf := make([]byte, len(template))
	copy(buf, template)

	now := time.Now()
	s := &Session{
		ID:         id,
		Form:       cfg,
		filler:     fill.NewFiller(),
		coalescer:  NewCoalescer(previewWindow),
		template:   buf,
		catalog:    result.Catalog,
		values:     result.ExtractedData.Clone(),
		controller: dialogue.NewController(result.Catalog),
		preview:    buf,
		createdAt:  now,
		touchedAt:  now,
	}
	if s.values == nil {
		s.values = make(form.ValueSet)
	}
	return s, nil
}

// Catalog returns the extracted field catalog.
func (s *Session) Catalog() *form.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Values returns a snapshot of the collected values.
func (s *Session) Values() form.ValueSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Transcript returns a copy of the chat transcript.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// SetValues merges values into the session (last write wins per field) and
// schedules a debounced preview refresh. Manual-entry and upload modes both
// land here.
func (s *Session) SetValues(values form.ValueSet) {
	s.mu.Lock()
	s.values.Merge(values)
	s.touchedAt = time.Now()
	s.mu.Unlock()
	s.scheduleRender()
}

// ExtractUpload runs field extraction over an uploaded, already-filled copy
// of the form and merges the result into the session. It returns the
// extraction result and the required fields still missing afterwards.
func (s *Session) ExtractUpload(pdfBytes []byte) (*extract.Result, []form.FieldDescriptor, error) {
	result, err := extract.NewExtractor().Extract(pdfBytes)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	s.values.Merge(result.ExtractedData)
	missing := s.catalog.RequiredMissing(s.values)
	s.touchedAt = time.Now()
	s.mu.Unlock()
	s.scheduleRender()
	return result, missing, nil
}

// StartDialogue enters guided mode, returning the greeting. Restarting
// resets the dialogue state but keeps collected values.
func (s *Session) StartDialogue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, eff := s.controller.Start(s.values)
	s.dlgState = st
	s.dlgStarted = true
	s.appendTranscript("assistant", eff.Prompt)
	return eff.Prompt
}

// DialogueMessage applies one user utterance to the guided flow and returns
// the assistant's reply. Committed values land in the shared value set and
// trigger a debounced preview refresh.
func (s *Session) DialogueMessage(input string) (string, bool) {
	s.mu.Lock()
	if !s.dlgStarted {
		st, eff := s.controller.Start(s.values)
		s.dlgState = st
		s.dlgStarted = true
		s.appendTranscript("assistant", eff.Prompt)
	}
	s.appendTranscript("user", input)

	// The dialogue operates on the session's current values so fields
	// satisfied by manual edits or uploads are skipped.
	st := s.dlgState
	st.Collected = s.values.Clone()
	st, eff := s.controller.Advance(st, input)
	s.dlgState = st
	if eff.Committed {
		s.values.Merge(st.Collected)
	}
	s.appendTranscript("assistant", eff.Prompt)
	s.touchedAt = time.Now()
	s.mu.Unlock()

	if eff.Committed {
		s.scheduleRender()
	}
	return eff.Prompt, eff.Done
}

// DialogueState returns the current dialogue state value.
func (s *Session) DialogueState() dialogue.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dlgState
}

// Preview returns the last successfully rendered preview bytes. A render
// failure never clobbers this; callers always have something displayable.
func (s *Session) Preview() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.preview))
	copy(out, s.preview)
	return out
}

// RenderNow flushes any pending coalesced render and performs a synchronous
// one, so download paths observe the final value state.
func (s *Session) RenderNow() error {
	s.coalescer.Flush()
	return s.render(s.nextGen())
}

// Download renders the current values and flattens the result into the
// non-editable copy meant for download or print. The preview buffer is
// untouched: flattening is one-way and must never hit the editing copy.
func (s *Session) Download() ([]byte, error) {
	s.mu.Lock()
	template := s.template
	catalog := s.catalog
	values := catalog.ResolveValues(s.values)
	s.mu.Unlock()

	filled, err := s.filler.Fill(template, catalog, values)
	if err != nil {
		return nil, err
	}
	return s.filler.Flatten(filled)
}

// Close drops pending preview work.
func (s *Session) Close() {
	s.coalescer.Stop()
}

func (s *Session) scheduleRender() {
	gen := s.nextGen()
	s.coalescer.Do(func() {
		if err := s.render(gen); err != nil {
			log.Printf("session %s: preview refresh failed: %v", s.ID, err)
		}
	})
}

func (s *Session) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderGen++
	return s.renderGen
}

// render fills a fresh buffer from the template and publishes it unless a
// newer render already did. Failures leave the previous preview in place.
func (s *Session) render(gen uint64) error {
	s.mu.Lock()
	template := s.template
	catalog := s.catalog
	values := catalog.ResolveValues(s.values)
	s.mu.Unlock()

	filled, err := s.filler.Fill(template, catalog, values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.previewGen {
		// Superseded by a newer render; discard.
		return nil
	}
	s.preview = filled
	s.previewGen = gen
	return nil
}

// appendTranscript must be called with the lock held.
func (s *Session) appendTranscript(role, content string) {
	s.transcript = append(s.transcript, Message{Role: role, Content: content, At: time.Now()})
}

// TouchedAt reports the last activity time, for TTL sweeping.
func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}
