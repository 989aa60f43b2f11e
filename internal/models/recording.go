package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/giuthas/patkit/internal/apperr"
)

// RecordingMetaData is the basic metadata any recording should have.
type RecordingMetaData struct {
	Prompt          string    `yaml:"prompt"`
	TimeOfRecording time.Time `yaml:"time_of_recording"`
	ParticipantID   string    `yaml:"participant_id"`
	Basename        string    `yaml:"basename"`
	Path            string    `yaml:"path"`
}

// Recording is one data-collection event. It owns a mapping of
// synchronised modalities keyed by modality name.
type Recording struct {
	Meta       RecordingMetaData
	Excluded   bool
	Modalities map[string]*Modality
}

// NewRecording constructs a recording without modalities. Modalities
// are added afterwards with AddModality.
func NewRecording(meta RecordingMetaData) *Recording {
	return &Recording{
		Meta:       meta,
		Modalities: make(map[string]*Modality),
	}
}

// Identifier returns a human-readable identifier built from metadata:
// the prompt followed by the time of recording.
func (r *Recording) Identifier() string {
	return fmt.Sprintf("%s %s", r.Meta.Prompt, r.Meta.TimeOfRecording.Format(time.RFC3339))
}

// Exclude marks the recording as excluded from processing.
func (r *Recording) Exclude() {
	r.Excluded = true
}

// AddModality adds a modality to the recording. Modality names are
// unique within a recording: adding a duplicate without replace set
// returns apperr.ErrAlreadyExists.
func (r *Recording) AddModality(m *Modality, replace bool) error {
	name := m.Name()
	if _, ok := r.Modalities[name]; ok && !replace {
		return fmt.Errorf("models: modality %q: %w", name, apperr.ErrAlreadyExists)
	}
	if r.Modalities == nil {
		r.Modalities = make(map[string]*Modality)
	}
	m.recording = r
	r.Modalities[name] = m
	return nil
}

// Modality returns the modality with the given name, if present.
func (r *Recording) Modality(name string) (*Modality, bool) {
	m, ok := r.Modalities[name]
	return m, ok
}

// ModalityNames returns the modality names in sorted order.
func (r *Recording) ModalityNames() []string {
	names := make([]string, 0, len(r.Modalities))
	for name := range r.Modalities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Recording) String() string {
	return "Recording " + r.Meta.Basename
}
