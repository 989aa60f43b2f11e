// Package models defines the PATKIT domain types: the hierarchy
// Dataset -> RecordingSession -> Recording -> Modality -> Annotation.
package models

import (
	"fmt"

	"github.com/giuthas/patkit/internal/apperr"
)

// DatasetMetaData holds dataset-wide metadata.
type DatasetMetaData struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Dataset is the top-level container: sessions, participants, and
// dataset-wide metadata.
type Dataset struct {
	Meta         DatasetMetaData
	Sessions     []*RecordingSession
	Participants map[string]*Participant
}

// NewDataset creates an empty dataset with the given metadata.
func NewDataset(meta DatasetMetaData) *Dataset {
	return &Dataset{
		Meta:         meta,
		Participants: make(map[string]*Participant),
	}
}

// AddSession appends a session to the dataset. A session belongs to
// exactly one dataset, so adding a session that is already owned is an
// error.
func (d *Dataset) AddSession(session *RecordingSession) error {
	if session.dataset != nil {
		return fmt.Errorf(
			"models: session %s already belongs to a dataset: %w",
			session.Meta.Name, apperr.ErrConflict)
	}
	session.dataset = d
	d.Sessions = append(d.Sessions, session)
	return nil
}

// AddParticipant registers a participant. Participant ids are unique
// within a dataset.
func (d *Dataset) AddParticipant(p *Participant) error {
	if p.ID == "" {
		return fmt.Errorf("models: participant id is empty")
	}
	if _, ok := d.Participants[p.ID]; ok {
		return fmt.Errorf("models: participant %s: %w", p.ID, apperr.ErrAlreadyExists)
	}
	if d.Participants == nil {
		d.Participants = make(map[string]*Participant)
	}
	d.Participants[p.ID] = p
	return nil
}

// Participant returns the participant with the given id, if present.
func (d *Dataset) Participant(id string) (*Participant, bool) {
	p, ok := d.Participants[id]
	return p, ok
}

// Participant represents a human subject of the dataset.
type Participant struct {
	ID   string         `yaml:"id"`
	Meta map[string]any `yaml:"meta,omitempty"`
}
