// Package recordingservice coordinates storage, persistence, and index
// operations for browsing and curating recordings.
package recordingservice

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/giuthas/patkit/internal/apperr"
	"github.com/giuthas/patkit/internal/checksum"
	"github.com/giuthas/patkit/internal/index"
	"github.com/giuthas/patkit/internal/models"
	"github.com/giuthas/patkit/internal/saveload"
	"github.com/giuthas/patkit/internal/storage"
)

// RecordingDetail is the full representation of one recording.
type RecordingDetail struct {
	Path            string           `json:"path"`
	Session         string           `json:"session"`
	Basename        string           `json:"basename"`
	Prompt          string           `json:"prompt"`
	ParticipantID   string           `json:"participant_id"`
	TimeOfRecording time.Time        `json:"time_of_recording"`
	Excluded        bool             `json:"excluded"`
	Checksum        string           `json:"checksum"`
	Modalities      []ModalityDetail `json:"modalities"`
}

// ModalityDetail describes one modality of a recording without its
// payload samples.
type ModalityDetail struct {
	Name         string                        `json:"name"`
	Kind         string                        `json:"kind"`
	Parent       string                        `json:"parent,omitempty"`
	DataPath     string                        `json:"data_path,omitempty"`
	MetaPath     string                        `json:"meta_path,omitempty"`
	SamplingRate float64                       `json:"sampling_rate,omitempty"`
	Frames       int                           `json:"frames,omitempty"`
	Parameters   map[string]any                `json:"parameters,omitempty"`
	Annotations  map[string]*models.Annotation `json:"annotations,omitempty"`
}

// RecordingListItem is a lightweight item in a list response.
type RecordingListItem struct {
	Path            string    `json:"path"`
	Session         string    `json:"session"`
	Basename        string    `json:"basename"`
	Prompt          string    `json:"prompt"`
	ParticipantID   string    `json:"participant_id"`
	TimeOfRecording time.Time `json:"time_of_recording"`
	Excluded        bool      `json:"excluded"`
	Modalities      []string  `json:"modalities"`
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	loader *saveload.Loader
}

// NewService creates a new recording service.
func NewService(store storage.Provider, db *index.DB, loader *saveload.Loader) *Service {
	return &Service{store: store, db: db, loader: loader}
}

// GetRecording loads a recording from its metadata file and returns it
// with all modality descriptions and annotations.
func (s *Service) GetRecording(_ context.Context, path string) (*RecordingDetail, error) {
	recording, err := s.loader.LoadRecording(path)
	if err != nil {
		return nil, err
	}

	raw, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}

	detail := &RecordingDetail{
		Path:            path,
		Session:         recording.Meta.Path,
		Basename:        recording.Meta.Basename,
		Prompt:          recording.Meta.Prompt,
		ParticipantID:   recording.Meta.ParticipantID,
		TimeOfRecording: recording.Meta.TimeOfRecording,
		Excluded:        recording.Excluded,
		Checksum:        checksum.Sum(raw),
		Modalities:      []ModalityDetail{},
	}
	for _, name := range recording.ModalityNames() {
		m := recording.Modalities[name]
		md := ModalityDetail{
			Name:        m.Name(),
			Kind:        m.Kind,
			Parent:      m.Meta.ParentName,
			DataPath:    m.DataPath,
			MetaPath:    m.MetaPath,
			Parameters:  m.Meta.Parameters,
			Annotations: m.Annotations,
		}
		if m.Data != nil {
			md.SamplingRate = m.Data.SamplingRate
			md.Frames = m.Data.Frames()
		}
		detail.Modalities = append(detail.Modalities, md)
	}
	return detail, nil
}

// ListSessions returns the session directories known to the index.
func (s *Service) ListSessions(_ context.Context) ([]string, error) {
	sessions, err := s.db.Sessions()
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []string{}
	}
	return sessions, nil
}

// ListRecordings returns a page of recordings, optionally filtered to
// one session.
func (s *Service) ListRecordings(_ context.Context, session string, limit, offset int) ([]RecordingListItem, int, error) {
	rows, total, err := s.db.ListRecordings(session, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]RecordingListItem, len(rows))
	for i, r := range rows {
		items[i] = RecordingListItem{
			Path:            r.Path,
			Session:         r.Session,
			Basename:        r.Basename,
			Prompt:          r.Prompt,
			ParticipantID:   r.Participant,
			TimeOfRecording: r.RecordedAt,
			Excluded:        r.Excluded,
			Modalities:      nonNilSlice(r.Modalities),
		}
	}
	return items, total, nil
}

// Search delegates to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// SetExcluded flips a recording's excluded flag with optimistic
// concurrency: when ifMatch is non-empty it must equal the current
// checksum of the metadata file.
func (s *Service) SetExcluded(ctx context.Context, path string, excluded bool, ifMatch string) (*RecordingDetail, error) {
	if !s.store.Exists(path) {
		return nil, apperr.ErrNotFound
	}
	raw, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	cs := checksum.Sum(raw)
	if ifMatch != "" && ifMatch != cs {
		return nil, apperr.ErrConflict
	}

	// Round-trip through a generic map so only the excluded flag
	// changes and unknown keys survive.
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("recordingservice: parse %s: %w", path, err)
	}
	doc["excluded"] = excluded
	updated, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, updated); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, updated); err != nil {
		return nil, err
	}
	return s.GetRecording(ctx, path)
}

// IndexFile decodes one recording metadata file and upserts it into
// the index.
func (s *Service) IndexFile(path string, data []byte) error {
	summary, err := saveload.DecodeRecordingSummary(path, data)
	if err != nil {
		return err
	}
	return s.db.UpsertRecording(index.RecordingRow{
		Path:        path,
		Session:     summary.Session,
		Basename:    summary.Basename,
		Prompt:      summary.Prompt,
		Participant: summary.ParticipantID,
		RecordedAt:  summary.TimeOfRecording,
		Excluded:    summary.Excluded,
		Modalities:  summary.Modalities,
		Checksum:    checksum.Sum(data),
	})
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
