package saveload

import (
	"fmt"
	"log/slog"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/giuthas/patkit/internal/checksum"
	"github.com/giuthas/patkit/internal/models"
	"github.com/giuthas/patkit/internal/npz"
	"github.com/giuthas/patkit/internal/storage"
)

// Saver writes the entity hierarchy to a storage provider. Each level
// writes only its own metadata file; child entities are referenced by
// file name and written by their own save step.
type Saver struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewSaver creates a Saver writing through the given provider.
func NewSaver(store storage.Provider, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{store: store, logger: logger}
}

// SaveDataset saves the dataset metadata, its participants, and every
// session it owns.
func (s *Saver) SaveDataset(dataset *models.Dataset) error {
	for _, session := range dataset.Sessions {
		if err := s.SaveSession(session); err != nil {
			return err
		}
	}

	participants := make([]models.Participant, 0, len(dataset.Participants))
	for _, id := range sortedIDs(dataset.Participants) {
		participants = append(participants, *dataset.Participants[id])
	}

	sessions := make([]string, 0, len(dataset.Sessions))
	for _, session := range dataset.Sessions {
		sessions = append(sessions, session.Meta.Path)
	}

	meta := datasetMeta{
		ObjectType:    ObjectDataset,
		Name:          dataset.Meta.Name,
		FormatVersion: FileVersion,
		Parameters: datasetParams{
			Path:        dataset.Meta.Path,
			Description: dataset.Meta.Description,
		},
		Participants: participants,
		Sessions:     sessions,
	}
	return s.writeMeta(DatasetMetaName(dataset.Meta.Name), &meta)
}

// SaveSession saves every recording of the session and then the
// session metadata listing the recording metadata files.
func (s *Saver) SaveSession(session *models.RecordingSession) error {
	s.logger.Debug("saving session", slog.String("name", session.Meta.Name))

	var recordingFiles []string
	for _, recording := range session.Recordings {
		metaFile, err := s.saveRecording(recording)
		if err != nil {
			return err
		}
		recordingFiles = append(recordingFiles, metaFile)
	}

	meta := sessionMeta{
		ObjectType:    ObjectSession,
		Name:          session.Meta.Name,
		FormatVersion: FileVersion,
		Parameters: sessionParams{
			Path:       session.Meta.Path,
			DataSource: string(session.Meta.DataSource),
		},
		Participants: session.ParticipantIDs,
		Recordings:   recordingFiles,
	}
	name := joinDir(session.Meta.Path, SessionMetaName(session.Meta.Name))
	return s.writeMeta(name, &meta)
}

// saveRecording saves the recording's derived modalities and then its
// own metadata file. It returns the metadata file name, relative to
// the session directory, for the session's recording listing.
func (s *Saver) saveRecording(recording *models.Recording) (string, error) {
	s.logger.Debug("saving recording", slog.String("basename", recording.Meta.Basename))

	listings := make(map[string]modalityListing, len(recording.Modalities))
	for _, name := range recording.ModalityNames() {
		modality := recording.Modalities[name]
		listing, err := s.saveModality(recording, modality)
		if err != nil {
			return "", err
		}
		listings[name] = listing
	}

	meta := recordingMeta{
		ObjectType:    ObjectRecording,
		Name:          recording.Meta.Basename,
		FormatVersion: FileVersion,
		Parameters: recordingParams{
			Prompt:          recording.Meta.Prompt,
			TimeOfRecording: recording.Meta.TimeOfRecording,
			ParticipantID:   recording.Meta.ParticipantID,
			Basename:        recording.Meta.Basename,
			Path:            recording.Meta.Path,
		},
		Excluded:   recording.Excluded,
		Modalities: listings,
	}

	metaFile := RecordingMetaName(recording.Meta.Basename)
	if err := s.writeMeta(joinDir(recording.Meta.Path, metaFile), &meta); err != nil {
		return "", err
	}
	return metaFile, nil
}

// saveModality saves a derived modality's payload and metadata.
// Imported modalities only contribute their source file names to the
// recording's listing; their data stays in the original source files.
func (s *Saver) saveModality(recording *models.Recording, modality *models.Modality) (modalityListing, error) {
	if !modality.IsDerived() {
		return modalityListing{
			DataName: modality.DataPath,
			MetaName: modality.MetaPath,
		}, nil
	}

	basename := recording.Meta.Basename
	dataName := ModalityFileName(basename, modality.Name(), SuffixData)
	metaName := ModalityFileName(basename, modality.Name(), SuffixMeta)

	listing := modalityListing{DataName: dataName, MetaName: metaName}

	if modality.Data != nil {
		payload, err := npz.Marshal(modality.Data)
		if err != nil {
			return listing, fmt.Errorf("saveload: modality %s: %w", modality.Name(), err)
		}
		if err := s.store.Write(joinDir(recording.Meta.Path, dataName), payload); err != nil {
			return listing, err
		}
		listing.Checksum = checksum.Sum(payload)
		s.logger.Debug("wrote modality data", slog.String("file", dataName))
	}

	meta := modalityMeta{
		ObjectType:    modality.Kind,
		Name:          modality.Name(),
		FormatVersion: FileVersion,
		Parameters:    mergeModalityParameters(modality.Meta),
		Annotations:   modality.Annotations,
	}
	if len(meta.Annotations) == 0 {
		meta.Annotations = nil
	}
	if err := s.writeMeta(joinDir(recording.Meta.Path, metaName), &meta); err != nil {
		return listing, err
	}
	return listing, nil
}

func (s *Saver) writeMeta(name string, meta any) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("saveload: marshal %s: %w", name, err)
	}
	if err := s.store.Write(name, data); err != nil {
		return err
	}
	s.logger.Debug("wrote metadata", slog.String("file", name))
	return nil
}

func sortedIDs(participants map[string]*models.Participant) []string {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	// Deterministic output keeps saved files diffable.
	sort.Strings(ids)
	return ids
}
