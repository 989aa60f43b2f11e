package saveload

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giuthas/patkit/internal/apperr"
	"github.com/giuthas/patkit/internal/checksum"
	"github.com/giuthas/patkit/internal/models"
	"github.com/giuthas/patkit/internal/npz"
	"github.com/giuthas/patkit/internal/storage"
)

// Loader reconstructs the entity hierarchy from a storage provider.
// Missing expected files are warnings, not errors: the affected entity
// is treated as absent or incomplete and loading continues. A metadata
// file with an unsupported format version aborts the load.
type Loader struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewLoader creates a Loader reading through the given provider.
func NewLoader(store storage.Provider, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, logger: logger}
}

// LoadDataset loads a full dataset from the data root. When no
// dataset-level metadata file exists the root is treated as a single
// session and wrapped in an unnamed dataset, which is how directories
// saved by older versions are laid out.
func (l *Loader) LoadDataset() (*models.Dataset, error) {
	metas, err := l.store.List("", markerDataset+SuffixMeta)
	if err != nil {
		return nil, err
	}

	var rootMeta *storage.FileInfo
	for i := range metas {
		if !strings.Contains(metas[i].Path, "/") {
			rootMeta = &metas[i]
			break
		}
	}

	if rootMeta == nil {
		session, err := l.LoadSession("")
		if err != nil {
			return nil, err
		}
		dataset := models.NewDataset(models.DatasetMetaData{
			Name: session.Meta.Name,
			Path: ".",
		})
		if err := dataset.AddSession(session); err != nil {
			return nil, err
		}
		return dataset, nil
	}

	data, err := l.store.Read(rootMeta.Path)
	if err != nil {
		return nil, err
	}
	h, err := peekHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rootMeta.Path, h.FormatVersion, map[string]bool{FileVersion: true}); err != nil {
		return nil, err
	}
	meta, err := decodeDatasetMeta(data)
	if err != nil {
		return nil, err
	}

	dataset := models.NewDataset(models.DatasetMetaData{
		Name:        meta.Name,
		Path:        meta.Parameters.Path,
		Description: meta.Parameters.Description,
	})
	for i := range meta.Participants {
		p := meta.Participants[i]
		if err := dataset.AddParticipant(&p); err != nil {
			return nil, err
		}
	}

	for _, dir := range meta.Sessions {
		session, err := l.LoadSession(dir)
		if err != nil {
			if apperr.IsVersionError(err) {
				return nil, err
			}
			l.logger.Warn("session could not be loaded",
				slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		if err := dataset.AddSession(session); err != nil {
			return nil, err
		}
	}
	return dataset, nil
}

// LoadSession loads one recording session from dir (relative to the
// data root, empty for the root itself).
func (l *Loader) LoadSession(dir string) (*models.RecordingSession, error) {
	metaPath, err := l.findSessionMeta(dir)
	if err != nil {
		return nil, err
	}

	data, err := l.store.Read(metaPath)
	if err != nil {
		return nil, err
	}
	meta, err := decodeSessionMeta(metaPath, data)
	if err != nil {
		return nil, err
	}

	session := models.NewSession(models.SessionMetaData{
		Name:       meta.Name,
		Path:       dir,
		DataSource: models.DataSource(meta.Parameters.DataSource),
	})
	session.ParticipantIDs = meta.Participants

	recordingFiles := meta.Recordings
	if len(recordingFiles) == 0 {
		// No listing: fall back to scanning the directory. List walks
		// recursively, so keep only direct children or a nested
		// session would leak its recordings into this one.
		found, err := l.store.List(dir, markerRecording+SuffixMeta)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			parent := path.Dir(f.Path)
			if parent == "." {
				parent = ""
			}
			if parent != dir {
				continue
			}
			recordingFiles = append(recordingFiles, path.Base(f.Path))
		}
	}

	for _, name := range recordingFiles {
		rel := joinDir(dir, name)
		if !l.store.Exists(rel) {
			l.logger.Warn("recording metadata file is missing",
				slog.String("file", rel))
			continue
		}
		recording, err := l.loadRecording(dir, rel)
		if err != nil {
			return nil, err
		}
		session.AddRecording(recording)
	}
	return session, nil
}

// findSessionMeta locates the session metadata file in dir: first the
// conventional <dirname>.RecordingSession.patkit_meta, then any other
// file with the session marker.
func (l *Loader) findSessionMeta(dir string) (string, error) {
	dirName := path.Base(dir)
	if dir == "" {
		dirName = path.Base(l.store.Root())
	}
	conventional := joinDir(dir, SessionMetaName(dirName))
	if l.store.Exists(conventional) {
		return conventional, nil
	}

	found, err := l.store.List(dir, markerSession+SuffixMeta)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("saveload: no session metadata in %q: %w",
			dir, apperr.ErrNotFound)
	}
	return found[0].Path, nil
}

// LoadRecording loads a single recording from its metadata file path
// (relative to the data root).
func (l *Loader) LoadRecording(metaPath string) (*models.Recording, error) {
	if !l.store.Exists(metaPath) {
		return nil, fmt.Errorf("saveload: %s: %w", metaPath, apperr.ErrNotFound)
	}
	dir := path.Dir(metaPath)
	if dir == "." {
		dir = ""
	}
	return l.loadRecording(dir, metaPath)
}

// loadRecording loads one recording and its modalities. Modalities
// whose files are missing are reported once each and left absent or
// incomplete.
func (l *Loader) loadRecording(dir, metaPath string) (*models.Recording, error) {
	data, err := l.store.Read(metaPath)
	if err != nil {
		return nil, err
	}
	meta, err := decodeRecordingMeta(metaPath, data)
	if err != nil {
		return nil, err
	}

	recording := models.NewRecording(models.RecordingMetaData{
		Prompt:          meta.Parameters.Prompt,
		TimeOfRecording: meta.Parameters.TimeOfRecording,
		ParticipantID:   meta.Parameters.ParticipantID,
		Basename:        meta.Parameters.Basename,
		Path:            dir,
	})
	recording.Excluded = meta.Excluded

	for name, listing := range meta.Modalities {
		modality, err := l.loadModality(dir, name, listing)
		if err != nil {
			if apperr.IsVersionError(err) {
				return nil, err
			}
			l.logger.Warn("modality could not be loaded",
				slog.String("recording", meta.Name),
				slog.String("modality", name),
				slog.String("error", err.Error()))
			continue
		}
		if modality == nil {
			continue
		}
		if err := recording.AddModality(modality, false); err != nil {
			return nil, err
		}
	}
	return recording, nil
}

// loadModality loads one modality from its listing. A listing without
// a metadata file is an imported modality: only its source paths are
// recorded and the payload stays in the source files. A nil modality
// with nil error means the modality is absent.
func (l *Loader) loadModality(dir, name string, listing modalityListing) (*models.Modality, error) {
	if listing.MetaName == "" {
		kind, parent := splitName(name)
		modality := models.NewModality(kind, models.ModalityMetaData{ParentName: parent}, nil)
		modality.DataPath = listing.DataName
		if listing.DataName == "" || !l.store.Exists(joinDir(dir, listing.DataName)) {
			l.logger.Warn("modality data file is missing",
				slog.String("file", joinDir(dir, listing.DataName)))
		}
		return modality, nil
	}

	metaPath := joinDir(dir, listing.MetaName)
	if !l.store.Exists(metaPath) {
		l.logger.Warn("modality metadata file is missing",
			slog.String("file", metaPath))
		return nil, nil
	}

	raw, err := l.store.Read(metaPath)
	if err != nil {
		return nil, err
	}
	meta, err := decodeModalityMeta(metaPath, raw)
	if err != nil {
		return nil, err
	}

	modality := models.NewModality(meta.ObjectType, splitModalityParameters(meta.Parameters), nil)
	modality.MetaPath = listing.MetaName
	modality.DataPath = listing.DataName
	for annName, ann := range meta.Annotations {
		if err := modality.AddAnnotation(annName, ann); err != nil {
			return nil, fmt.Errorf("saveload: annotation %s of %s: %w", annName, name, err)
		}
	}

	dataPath := joinDir(dir, listing.DataName)
	if listing.DataName == "" || !l.store.Exists(dataPath) {
		l.logger.Warn("modality data file is missing",
			slog.String("file", dataPath))
		return modality, nil
	}

	payload, err := l.store.Read(dataPath)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(payload, listing.Checksum) {
		l.logger.Warn("modality data checksum mismatch",
			slog.String("file", dataPath))
	}
	md, err := npz.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("saveload: payload of %s: %w", name, err)
	}
	modality.Data = md
	return modality, nil
}

// splitName breaks a modality name like "PD on RawUltrasound" into
// kind and parent.
func splitName(name string) (kind, parent string) {
	if idx := strings.Index(name, " on "); idx >= 0 {
		return name[:idx], name[idx+len(" on "):]
	}
	return name, ""
}

func decodeDatasetMeta(data []byte) (*datasetMeta, error) {
	meta := &datasetMeta{}
	if err := yaml.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("saveload: parse dataset metadata: %w", err)
	}
	return meta, nil
}
