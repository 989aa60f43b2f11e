// Package saveload persists the PATKIT hierarchy to its modular file
// layout: one human-readable metadata file per entity plus one npz
// payload per saved modality. Saving is bottom-up, each level writing
// only its own metadata; loading is top-down, reconstructing the
// hierarchy from the metadata files.
package saveload

import (
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/giuthas/patkit/internal/models"
)

// File suffixes and entity marker segments. A saved file is named
// <basename>.<Modality_name?><suffix> with whitespace in the modality
// name replaced by underscores; Recording, RecordingSession, and
// Dataset level files carry their type as the marker segment.
const (
	SuffixMeta = ".patkit_meta"
	SuffixData = ".npz"

	markerRecording = ".Recording"
	markerSession   = ".RecordingSession"
	markerDataset   = ".Dataset"
)

// ObjectType values stored in metadata files.
const (
	ObjectDataset   = "Dataset"
	ObjectSession   = "RecordingSession"
	ObjectRecording = "Recording"
)

// RecordingMetaName returns the metadata file name for a recording.
func RecordingMetaName(basename string) string {
	return basename + markerRecording + SuffixMeta
}

// SessionMetaName returns the metadata file name for a session.
func SessionMetaName(name string) string {
	return name + markerSession + SuffixMeta
}

// DatasetMetaName returns the metadata file name for a dataset.
func DatasetMetaName(name string) string {
	return name + markerDataset + SuffixMeta
}

// ModalityFileName returns the file name for a modality-level file.
// Whitespace in the modality name becomes underscores, so
// "PD on RawUltrasound" saves as "rec1.PD_on_RawUltrasound.npz".
func ModalityFileName(basename, modalityName, suffix string) string {
	stem := strings.ReplaceAll(modalityName, " ", "_")
	return basename + "." + stem + suffix
}

// header is the part shared by every metadata file. It is decoded
// first so the format version can select the right parser before the
// rest of the document is touched.
type header struct {
	ObjectType    string `yaml:"object_type"`
	Name          string `yaml:"name"`
	FormatVersion string `yaml:"format_version"`
}

func peekHeader(data []byte) (header, error) {
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("saveload: parse metadata header: %w", err)
	}
	return h, nil
}

// modalityListing is one entry in a recording's modality table: where
// the modality's data and metadata live. Imported modalities list
// their source data file and have no metadata file until first saved.
type modalityListing struct {
	DataName string `yaml:"data_name"`
	MetaName string `yaml:"meta_name,omitempty"`
	Checksum string `yaml:"checksum,omitempty"`
}

// modalityMeta is the full metadata file of a saved modality.
type modalityMeta struct {
	ObjectType    string                        `yaml:"object_type"`
	Name          string                        `yaml:"name"`
	FormatVersion string                        `yaml:"format_version"`
	Parameters    map[string]any                `yaml:"parameters,omitempty"`
	Annotations   map[string]*models.Annotation `yaml:"annotations,omitempty"`
}

// recordingParams mirrors models.RecordingMetaData on disk.
type recordingParams struct {
	Prompt          string    `yaml:"prompt"`
	TimeOfRecording time.Time `yaml:"time_of_recording"`
	ParticipantID   string    `yaml:"participant_id"`
	Basename        string    `yaml:"basename"`
	Path            string    `yaml:"path"`
}

type recordingMeta struct {
	ObjectType    string                     `yaml:"object_type"`
	Name          string                     `yaml:"name"`
	FormatVersion string                     `yaml:"format_version"`
	Parameters    recordingParams            `yaml:"parameters"`
	Excluded      bool                       `yaml:"excluded,omitempty"`
	Modalities    map[string]modalityListing `yaml:"modalities"`
}

type sessionParams struct {
	Path       string `yaml:"path"`
	DataSource string `yaml:"data_source"`
}

type sessionMeta struct {
	ObjectType    string        `yaml:"object_type"`
	Name          string        `yaml:"name"`
	FormatVersion string        `yaml:"format_version"`
	Parameters    sessionParams `yaml:"parameters"`
	Participants  []string      `yaml:"participants,omitempty"`
	Recordings    []string      `yaml:"recordings"`
}

type datasetParams struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

type datasetMeta struct {
	ObjectType    string               `yaml:"object_type"`
	Name          string               `yaml:"name"`
	FormatVersion string               `yaml:"format_version"`
	Parameters    datasetParams        `yaml:"parameters"`
	Participants  []models.Participant `yaml:"participants,omitempty"`
	Sessions      []string             `yaml:"sessions"`
}

// joinDir joins a session-relative directory and file name using
// forward slashes, as stored in metadata listings.
func joinDir(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return path.Join(dir, name)
}
