package saveload

import (
	"path"
	"sort"
	"strings"
	"time"
)

// RecordingSummary is the index-facing view of one recording metadata
// file: the searchable fields without the modality payloads.
type RecordingSummary struct {
	Name            string
	Session         string
	Basename        string
	Prompt          string
	ParticipantID   string
	TimeOfRecording time.Time
	Excluded        bool
	Modalities      []string
}

// DecodeRecordingSummary parses a recording metadata file into a
// summary. The session is taken from the file's directory. Version
// checking applies the same rules as a full load.
func DecodeRecordingSummary(metaPath string, data []byte) (*RecordingSummary, error) {
	meta, err := decodeRecordingMeta(metaPath, data)
	if err != nil {
		return nil, err
	}

	session := path.Dir(metaPath)
	if session == "." {
		session = ""
	}
	s := &RecordingSummary{
		Name:            meta.Name,
		Session:         session,
		Basename:        meta.Parameters.Basename,
		Prompt:          meta.Parameters.Prompt,
		ParticipantID:   meta.Parameters.ParticipantID,
		TimeOfRecording: meta.Parameters.TimeOfRecording,
		Excluded:        meta.Excluded,
	}
	for name := range meta.Modalities {
		s.Modalities = append(s.Modalities, name)
	}
	sort.Strings(s.Modalities)
	return s, nil
}

// IsRecordingMeta reports whether name looks like a recording metadata
// file.
func IsRecordingMeta(name string) bool {
	return strings.HasSuffix(name, markerRecording+SuffixMeta)
}
