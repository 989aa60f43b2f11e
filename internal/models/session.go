package models

// DataSource identifies where a session's raw data came from. Stored
// in session metadata so loading does not have to guess from the files
// present.
type DataSource string

const (
	DataSourceAAA  DataSource = "AAA"
	DataSourceRASL DataSource = "RASL"
	// DataSourcePatkit marks sessions previously saved by PATKIT itself.
	DataSourcePatkit DataSource = "PATKIT"
)

// SessionMetaData holds the metadata of one recording session.
type SessionMetaData struct {
	Name       string     `yaml:"name"`
	Path       string     `yaml:"path"`
	DataSource DataSource `yaml:"data_source"`
}

// RecordingSession is a batch of recordings made in one sitting,
// with references to the participants involved.
type RecordingSession struct {
	Meta           SessionMetaData
	Recordings     []*Recording
	ParticipantIDs []string

	dataset *Dataset
}

// NewSession creates an empty session with the given metadata.
func NewSession(meta SessionMetaData) *RecordingSession {
	return &RecordingSession{Meta: meta}
}

// Dataset returns the owning dataset, or nil for a standalone session.
func (s *RecordingSession) Dataset() *Dataset {
	return s.dataset
}

// AddRecording appends a recording to the session and records any new
// participant reference.
func (s *RecordingSession) AddRecording(r *Recording) {
	s.Recordings = append(s.Recordings, r)
	if id := r.Meta.ParticipantID; id != "" && !s.hasParticipant(id) {
		s.ParticipantIDs = append(s.ParticipantIDs, id)
	}
}

func (s *RecordingSession) hasParticipant(id string) bool {
	for _, known := range s.ParticipantIDs {
		if known == id {
			return true
		}
	}
	return false
}

// Recording returns the recording with the given basename, if present.
func (s *RecordingSession) Recording(basename string) (*Recording, bool) {
	for _, r := range s.Recordings {
		if r.Meta.Basename == basename {
			return r, true
		}
	}
	return nil, false
}
