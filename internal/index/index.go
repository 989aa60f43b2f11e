package index

// RecordingIndex defines the interface for recording index operations.
// Consumers should depend on this interface rather than the concrete
// *DB type to facilitate testing with mocks.
type RecordingIndex interface {
	UpsertRecording(r RecordingRow) error
	DeleteRecording(path string) error
	GetRecording(path string) (*RecordingRow, error)
	GetChecksum(path string) (string, error)
	ListRecordings(session string, limit, offset int) ([]RecordingRow, int, error)
	Sessions() ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies RecordingIndex at compile time.
var _ RecordingIndex = (*DB)(nil)
