package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordingRow represents a row in the recordings table. Path is the
// recording's metadata file path, relative to the data root.
type RecordingRow struct {
	Path        string
	Session     string
	Basename    string
	Prompt      string
	Participant string
	RecordedAt  time.Time
	Excluded    bool
	Modalities  []string
	Checksum    string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Prompt  string
	Snippet string
}

// UpsertRecording inserts or replaces a recording and its FTS entry
// within a transaction.
func (db *DB) UpsertRecording(r RecordingRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	modalitiesJSON, _ := json.Marshal(r.Modalities)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO recordings (path, session, basename, prompt, participant,
			recorded_at, excluded, modalities, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			session     = excluded.session,
			basename    = excluded.basename,
			prompt      = excluded.prompt,
			participant = excluded.participant,
			recorded_at = excluded.recorded_at,
			excluded    = excluded.excluded,
			modalities  = excluded.modalities,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, r.Path, r.Session, r.Basename, r.Prompt, r.Participant,
		r.RecordedAt, boolToInt(r.Excluded), string(modalitiesJSON), r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert recording: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Prompt, r.Participant, r.Basename); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteRecording removes a recording and its FTS entry.
func (db *DB) DeleteRecording(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM recordings WHERE path = ?`, path)

	return tx.Commit()
}

const rowColumns = `path, session, basename, prompt, participant,
	recorded_at, excluded, modalities, checksum, updated_at`

// GetRecording returns one indexed recording, or nil if not present.
func (db *DB) GetRecording(path string) (*RecordingRow, error) {
	row := db.conn.QueryRow(
		`SELECT `+rowColumns+` FROM recordings WHERE path = ?`, path)
	r, err := scanRow(row)
	if err != nil {
		return nil, nil // not found is fine
	}
	return r, nil
}

// GetChecksum returns the stored checksum for a recording, or empty
// string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM recordings WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListRecordings returns a page of recordings ordered by recording
// time, optionally filtered to one session, plus the total count.
func (db *DB) ListRecordings(session string, limit, offset int) ([]RecordingRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	args := []any{}
	if session != "" {
		where = ` WHERE session = ?`
		args = append(args, session)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM recordings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count recordings: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := db.conn.Query(
		`SELECT `+rowColumns+` FROM recordings`+where+
			` ORDER BY recorded_at, path LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list recordings: %w", err)
	}
	defer rows.Close()

	var out []RecordingRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// Sessions returns the distinct session directories in the index.
func (db *DB) Sessions() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT session FROM recordings ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("index: sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed recording.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM recordings`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRow(s scannable) (*RecordingRow, error) {
	var r RecordingRow
	var excluded int
	var modalitiesJSON string
	err := s.Scan(&r.Path, &r.Session, &r.Basename, &r.Prompt, &r.Participant,
		&r.RecordedAt, &excluded, &modalitiesJSON, &r.Checksum, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Excluded = excluded != 0
	_ = json.Unmarshal([]byte(modalitiesJSON), &r.Modalities)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
