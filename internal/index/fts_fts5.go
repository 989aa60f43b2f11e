//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS recordings_fts USING fts5(
			path UNINDEXED,
			prompt,
			participant,
			basename,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, prompt, participant, basename string) error {
	_, _ = tx.Exec(`DELETE FROM recordings_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO recordings_fts (path, prompt, participant, basename) VALUES (?, ?, ?, ?)`,
		path, prompt, participant, basename)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM recordings_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over prompts and returns
// matching recordings with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       prompt,
		       snippet(recordings_fts, 1, '<b>', '</b>', '...', 64)
		FROM recordings_fts
		WHERE recordings_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Prompt, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
