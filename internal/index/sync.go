package index

import (
	"log/slog"
	"path"

	"github.com/giuthas/patkit/internal/checksum"
	"github.com/giuthas/patkit/internal/saveload"
	"github.com/giuthas/patkit/internal/storage"
)

// Sync walks the data directory and brings the index up to date:
//   - new/changed recording metadata files are decoded and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("", saveload.SuffixMeta)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !saveload.IsRecordingMeta(path.Base(m.Path)) {
			continue
		}
		disk[m.Path] = struct{}{}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Sum(data)
		if checksums[m.Path] == cs {
			continue
		}

		if err := indexFile(db, m.Path, cs, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteRecording(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile decodes a recording metadata file and upserts it.
func indexFile(db *DB, path, cs string, data []byte) error {
	summary, err := saveload.DecodeRecordingSummary(path, data)
	if err != nil {
		return err
	}

	row := RecordingRow{
		Path:        path,
		Session:     summary.Session,
		Basename:    summary.Basename,
		Prompt:      summary.Prompt,
		Participant: summary.ParticipantID,
		RecordedAt:  summary.TimeOfRecording,
		Excluded:    summary.Excluded,
		Modalities:  summary.Modalities,
		Checksum:    cs,
	}
	return db.UpsertRecording(row)
}
