package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giuthas/patkit/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "patkit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRow(path, session, prompt string) RecordingRow {
	return RecordingRow{
		Path:        path,
		Session:     session,
		Basename:    "rec1",
		Prompt:      prompt,
		Participant: "speaker01",
		RecordedAt:  time.Date(2021, 2, 5, 14, 7, 33, 0, time.UTC),
		Modalities:  []string{"MonoAudio", "RawUltrasound"},
		Checksum:    "abc123",
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM recordings`).Scan(&count); err != nil {
		t.Fatalf("recordings table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row := sampleRow("sess1/rec1.Recording.patkit_meta", "sess1", "call a taxi")
	if err := db.UpsertRecording(row); err != nil {
		t.Fatalf("UpsertRecording: %v", err)
	}

	cs, err := db.GetChecksum(row.Path)
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetRecording(row.Path)
	if err != nil {
		t.Fatalf("GetRecording: %v", err)
	}
	if got == nil {
		t.Fatal("GetRecording returned nil for indexed path")
	}
	if got.Prompt != "call a taxi" || got.Session != "sess1" {
		t.Errorf("row = %+v", got)
	}
	if len(got.Modalities) != 2 {
		t.Errorf("modalities = %v", got.Modalities)
	}
	if !got.RecordedAt.Equal(row.RecordedAt) {
		t.Errorf("recorded_at = %v, want %v", got.RecordedAt, row.RecordedAt)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	path := "sess1/rec1.Recording.patkit_meta"
	_ = db.UpsertRecording(sampleRow(path, "sess1", "old prompt"))
	updated := sampleRow(path, "sess1", "new prompt")
	updated.Checksum = "def456"
	_ = db.UpsertRecording(updated)

	got, _ := db.GetRecording(path)
	if got == nil || got.Prompt != "new prompt" || got.Checksum != "def456" {
		t.Errorf("row after upsert = %+v", got)
	}

	var count int
	_ = db.conn.QueryRow(`SELECT count(*) FROM recordings`).Scan(&count)
	if count != 1 {
		t.Errorf("got %d rows, want 1", count)
	}
}

func TestDeleteRecording(t *testing.T) {
	db := testDB(t)
	path := "sess1/rec1.Recording.patkit_meta"
	_ = db.UpsertRecording(sampleRow(path, "sess1", "delete me"))

	if err := db.DeleteRecording(path); err != nil {
		t.Fatalf("DeleteRecording: %v", err)
	}
	got, _ := db.GetRecording(path)
	if got != nil {
		t.Errorf("deleted recording still present: %+v", got)
	}
}

func TestGetChecksumNotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListRecordings(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 3; i++ {
		row := sampleRow(fmt.Sprintf("sess1/rec%d.Recording.patkit_meta", i), "sess1", "water")
		row.RecordedAt = row.RecordedAt.Add(time.Duration(i) * time.Minute)
		_ = db.UpsertRecording(row)
	}
	_ = db.UpsertRecording(sampleRow("sess2/recA.Recording.patkit_meta", "sess2", "taxi"))

	rows, total, err := db.ListRecordings("sess1", 2, 0)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 {
		t.Fatalf("page size = %d, want 2", len(rows))
	}
	if rows[0].Path != "sess1/rec0.Recording.patkit_meta" {
		t.Errorf("first row = %q, want earliest recording", rows[0].Path)
	}

	all, total, err := db.ListRecordings("", 50, 0)
	if err != nil {
		t.Fatalf("ListRecordings all: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Errorf("all sessions: total=%d len=%d, want 4", total, len(all))
	}
}

func TestSessions(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertRecording(sampleRow("sess2/rec1.Recording.patkit_meta", "sess2", "a"))
	_ = db.UpsertRecording(sampleRow("sess1/rec1.Recording.patkit_meta", "sess1", "b"))

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "sess1" || sessions[1] != "sess2" {
		t.Errorf("sessions = %v", sessions)
	}
}

func TestSearchBasic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertRecording(sampleRow("sess1/rec1.Recording.patkit_meta", "sess1", "call a uniqueword taxi"))
	_ = db.UpsertRecording(sampleRow("sess1/rec2.Recording.patkit_meta", "sess1", "water please"))

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "sess1/rec1.Recording.patkit_meta" {
		t.Errorf("search results = %+v, want 1 hit for rec1", results)
	}
}

// recordingMetaFixture is a current-format recording metadata file.
const recordingMetaFixture = `object_type: Recording
name: %s
format_version: "1.0"
parameters:
  prompt: %s
  time_of_recording: 2021-02-05T14:07:33Z
  participant_id: speaker01
  basename: %s
  path: %s
modalities:
  MonoAudio:
    data_name: %s.wav
`

func writeRecordingMeta(t *testing.T, root, session, basename, prompt string) string {
	t.Helper()
	dir := filepath.Join(root, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	name := basename + ".Recording.patkit_meta"
	content := fmt.Sprintf(recordingMetaFixture, basename, prompt, basename, session, basename)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return session + "/" + name
}

func TestSync(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p1 := writeRecordingMeta(t, root, "sess1", "rec1", "call a taxi")
	p2 := writeRecordingMeta(t, root, "sess1", "rec2", "water")

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, _ := db.GetRecording(p1)
	if got == nil {
		t.Fatalf("recording %s not indexed", p1)
	}
	if got.Prompt != "call a taxi" || got.Participant != "speaker01" || got.Session != "sess1" {
		t.Errorf("indexed row = %+v", got)
	}

	// Removing a file on disk removes it from the index on resync.
	if err := os.Remove(filepath.Join(root, filepath.FromSlash(p2))); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if row, _ := db.GetRecording(p2); row != nil {
		t.Errorf("stale entry survived resync: %+v", row)
	}
}

func TestSyncSkipsUnchanged(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p := writeRecordingMeta(t, root, "sess1", "rec1", "call a taxi")
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	before, _ := db.GetRecording(p)

	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	after, _ := db.GetRecording(p)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("unchanged file was reindexed")
	}
}
