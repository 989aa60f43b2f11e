package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giuthas/patkit/internal/index"
	"github.com/giuthas/patkit/internal/models"
	"github.com/giuthas/patkit/internal/recordingservice"
	"github.com/giuthas/patkit/internal/saveload"
	"github.com/giuthas/patkit/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	session := models.NewSession(models.SessionMetaData{
		Name: "day1", Path: "", DataSource: models.DataSourceAAA,
	})
	rec := models.NewRecording(models.RecordingMetaData{
		Prompt:          "call a taxi",
		TimeOfRecording: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
		ParticipantID:   "P1",
		Basename:        "rec1",
		Path:            "",
	})
	audio := models.NewModality(models.KindMonoAudio, models.ModalityMetaData{}, nil)
	audio.DataPath = "rec1.wav"
	if err := rec.AddModality(audio, false); err != nil {
		t.Fatal(err)
	}
	session.AddRecording(rec)
	if err := saveload.NewSaver(store, logger).SaveSession(session); err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "patkit-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}

	svc := recordingservice.NewService(store, db, saveload.NewLoader(store, logger))
	return New(store, db, svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_recordings":
		result, err = srv.searchRecordings(ctx, req)
	case "read_recording":
		result, err = srv.readRecording(ctx, req)
	case "list_recordings":
		result, err = srv.listRecordings(ctx, req)
	case "list_sessions":
		result, err = srv.listSessions(ctx, req)
	case "get_file_format":
		result, err = srv.getFileFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchRecordings(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "search_recordings", map[string]interface{}{"query": "taxi"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "rec1.Recording.patkit_meta") {
		t.Errorf("search output missing hit: %s", resultText(res))
	}
}

func TestReadRecording(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "read_recording", map[string]interface{}{
		"path": "rec1.Recording.patkit_meta",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	text := resultText(res)
	if !strings.Contains(text, "call a taxi") || !strings.Contains(text, "MonoAudio") {
		t.Errorf("recording detail incomplete: %s", text)
	}
}

func TestReadRecordingNotFound(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "read_recording", map[string]interface{}{
		"path": "missing.Recording.patkit_meta",
	})
	if !res.IsError {
		t.Error("expected error result for missing recording")
	}
}

func TestListRecordings(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "list_recordings", map[string]interface{}{})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "call a taxi") {
		t.Errorf("listing missing recording: %s", resultText(res))
	}
}

func TestGetFileFormat(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "get_file_format", map[string]interface{}{})
	text := resultText(res)
	if !strings.Contains(text, ".patkit_meta") || !strings.Contains(text, "format_version") {
		t.Errorf("contract text incomplete: %.120s", text)
	}
}
