package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/giuthas/patkit/internal/storage"
)

// watcherTestEnv sets up a data dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "patkit-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return dataDir, store, db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func writeMetaAbs(t *testing.T, path, basename string) {
	t.Helper()
	content := fmt.Sprintf(recordingMetaFixture, basename, "water", basename, "", basename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherNewFileIndexed(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, dataDir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	name := "rec1.Recording.patkit_meta"
	writeMetaAbs(t, filepath.Join(dataDir, name), "rec1")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(name)
		return cs != ""
	}, "new recording metafile not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:"+name {
				return true
			}
		}
		return false
	}, "expected created callback for "+name)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dataDir, "rec1.wav"), []byte("RIFF"), 0o644)
	name := "rec1.Recording.patkit_meta"
	writeMetaAbs(t, filepath.Join(dataDir, name), "rec1")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(name)
		return cs != ""
	}, "recording metafile not indexed")

	var count int
	_ = db.conn.QueryRow(`SELECT count(*) FROM recordings`).Scan(&count)
	if count != 1 {
		t.Errorf("got %d rows, want 1 (non-metadata files must be ignored)", count)
	}
}

func TestWatcherNewDirWatched(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dataDir, "sess1")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	name := "rec1.Recording.patkit_meta"
	writeMetaAbs(t, filepath.Join(subDir, name), "rec1")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("sess1/" + name)
		return cs != ""
	}, "metafile in new session dir not indexed by watcher")
}

func TestWatcherDeleteRemovesFromIndex(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	name := "rec1.Recording.patkit_meta"
	writeMetaAbs(t, filepath.Join(dataDir, name), "rec1")
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum(name); cs == "" {
		t.Fatal("precondition: metafile should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dataDir, name))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(name)
		return cs == ""
	}, "deleted metafile still in index")
}

func TestWatcherRenameReconciles(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	oldName := "old.Recording.patkit_meta"
	newName := "renamed.Recording.patkit_meta"
	writeMetaAbs(t, filepath.Join(dataDir, oldName), "old")
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dataDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dataDir, oldName), filepath.Join(dataDir, newName))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum(oldName)
		newCS, _ := db.GetChecksum(newName)
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcherNonAtomicWriteReportsCreated(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, dataDir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	// Write in two steps the way external tools do: the file exists
	// and is empty for a moment before the content arrives.
	name := "rec1.Recording.patkit_meta"
	f, err := os.Create(filepath.Join(dataDir, name))
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	content := fmt.Sprintf(recordingMetaFixture, "rec1", "water", "rec1", "", "rec1")
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(name)
		return cs != ""
	}, "two-step written metafile not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, "no callback after two-step write")

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 || events[0] != "created" {
		t.Errorf("events = %v, want first callback to be created", events)
	}
}
