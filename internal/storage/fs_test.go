package storage

import (
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("object_type: Recording\nname: rec1\n")
	if err := s.Write("rec1.Recording.patkit_meta", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("rec1.Recording.patkit_meta")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("session1/rec.patkit_meta", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("session1/rec.patkit_meta")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	if s.Exists("missing.npz") {
		t.Error("Exists on missing file should be false")
	}
	_ = s.Write("present.npz", []byte{0})
	if !s.Exists("present.npz") {
		t.Error("Exists on written file should be true")
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.patkit_meta", []byte("bye"))
	if err := s.Delete("del.patkit_meta"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.patkit_meta"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("old.npz", []byte("data"))
	if err := s.Move("old.npz", "sub/new.npz"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.npz")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.npz"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListFiltersBySuffix(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.Recording.patkit_meta", []byte("a"))
	_ = s.Write("sub/b.Recording.patkit_meta", []byte("b"))
	_ = s.Write("a.PD_on_RawUltrasound.npz", []byte{0})
	_ = s.Write("readme.txt", []byte("not meta"))

	metas, err := s.List("", ".patkit_meta")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Errorf("meta files = %d, want 2", len(metas))
	}

	all, err := s.List("", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all files = %d, want 4", len(all))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.patkit_meta",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicOverwrite(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.patkit_meta", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.patkit_meta", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("atomic.patkit_meta")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("content = %q", got)
	}

	// No temp files should linger after a successful write.
	leftovers, err := s.List("", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(leftovers) != 1 {
		t.Errorf("leftover files: %v", leftovers)
	}
}
