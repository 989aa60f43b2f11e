// Package storage defines the data-directory file-system abstraction.
package storage

import "time"

// FileInfo is lightweight metadata about one file in the data directory.
type FileInfo struct {
	Path    string // relative to the data root
	Size    int64
	ModTime time.Time
}

// Provider is the interface for data-directory file operations. All
// paths are relative to the data root.
type Provider interface {
	// List returns every file under dir whose name ends with suffix.
	// An empty suffix matches everything.
	List(dir, suffix string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Root returns the absolute path of the data root.
	Root() string
}
