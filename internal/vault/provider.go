// Package vault defines the content-directory abstraction: Markdown notes
// plus the media files that get generated reference notes.
package vault

import "time"

// NoteExt is the extension of Markdown notes.
const NoteExt = ".md"

// Kind classifies a vault file by extension.
type Kind int

const (
	KindOther Kind = iota
	KindNote
	KindMedia
)

// File describes one vault file. Checksum is only computed for notes;
// media files can be large, so they carry size and mtime only.
type File struct {
	Path     string
	Kind     Kind
	Size     int64
	ModTime  time.Time
	Checksum string
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every note and recognised media file under dir.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Stat returns metadata for the single file at path.
	Stat(path string) (File, error)
	// Kind classifies path by extension without touching the disk.
	Kind(path string) Kind
	// Root returns the absolute vault root.
	Root() string
}
