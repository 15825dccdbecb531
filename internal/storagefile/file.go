// Package storagefile provides the File capability abstraction the
// on-disk components (heap segment, log manager) read and write
// through; the buffer pool does not use it directly and reaches disk
// only via its injected PageWriter. It mirrors the source tree's file.rs contract: a
// file is opened in either read-only or read-write mode, grows via an
// explicit resize rather than implicit writes-past-EOF, and exposes
// block-granular reads/writes with bounds checking.
package storagefile

// FileMode controls whether a File permits mutation.
type FileMode int

const (
	// ModeRead opens a file read-only; Resize and WriteBlock fail.
	ModeRead FileMode = iota
	// ModeWrite opens (creating if necessary) a file for reading and
	// writing.
	ModeWrite
)

// File is the capability every storage component is handed instead of
// a raw *os.File, so tests can substitute MemoryFile for PosixFile.
type File interface {
	Mode() FileMode
	// Size returns the file's current logical size in bytes.
	Size() (int64, error)
	// Resize grows or shrinks the file to exactly newSize bytes. Growth
	// zero-fills the new region. Fails in ModeRead.
	Resize(newSize int64) error
	// ReadBlock reads exactly size bytes starting at offset. Fails if
	// offset+size exceeds the file's current size.
	ReadBlock(offset, size int64) ([]byte, error)
	// WriteBlock writes block at offset, growing the file first via
	// Resize if the write would extend past the current size. Fails in
	// ModeRead.
	WriteBlock(block []byte, offset int64) error
	// Sync forces any buffered writes to stable storage.
	Sync() error
	Close() error
}
