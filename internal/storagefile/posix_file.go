package storagefile

import (
	"os"

	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/ioutil"
)

// PosixFile is a File backed by a real OS file descriptor.
type PosixFile struct {
	mode       FileMode
	f          *os.File
	cachedSize int64
}

// NewPosixFile opens path under the given mode. ModeRead opens the
// file read-only and fails if it doesn't exist; ModeWrite opens (and
// creates, if necessary) the file for reading and writing.
func NewPosixFile(path string, mode FileMode) (*PosixFile, error) {
	var f *os.File
	var err error
	if mode == ModeRead {
		f, err = os.Open(path)
	} else {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	}
	if err != nil {
		return nil, dberr.NewIOError(err)
	}
	info, err := f.Stat()
	if err != nil {
		ioutil.CloseFile(f)
		return nil, dberr.NewIOError(err)
	}
	return &PosixFile{mode: mode, f: f, cachedSize: info.Size()}, nil
}

// NewTemporaryPosixFile creates a file under dir, unlinks it
// immediately and returns a handle that still refers to the open
// descriptor -- the file's storage is reclaimed the moment the handle
// is closed, with no path left behind. Useful for ephemeral scratch
// segments in tests.
func NewTemporaryPosixFile(dir, pattern string) (*PosixFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, dberr.NewIOError(err)
	}
	path := f.Name()
	if err := os.Remove(path); err != nil {
		ioutil.CloseFile(f)
		return nil, dberr.NewIOError(err)
	}
	return &PosixFile{mode: ModeWrite, f: f, cachedSize: 0}, nil
}

func (pf *PosixFile) Mode() FileMode { return pf.mode }

func (pf *PosixFile) Size() (int64, error) { return pf.cachedSize, nil }

func (pf *PosixFile) Resize(newSize int64) error {
	if pf.mode == ModeRead {
		return dberr.NewOther("cannot resize a file opened in read-only mode")
	}
	if err := pf.f.Truncate(newSize); err != nil {
		return dberr.NewIOError(err)
	}
	pf.cachedSize = newSize
	return nil
}

func (pf *PosixFile) ReadBlock(offset, size int64) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > pf.cachedSize {
		return nil, dberr.NewOther("read_block out of bounds: offset=%d size=%d file_size=%d", offset, size, pf.cachedSize)
	}
	buf := make([]byte, size)
	if _, err := pf.f.ReadAt(buf, offset); err != nil {
		return nil, dberr.NewIOError(err)
	}
	return buf, nil
}

func (pf *PosixFile) WriteBlock(block []byte, offset int64) error {
	if pf.mode == ModeRead {
		return dberr.NewOther("cannot write to a file opened in read-only mode")
	}
	end := offset + int64(len(block))
	if end > pf.cachedSize {
		if err := pf.Resize(end); err != nil {
			return err
		}
	}
	if _, err := pf.f.WriteAt(block, offset); err != nil {
		return dberr.NewIOError(err)
	}
	return pf.Sync()
}

func (pf *PosixFile) Sync() error {
	if err := pf.f.Sync(); err != nil {
		return dberr.NewIOError(err)
	}
	return nil
}

func (pf *PosixFile) Close() error {
	ioutil.CloseFile(pf.f)
	return nil
}
