package storagefile

import "github.com/ariesdb/ariesdb/internal/dberr"

// MemoryFile implements File entirely in a byte slice, used by tests
// that want the file contract without touching disk.
type MemoryFile struct {
	mode FileMode
	data []byte
}

func NewMemoryFile(mode FileMode) *MemoryFile {
	return &MemoryFile{mode: mode}
}

func (mf *MemoryFile) Mode() FileMode { return mf.mode }

func (mf *MemoryFile) Size() (int64, error) { return int64(len(mf.data)), nil }

func (mf *MemoryFile) Resize(newSize int64) error {
	if mf.mode == ModeRead {
		return dberr.NewOther("cannot resize a file opened in read-only mode")
	}
	if newSize < 0 {
		return dberr.NewOther("cannot resize to a negative size")
	}
	grown := make([]byte, newSize)
	copy(grown, mf.data)
	mf.data = grown
	return nil
}

func (mf *MemoryFile) ReadBlock(offset, size int64) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > int64(len(mf.data)) {
		return nil, dberr.NewOther("read_block out of bounds: offset=%d size=%d file_size=%d", offset, size, len(mf.data))
	}
	buf := make([]byte, size)
	copy(buf, mf.data[offset:offset+size])
	return buf, nil
}

func (mf *MemoryFile) WriteBlock(block []byte, offset int64) error {
	if mf.mode == ModeRead {
		return dberr.NewOther("cannot write to a file opened in read-only mode")
	}
	end := offset + int64(len(block))
	if end > int64(len(mf.data)) {
		if err := mf.Resize(end); err != nil {
			return err
		}
	}
	copy(mf.data[offset:end], block)
	return nil
}

func (mf *MemoryFile) Sync() error { return nil }

func (mf *MemoryFile) Close() error { return nil }
