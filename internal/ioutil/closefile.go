// Package ioutil holds small file-handling helpers shared across the
// storage layer, adapted from the source tree's internal/alias/util
// close-file helper.
package ioutil

import (
	"log/slog"
	"os"
)

// CloseFile closes f and logs (rather than panics or silently drops)
// any error encountered doing so, since callers are almost always in a
// defer and have nothing useful to do with the error themselves.
func CloseFile(f *os.File) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		slog.Error("ioutil: failed to close file", "name", f.Name(), "err", err)
	}
}
