package dbtypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageIDPacking(t *testing.T) {
	p := NewPageID(7, 123456)
	require.Equal(t, uint16(7), p.Segment())
	require.Equal(t, uint64(123456), p.Local())
}

func TestPageIDLocalMasksOverflow(t *testing.T) {
	// a local id that would bleed into the segment bits must be masked off:
	// localMask+5 is 2^48+4, so bit 48 is dropped and 4 remains.
	p := NewPageID(1, localMask+5)
	require.Equal(t, uint16(1), p.Segment())
	require.Equal(t, uint64(4), p.Local())
}

func TestPageIDZeroSegment(t *testing.T) {
	p := NewPageID(0, 42)
	require.Equal(t, uint16(0), p.Segment())
	require.Equal(t, uint64(42), p.Local())
}
