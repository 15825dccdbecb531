package dberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

func TestIOErrorUnwraps(t *testing.T) {
	inner := errors.New("disk on fire")
	err := NewIOError(inner)
	require.ErrorIs(t, err, inner)
}

func TestNewIOErrorNilPassthrough(t *testing.T) {
	require.NoError(t, NewIOError(nil))
}

func TestPageFullErrorMessage(t *testing.T) {
	page := dbtypes.NewPageID(1, 2)
	err := NewPageFull(page)
	var pfe *PageFullError
	require.ErrorAs(t, err, &pfe)
	require.Equal(t, page, pfe.Page)
}

func TestPageLockedErrorMessage(t *testing.T) {
	page := dbtypes.NewPageID(1, 2)
	holder := dbtypes.TransactionID(9)
	err := NewPageLocked(page, holder)
	var ple *PageLockedError
	require.ErrorAs(t, err, &ple)
	require.Equal(t, holder, ple.Holder)
}

func TestTransactionNotFoundError(t *testing.T) {
	err := NewTransactionNotFound(dbtypes.TransactionID(5))
	var tnf *TransactionNotFoundError
	require.ErrorAs(t, err, &tnf)
	require.Equal(t, dbtypes.TransactionID(5), tnf.ID)
}
