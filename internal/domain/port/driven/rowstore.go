package driven

import (
	"context"
	"errors"
)

// ErrPositionOutOfRange indicates a row position the store cannot address.
var ErrPositionOutOfRange = errors.New("row position out of range")

// RowStore defines the driven port for a sheet-like, row-oriented table.
//
// Positions are zero-based indexes over the data rows (the header row, if the
// backing store has one, is never addressed). Positions are not stable across
// mutations: DeleteRow shifts every following row up by one and
// InsertBlankRow shifts them down. AppendBlankRows only grows the table past
// its last row and never moves existing rows. Callers resolve positions
// freshly per operation instead of holding on to them.
//
// UpdateRow and DeleteRow return ErrPositionOutOfRange for positions past the
// physical extent reported by RowCount.
type RowStore interface {
	// ReadColumn returns the value of column col for every data row, in order.
	ReadColumn(ctx context.Context, col int) ([]string, error)
	// ReadAll returns every data row, in order.
	ReadAll(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
	UpdateRow(ctx context.Context, pos int, row []string) error
	DeleteRow(ctx context.Context, pos int) error
	InsertBlankRow(ctx context.Context, pos int) error
	// AppendBlankRows adds n empty rows after the last physical row.
	AppendBlankRows(ctx context.Context, n int) error
	// RowCount returns the physical number of addressable data rows.
	RowCount(ctx context.Context) (int, error)
}
