package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/certregistry/internal/domain/model"
	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RowStore = (*RowRepo)(nil)

// cellColumns maps a row column index to its sheet_rows column name.
// Queries only ever interpolate names from this list.
var cellColumns = [model.ColumnCount]string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"}

// RowRepo is the SQLite implementation of the RowStore port. The ord column
// holds a dense zero-based position that DeleteRow and InsertBlankRow keep
// contiguous.
type RowRepo struct {
	db *DB
}

// NewRowRepo creates a new RowRepo backed by the given DB.
func NewRowRepo(db *DB) *RowRepo {
	return &RowRepo{db: db}
}

// ReadColumn returns column col of every row ordered by position.
func (r *RowRepo) ReadColumn(ctx context.Context, col int) ([]string, error) {
	if col < 0 || col >= len(cellColumns) {
		return nil, fmt.Errorf("read column %d: column out of range", col)
	}

	query := fmt.Sprintf(`SELECT %s FROM sheet_rows ORDER BY ord`, cellColumns[col])

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read column %d: %w", col, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan column %d: %w", col, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column %d: %w", col, err)
	}

	return values, nil
}

// ReadAll returns every row ordered by position.
func (r *RowRepo) ReadAll(ctx context.Context) ([][]string, error) {
	const query = `SELECT c0, c1, c2, c3, c4, c5, c6 FROM sheet_rows ORDER BY ord`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	all := [][]string{}
	for rows.Next() {
		row := make([]string, model.ColumnCount)
		if err := rows.Scan(&row[0], &row[1], &row[2], &row[3], &row[4], &row[5], &row[6]); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		all = append(all, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return all, nil
}

// AppendRow inserts row after the current last row.
func (r *RowRepo) AppendRow(ctx context.Context, row []string) error {
	const query = `
		INSERT INTO sheet_rows (ord, c0, c1, c2, c3, c4, c5, c6)
		VALUES ((SELECT COALESCE(MAX(ord) + 1, 0) FROM sheet_rows), ?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.db.Writer.ExecContext(ctx, query, cellArgs(row)...); err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	return nil
}

// UpdateRow overwrites every cell of the row at pos.
func (r *RowRepo) UpdateRow(ctx context.Context, pos int, row []string) error {
	const query = `
		UPDATE sheet_rows SET c0 = ?, c1 = ?, c2 = ?, c3 = ?, c4 = ?, c5 = ?, c6 = ?
		WHERE ord = ?`

	args := append(cellArgs(row), pos)

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update row %d: %w", pos, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("update row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	return nil
}

// DeleteRow removes the row at pos and moves every following row up by one.
func (r *RowRepo) DeleteRow(ctx context.Context, pos int) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	result, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE ord = ?`, pos)
	if err != nil {
		return fmt.Errorf("delete row %d: %w", pos, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("delete row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sheet_rows SET ord = ord - 1 WHERE ord > ?`, pos); err != nil {
		return fmt.Errorf("shift rows after %d: %w", pos, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// InsertBlankRow inserts an empty row at pos and moves the row previously at
// pos, and every row after it, down by one. pos may equal the row count.
func (r *RowRepo) InsertBlankRow(ctx context.Context, pos int) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows`).Scan(&count); err != nil {
		return fmt.Errorf("count rows: %w", err)
	}

	if pos < 0 || pos > count {
		return fmt.Errorf("insert blank row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sheet_rows SET ord = ord + 1 WHERE ord >= ?`, pos); err != nil {
		return fmt.Errorf("shift rows from %d: %w", pos, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO sheet_rows (ord) VALUES (?)`, pos); err != nil {
		return fmt.Errorf("insert blank row %d: %w", pos, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// AppendBlankRows adds n empty rows after the last stored row.
func (r *RowRepo) AppendBlankRows(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("append %d blank rows: %w", n, driven.ErrPositionOutOfRange)
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows`).Scan(&count); err != nil {
		return fmt.Errorf("count rows: %w", err)
	}

	for i := range n {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sheet_rows (ord) VALUES (?)`, count+i); err != nil {
			return fmt.Errorf("append blank row %d: %w", count+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RowCount returns the number of stored rows.
func (r *RowRepo) RowCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}

	return count, nil
}

// cellArgs pads or truncates row to exactly ColumnCount query arguments.
func cellArgs(row []string) []any {
	args := make([]any, model.ColumnCount)
	for i := range args {
		if i < len(row) {
			args[i] = row[i]
		} else {
			args[i] = ""
		}
	}
	return args
}
