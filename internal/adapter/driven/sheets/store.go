// Package sheets implements the RowStore port on a Google Sheets worksheet
// using the Sheets v4 API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/ericfisherdev/certregistry/internal/domain/model"
	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RowStore = (*Store)(nil)

const (
	// headerRows is the number of rows above the first data row.
	headerRows = 1

	driveScope = "https://www.googleapis.com/auth/drive"

	valueInputRaw    = "RAW"
	renderFormatted  = "FORMATTED_VALUE"
	insertRows       = "INSERT_ROWS"
	dimensionRows    = "ROWS"
	propertiesFields = "sheets.properties"
)

// lastColumn is the A1 letter of the last participant column (G).
var lastColumn = columnLetter(model.ColumnCount - 1)

// Store is a RowStore backed by one worksheet of a spreadsheet. Row 1 is the
// header; data position 0 is sheet row 2.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
	worksheet     string
	sheetID       int64
}

// NewStore authenticates with a service-account JSON key and opens the named
// worksheet. It fails when the credentials are rejected, the worksheet does
// not exist, or its header row names other columns.
func NewStore(ctx context.Context, credentialsJSON []byte, spreadsheetID, worksheet string) (*Store, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope, driveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return open(ctx, svc, spreadsheetID, worksheet)
}

// NewStoreWithHTTPClient creates a Store with a custom http.Client and API
// endpoint. This constructor is intended for testing against an httptest server.
func NewStoreWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint, spreadsheetID, worksheet string) (*Store, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return open(ctx, svc, spreadsheetID, worksheet)
}

func open(ctx context.Context, svc *gsheets.Service, spreadsheetID, worksheet string) (*Store, error) {
	s := &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}

	props, err := s.properties(ctx)
	if err != nil {
		return nil, err
	}
	s.sheetID = props.SheetId

	if err := s.ensureHeader(ctx); err != nil {
		return nil, err
	}

	slog.Debug("worksheet opened",
		"spreadsheet_id", spreadsheetID,
		"worksheet", worksheet,
		"sheet_id", props.SheetId,
	)

	return s, nil
}

// ensureHeader checks row 1 against the participant layout. A blank row 1
// gets the header written into it; any other mismatch fails with
// model.ErrHeaderMismatch.
func (s *Store) ensureHeader(ctx context.Context) error {
	rng := s.a1(fmt.Sprintf("A1:%s%d", lastColumn, headerRows))

	rows, err := s.values(ctx, rng)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, valueRange(model.Header)).
			ValueInputOption(valueInputRaw).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		slog.Info("wrote participant header", "worksheet", s.worksheet)
		return nil
	}

	if err := model.CheckHeader(rows[0]); err != nil {
		return fmt.Errorf("worksheet %q: %w", s.worksheet, err)
	}

	return nil
}

// ReadColumn returns column col of every data row. Blank cells read as "".
func (s *Store) ReadColumn(ctx context.Context, col int) ([]string, error) {
	if col < 0 || col >= model.ColumnCount {
		return nil, fmt.Errorf("read column %d: column out of range", col)
	}

	letter := columnLetter(col)
	rng := s.a1(fmt.Sprintf("%s%d:%s", letter, headerRows+1, letter))

	rows, err := s.values(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", letter, err)
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			values = append(values, "")
			continue
		}
		values = append(values, row[0])
	}

	return values, nil
}

// ReadAll returns every data row. Short rows are returned as sent by the API;
// callers treat missing trailing cells as "".
func (s *Store) ReadAll(ctx context.Context) ([][]string, error) {
	rng := s.a1(fmt.Sprintf("A%d:%s", headerRows+1, lastColumn))

	rows, err := s.values(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return rows, nil
}

// AppendRow adds row after the last non-empty row of the table.
func (s *Store) AppendRow(ctx context.Context, row []string) error {
	rng := s.a1(fmt.Sprintf("A%d:%s", headerRows+1, lastColumn))

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, valueRange(row)).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	return nil
}

// UpdateRow overwrites columns A through G of the row at pos.
func (s *Store) UpdateRow(ctx context.Context, pos int, row []string) error {
	if pos < 0 {
		return fmt.Errorf("update row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	n := sheetRow(pos)
	rng := s.a1(fmt.Sprintf("A%d:%s%d", n, lastColumn, n))

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, valueRange(row)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", pos, mapGridError(err))
	}

	return nil
}

// DeleteRow removes the row at pos. Following rows move up by one.
func (s *Store) DeleteRow(ctx context.Context, pos int) error {
	if pos < 0 {
		return fmt.Errorf("delete row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	req := &gsheets.Request{
		DeleteDimension: &gsheets.DeleteDimensionRequest{
			Range: s.rowRange(pos),
		},
	}

	if err := s.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("delete row %d: %w", pos, mapGridError(err))
	}

	return nil
}

// InsertBlankRow inserts an empty row at pos. The row previously at pos and
// every row after it move down by one.
func (s *Store) InsertBlankRow(ctx context.Context, pos int) error {
	if pos < 0 {
		return fmt.Errorf("insert blank row %d: %w", pos, driven.ErrPositionOutOfRange)
	}

	req := &gsheets.Request{
		InsertDimension: &gsheets.InsertDimensionRequest{
			Range:             s.rowRange(pos),
			InheritFromBefore: pos > 0,
		},
	}

	if err := s.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("insert blank row %d: %w", pos, mapGridError(err))
	}

	return nil
}

// AppendBlankRows grows the grid by n rows below its last row. Rows that
// already exist keep their positions.
func (s *Store) AppendBlankRows(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("append %d blank rows: %w", n, driven.ErrPositionOutOfRange)
	}
	if n == 0 {
		return nil
	}

	req := &gsheets.Request{
		AppendDimension: &gsheets.AppendDimensionRequest{
			SheetId:         s.sheetID,
			Dimension:       dimensionRows,
			Length:          int64(n),
			ForceSendFields: []string{"SheetId"},
		},
	}

	if err := s.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("append %d blank rows: %w", n, err)
	}

	return nil
}

// RowCount returns the grid's row count minus the header. The grid may hold
// blank rows past the last value, so this can exceed len(ReadAll).
func (s *Store) RowCount(ctx context.Context) (int, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return 0, err
	}

	if props.GridProperties == nil {
		return 0, nil
	}

	count := int(props.GridProperties.RowCount) - headerRows
	if count < 0 {
		count = 0
	}

	return count, nil
}

// properties fetches the worksheet's current properties by title.
func (s *Store) properties(ctx context.Context) (*gsheets.SheetProperties, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields(propertiesFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", s.spreadsheetID, err)
	}

	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			return sh.Properties, nil
		}
	}

	return nil, fmt.Errorf("worksheet %q not found in spreadsheet %s", s.worksheet, s.spreadsheetID)
}

func (s *Store) values(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		MajorDimension(dimensionRows).
		ValueRenderOption(renderFormatted).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (s *Store) batchUpdate(ctx context.Context, reqs ...*gsheets.Request) error {
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	return err
}

// rowRange addresses exactly the grid row holding data position pos.
// Zero-valued indexes and sheet IDs must be sent explicitly.
func (s *Store) rowRange(pos int) *gsheets.DimensionRange {
	start := int64(pos + headerRows)
	return &gsheets.DimensionRange{
		SheetId:         s.sheetID,
		Dimension:       dimensionRows,
		StartIndex:      start,
		EndIndex:        start + 1,
		ForceSendFields: []string{"SheetId", "StartIndex", "EndIndex"},
	}
}

// a1 qualifies a cell range with the quoted worksheet title.
func (s *Store) a1(cells string) string {
	return "'" + strings.ReplaceAll(s.worksheet, "'", "''") + "'!" + cells
}

// sheetRow converts a zero-based data position to a one-based sheet row number.
func sheetRow(pos int) int {
	return pos + headerRows + 1
}

// columnLetter returns the A1 letter for a zero-based column index below 26.
func columnLetter(col int) string {
	return string(rune('A' + col))
}

func valueRange(row []string) *gsheets.ValueRange {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return &gsheets.ValueRange{
		MajorDimension: dimensionRows,
		Values:         [][]interface{}{cells},
	}
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

// mapGridError turns the API's "exceeds grid limits" rejection into
// ErrPositionOutOfRange.
func mapGridError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Message), "grid limits") {
		return fmt.Errorf("%w: %s", driven.ErrPositionOutOfRange, apiErr.Message)
	}
	return err
}
