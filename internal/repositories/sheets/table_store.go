package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"

	psheets "github.com/SIMPLIKARG/TESTING/internal/platform/sheets"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const fullRange = "A:Z"

// TableStore maps tables onto sheets of one spreadsheet.
type TableStore struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
}

var _ repositories.TableStore = (*TableStore)(nil)

// NewTableStore wraps the Sheets values API for the given spreadsheet.
func NewTableStore(svc *sheetsapi.Service, spreadsheetID string) (*TableStore, error) {
	if svc == nil {
		return nil, errors.New("sheets table store: service is required")
	}
	if spreadsheetID == "" {
		return nil, errors.New("sheets table store: spreadsheet id is required")
	}
	return &TableStore{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

// Read returns every row of the sheet as text. Numbers come back unformatted so display
// formats (currency, thousands separators) never reach the decoders; dates keep their
// formatted text. Trailing empty cells are not returned by the API.
func (s *TableStore) Read(ctx context.Context, table string) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, psheets.Range(table, fullRange)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError("sheets.read "+table, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = toStrings(row)
	}
	return rows, nil
}

// Append inserts row after the last non-empty row of the sheet.
func (s *TableStore) Append(ctx context.Context, table string, row []string) error {
	_, err := s.values.Append(s.spreadsheetID, psheets.Range(table, fullRange), &sheetsapi.ValueRange{
		Values: [][]interface{}{toInterfaces(row)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return wrapError("sheets.append "+table, err)
}

// ReplaceAll clears the sheet and rewrites it. The two calls are not atomic: a failure
// after the clear leaves the sheet empty.
func (s *TableStore) ReplaceAll(ctx context.Context, table string, rows [][]string) error {
	if _, err := s.values.Clear(s.spreadsheetID, psheets.Range(table, fullRange), &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return wrapError("sheets.clear "+table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = toInterfaces(row)
	}
	_, err := s.values.Update(s.spreadsheetID, psheets.Range(table, "A1"), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return wrapError("sheets.update "+table, err)
}

// UpdateCell writes one cell addressed by 0-based row and column.
func (s *TableStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row < 0 || col < 0 {
		return &repositories.StoreError{Op: "sheets.update_cell", Err: fmt.Errorf("invalid cell %d,%d", row, col), NotFound: true}
	}
	cell := psheets.ColumnLetter(col) + strconv.Itoa(row+1)
	_, err := s.values.Update(s.spreadsheetID, psheets.Range(table, cell), &sheetsapi.ValueRange{
		Values: [][]interface{}{{value}},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return wrapError("sheets.update_cell "+table, err)
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case nil:
		case string:
			out[i] = v
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}

// wrapError classifies Sheets API failures by HTTP status.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	storeErr := &repositories.StoreError{Op: op, Err: err}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		storeErr.Unavailable = true
		return storeErr
	}
	switch {
	case apiErr.Code == http.StatusNotFound:
		storeErr.NotFound = true
	case apiErr.Code == http.StatusConflict:
		storeErr.Conflict = true
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
		storeErr.Unavailable = true
	}
	return storeErr
}
