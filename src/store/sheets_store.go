package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/logger"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// headerRows is the number of header rows above the data in every sheet.
const headerRows = 1

// Cells are written RAW so Sheets never reinterprets text: shade codes like
// "0010", sizes like "1/2" and the log's timestamps stay as typed, and text
// starting with "=" is not evaluated. Canonical numbers go out as JSON numbers
// so the sheet can still sum them.
const (
	valueInput     = "RAW"
	valueRender    = "UNFORMATTED_VALUE"
	dateTimeRender = "FORMATTED_STRING"
	// maxNumericDigits keeps numbers within float64's exact range.
	maxNumericDigits = 15
)

// SheetsStore keeps each table on its own tab of a Google spreadsheet. Data
// row 0 is sheet row 2.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	titles        map[Table]string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// SheetsConfig names the spreadsheet and the tab title of each table.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsPath string
	Titles          map[Table]string
}

// NewSheetsStore authenticates with a service-account key file.
func NewSheetsStore(ctx context.Context, cfg SheetsConfig) (*SheetsStore, error) {
	keyJSON, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading Google credentials: %w", err)
	}
	jwtConfig, err := google.JWTConfigFromJSON(keyJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing Google credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating Sheets client: %w", err)
	}
	logger.L.Info("Sheets store ready", "spreadsheetID", cfg.SpreadsheetID)
	return NewSheetsStoreWithService(svc, cfg.SpreadsheetID, cfg.Titles), nil
}

// NewSheetsStoreWithService wraps an existing client. Tables missing from
// titles use their own name as the tab title.
func NewSheetsStoreWithService(svc *sheets.Service, spreadsheetID string, titles map[Table]string) *SheetsStore {
	t := map[Table]string{
		TransactionHistory: string(TransactionHistory),
		InventorySummary:   string(InventorySummary),
		SalesSummary:       string(SalesSummary),
	}
	for table, title := range titles {
		if title != "" {
			t[table] = title
		}
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID, titles: t, sheetIDs: make(map[string]int64)}
}

func (s *SheetsStore) title(table Table) string {
	if t, ok := s.titles[table]; ok {
		return t
	}
	return string(table)
}

func (s *SheetsStore) GetRows(ctx context.Context, table Table, r RowRange) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, a1Range(s.title(table), r)).
		ValueRenderOption(valueRender).
		DateTimeRenderOption(dateTimeRender).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *SheetsStore) AppendRows(ctx context.Context, table Table, rows [][]string) error {
	vr := &sheets.ValueRange{Values: toValues(rows)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, a1Range(s.title(table), AllRows), vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to %s: %w", table, err)
	}
	return nil
}

func (s *SheetsStore) UpdateRow(ctx context.Context, table Table, position int, row []string) error {
	vr := &sheets.ValueRange{Values: toValues([][]string{row})}
	rng := a1Range(s.title(table), RowRange{Start: position, End: position + 1})
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating %s row %d: %w", table, position, err)
	}
	return nil
}

func (s *SheetsStore) DeleteRow(ctx context.Context, table Table, position int) error {
	sheetID, err := s.sheetID(ctx, s.title(table))
	if err != nil {
		return err
	}
	start := int64(position + headerRows)
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   start + 1,
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting %s row %d: %w", table, position, err)
	}
	return nil
}

func (s *SheetsStore) ClearRange(ctx context.Context, table Table, r RowRange) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, a1Range(s.title(table), r), &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	return nil
}

// sheetID resolves a tab title to the numeric id row deletion needs.
func (s *SheetsStore) sheetID(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.sheetIDs[title]; ok {
		return id, nil
	}
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("reading spreadsheet metadata: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok := s.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", title)
	}
	return id, nil
}

// a1Range converts a data-row range to A1 notation over columns A..Z.
func a1Range(title string, r RowRange) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	first := r.Start + headerRows + 1
	if r.End <= 0 {
		return fmt.Sprintf("%s!A%d:Z", quoted, first)
	}
	return fmt.Sprintf("%s!A%d:Z%d", quoted, first, r.End+headerRows)
}

// toValues converts rows to the RAW payload.
func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, cell := range row {
			values[j] = cellValue(cell)
		}
		out[i] = values
	}
	return out
}

// cellValue sends a cell as a number only when reading it back yields the
// same text; everything else is a string.
func cellValue(cell string) interface{} {
	d, err := decimal.NewFromString(cell)
	if err != nil || d.String() != cell {
		return cell
	}
	digits := strings.TrimLeft(strings.NewReplacer("-", "", ".", "").Replace(cell), "0")
	if len(digits) > maxNumericDigits {
		return cell
	}
	return json.Number(cell)
}

// cellText renders an unformatted value the way cellValue wrote it.
func cellText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
