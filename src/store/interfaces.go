package store

import (
	"context"
	"errors"
	"fmt"
)

// Table names one of the logical tables kept in the backing store.
type Table string

const (
	TransactionHistory Table = "Transaction History"
	InventorySummary   Table = "Inventory Summary"
	SalesSummary       Table = "Sales Summary"
)

// RowRange selects data rows by 0-based position, header excluded. End is
// exclusive; End <= 0 means "to the last row".
type RowRange struct {
	Start int
	End   int
}

// AllRows selects every data row.
var AllRows = RowRange{}

// ErrRowOutOfRange is returned when a row position does not exist.
var ErrRowOutOfRange = errors.New("row position out of range")

// TabularStore is the row/column persistence the inventory service runs on.
// Row positions are only stable between two writes, so callers re-read
// before they address a row.
type TabularStore interface {
	// GetRows returns the data rows of table within r. Short rows are not padded.
	GetRows(ctx context.Context, table Table, r RowRange) ([][]string, error)
	// AppendRows adds rows after the last data row.
	AppendRows(ctx context.Context, table Table, rows [][]string) error
	// UpdateRow overwrites the data row at position.
	UpdateRow(ctx context.Context, table Table, position int, row []string) error
	// DeleteRow removes the data row at position; later rows move up by one.
	DeleteRow(ctx context.Context, table Table, position int) error
	// ClearRange blanks the data rows within r.
	ClearRange(ctx context.Context, table Table, r RowRange) error
}

// AppendRow is the single-row form of AppendRows.
func AppendRow(ctx context.Context, s TabularStore, table Table, row []string) error {
	return s.AppendRows(ctx, table, [][]string{row})
}

// ReplaceAll clears table and writes rows in its place.
func ReplaceAll(ctx context.Context, s TabularStore, table Table, rows [][]string) error {
	if err := s.ClearRange(ctx, table, AllRows); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.AppendRows(ctx, table, rows); err != nil {
		return fmt.Errorf("writing %s: %w", table, err)
	}
	return nil
}
