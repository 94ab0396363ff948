package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/painthouse/src/database"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

func TestSQLiteStore_appendAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendRows(ctx, TransactionHistory, [][]string{{"a", "1"}, {"b", "2"}}))
	require.NoError(t, AppendRow(ctx, s, TransactionHistory, []string{"c", "3", ""}))
	require.NoError(t, AppendRow(ctx, s, InventorySummary, []string{"other"}))

	rows, err := s.GetRows(ctx, TransactionHistory, AllRows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}}, rows)

	rows, err = s.GetRows(ctx, TransactionHistory, RowRange{Start: 1, End: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "2"}}, rows)
}

func TestSQLiteStore_updateRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.AppendRows(ctx, InventorySummary, [][]string{{"a"}, {"b"}}))

	require.NoError(t, s.UpdateRow(ctx, InventorySummary, 1, []string{"B", "x"}))
	rows, err := s.GetRows(ctx, InventorySummary, AllRows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"B", "x"}}, rows)

	err = s.UpdateRow(ctx, InventorySummary, 5, []string{"nope"})
	assert.ErrorIs(t, err, ErrRowOutOfRange)
}

func TestSQLiteStore_deleteRowShiftsLaterRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.AppendRows(ctx, TransactionHistory, [][]string{{"a"}, {"b"}, {"c"}, {"d"}}))

	require.NoError(t, s.DeleteRow(ctx, TransactionHistory, 1))
	rows, err := s.GetRows(ctx, TransactionHistory, AllRows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"c"}, {"d"}}, rows)

	require.NoError(t, AppendRow(ctx, s, TransactionHistory, []string{"e"}))
	rows, err = s.GetRows(ctx, TransactionHistory, RowRange{Start: 3})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"e"}}, rows)

	assert.ErrorIs(t, s.DeleteRow(ctx, TransactionHistory, 10), ErrRowOutOfRange)
}

func TestSQLiteStore_clearRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.AppendRows(ctx, SalesSummary, [][]string{{"a"}, {"b"}, {"c"}}))

	require.NoError(t, s.ClearRange(ctx, SalesSummary, RowRange{Start: 0, End: 1}))
	rows, err := s.GetRows(ctx, SalesSummary, AllRows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{}, {"b"}, {"c"}}, rows)

	require.NoError(t, s.ClearRange(ctx, SalesSummary, RowRange{Start: 1}))
	rows, err = s.GetRows(ctx, SalesSummary, AllRows)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.AppendRows(ctx, InventorySummary, [][]string{{"old1"}, {"old2"}, {"old3"}}))

	require.NoError(t, ReplaceAll(ctx, s, InventorySummary, [][]string{{"new"}}))
	rows, err := s.GetRows(ctx, InventorySummary, AllRows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"new"}}, rows)
}

func TestInstrument_passesThrough(t *testing.T) {
	ctx := context.Background()
	s := Instrument(newTestStore(t))
	require.NoError(t, AppendRow(ctx, s, TransactionHistory, []string{"a"}))
	rows, err := s.GetRows(ctx, TransactionHistory, AllRows)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Error(t, s.DeleteRow(ctx, TransactionHistory, 3))
}
