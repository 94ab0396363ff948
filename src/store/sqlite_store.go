package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SQLiteStore keeps every table in sheet_rows, one row per data row, with
// the cells JSON-encoded. Positions are dense and 0-based like sheet rows.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) GetRows(ctx context.Context, table Table, r RowRange) ([][]string, error) {
	query := "SELECT cells FROM sheet_rows WHERE sheet = ? AND position >= ?"
	args := []interface{}{string(table), r.Start}
	if r.End > 0 {
		query += " AND position < ?"
		args = append(args, r.End)
	}
	query += " ORDER BY position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", table, err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table, err)
	}
	return out, nil
}

func (s *SQLiteStore) AppendRows(ctx context.Context, table Table, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position) + 1, 0) FROM sheet_rows WHERE sheet = ?", string(table)).Scan(&next); err != nil {
			return fmt.Errorf("finding end of %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO sheet_rows (sheet, position, cells) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, row := range rows {
			raw, err := encodeCells(row)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, string(table), next+i, raw); err != nil {
				return fmt.Errorf("appending to %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) UpdateRow(ctx context.Context, table Table, position int, row []string) error {
	raw, err := encodeCells(row)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE sheet_rows SET cells = ?, updated_at = CURRENT_TIMESTAMP WHERE sheet = ? AND position = ?",
		raw, string(table), position)
	if err != nil {
		return fmt.Errorf("updating %s row %d: %w", table, position, err)
	}
	return requireOneRow(res, table, position)
}

func (s *SQLiteStore) DeleteRow(ctx context.Context, table Table, position int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE sheet = ? AND position = ?", string(table), position)
		if err != nil {
			return fmt.Errorf("deleting %s row %d: %w", table, position, err)
		}
		if err := requireOneRow(res, table, position); err != nil {
			return err
		}
		// Shift in two steps so the primary key never collides mid-update.
		if _, err := tx.ExecContext(ctx, "UPDATE sheet_rows SET position = -position WHERE sheet = ? AND position > ?", string(table), position); err != nil {
			return fmt.Errorf("shifting %s rows: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE sheet_rows SET position = -position - 1 WHERE sheet = ? AND position < 0", string(table)); err != nil {
			return fmt.Errorf("shifting %s rows: %w", table, err)
		}
		return nil
	})
}

// ClearRange blanks cells in place, then drops trailing blank rows so the
// next append lands directly after the last row with data.
func (s *SQLiteStore) ClearRange(ctx context.Context, table Table, r RowRange) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query := "UPDATE sheet_rows SET cells = '[]', updated_at = CURRENT_TIMESTAMP WHERE sheet = ? AND position >= ?"
		args := []interface{}{string(table), r.Start}
		if r.End > 0 {
			query += " AND position < ?"
			args = append(args, r.End)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}

		var lastFilled sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(position) FROM sheet_rows WHERE sheet = ? AND cells NOT IN ('[]', 'null')",
			string(table)).Scan(&lastFilled); err != nil {
			return fmt.Errorf("finding last row of %s: %w", table, err)
		}
		cutoff := int64(-1)
		if lastFilled.Valid {
			cutoff = lastFilled.Int64
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE sheet = ? AND position > ?", string(table), cutoff); err != nil {
			return fmt.Errorf("trimming %s: %w", table, err)
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// encodeCells stores rows with trailing blank cells trimmed, matching what
// a spreadsheet read returns.
func encodeCells(row []string) (string, error) {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	raw, err := json.Marshal(row[:end])
	if err != nil {
		return "", fmt.Errorf("encoding row: %w", err)
	}
	return string(raw), nil
}

func requireOneRow(res sql.Result, table Table, position int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s row %d: %w", table, position, ErrRowOutOfRange)
	}
	return nil
}
