package store

import (
	"context"
	"time"

	"github.com/username/painthouse/src/metrics"
)

type instrumentedStore struct {
	next TabularStore
}

// Instrument records latency and failures of every call to next.
func Instrument(next TabularStore) TabularStore {
	return &instrumentedStore{next: next}
}

func observe(table Table, op string, start time.Time, err error) {
	metrics.StoreRequestDuration.WithLabelValues(string(table), op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(string(table), op).Inc()
	}
}

func (s *instrumentedStore) GetRows(ctx context.Context, table Table, r RowRange) (rows [][]string, err error) {
	defer func(start time.Time) { observe(table, "get_rows", start, err) }(time.Now())
	return s.next.GetRows(ctx, table, r)
}

func (s *instrumentedStore) AppendRows(ctx context.Context, table Table, rows [][]string) (err error) {
	defer func(start time.Time) { observe(table, "append_rows", start, err) }(time.Now())
	return s.next.AppendRows(ctx, table, rows)
}

func (s *instrumentedStore) UpdateRow(ctx context.Context, table Table, position int, row []string) (err error) {
	defer func(start time.Time) { observe(table, "update_row", start, err) }(time.Now())
	return s.next.UpdateRow(ctx, table, position, row)
}

func (s *instrumentedStore) DeleteRow(ctx context.Context, table Table, position int) (err error) {
	defer func(start time.Time) { observe(table, "delete_row", start, err) }(time.Now())
	return s.next.DeleteRow(ctx, table, position)
}

func (s *instrumentedStore) ClearRange(ctx context.Context, table Table, r RowRange) (err error) {
	defer func(start time.Time) { observe(table, "clear_range", start, err) }(time.Now())
	return s.next.ClearRange(ctx, table, r)
}
