package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/metrics"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/store"
	"github.com/username/painthouse/src/utils"
	"github.com/username/painthouse/src/validation"
)

const (
	ckTransactionLog   = "res_transaction_log"
	ckInventorySummary = "res_inventory_summary"

	DefaultCacheExpiration = time.Minute
	CacheCleanupInterval   = 5 * time.Minute
)

// inventoryServiceImpl runs every operation against the tabular store. Reads
// for display go through reportCache; mutations always re-read the tables
// they address, because row positions change whenever anyone writes.
//
// writeMu serialises mutations made through this instance only. Two
// instances (or a person editing the sheet) can still lose an update to the
// same summary row; RebuildSummary converges the table back to the log.
type inventoryServiceImpl struct {
	store            store.TabularStore
	summaryProcessor processors.SummaryProcessor
	rebuildProcessor processors.RebuildProcessor
	salesProcessor   processors.SalesSummaryProcessor
	reportCache      *cache.Cache
	loc              *time.Location

	now   func() time.Time
	newID func() (string, error)

	writeMu sync.RWMutex
}

func NewInventoryService(
	tabularStore store.TabularStore,
	summaryProcessor processors.SummaryProcessor,
	rebuildProcessor processors.RebuildProcessor,
	salesProcessor processors.SalesSummaryProcessor,
	reportCache *cache.Cache,
	loc *time.Location,
) InventoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &inventoryServiceImpl{
		store:            tabularStore,
		summaryProcessor: summaryProcessor,
		rebuildProcessor: rebuildProcessor,
		salesProcessor:   salesProcessor,
		reportCache:      reportCache,
		loc:              loc,
		now:              time.Now,
		newID:            newTransactionID,
	}
}

// newTransactionID returns a time-ordered UUIDv7, so ids sort in creation order.
func newTransactionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *inventoryServiceImpl) AddItem(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.record(ctx, models.TransactionAdd, in)
	recordOutcome("add_item", err)
	return tx, err
}

func (s *inventoryServiceImpl) SellItem(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.record(ctx, models.TransactionSell, in)
	recordOutcome("sell_item", err)
	return tx, err
}

// record logs a new transaction and applies it to its summary row.
func (s *inventoryServiceImpl) record(ctx context.Context, txType models.TransactionType, in TransactionInput) (*models.Transaction, error) {
	log := logger.FromContext(ctx)
	tx, err := transactionFromInput(in)
	if err != nil {
		return nil, err
	}
	tx.Type = txType
	if tx.ID, err = s.newID(); err != nil {
		return nil, fmt.Errorf("generating transaction id: %w", err)
	}
	tx.Timestamp = utils.FormatTimestamp(s.now().In(s.loc))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer s.invalidateCache()

	if err := store.AppendRow(ctx, s.store, store.TransactionHistory, tx.ToRow()); err != nil {
		return nil, storeErr("appending transaction", err)
	}
	log.Info("Transaction logged", "id", tx.ID, "type", tx.Type, "item", tx.ItemType+" / "+tx.ItemDescription)

	summary, err := s.readSummary(ctx)
	if err != nil {
		log.Error("Summary read failed after logging transaction", "id", tx.ID, "error", err)
		return &tx, staleErr(err)
	}
	key := processors.NewItemKey(tx.ItemType, tx.ItemDescription)
	current := summary.lookup(key)
	updated := s.summaryProcessor.Apply(tx, rowOf(current))
	if err := s.writeSummaryRow(ctx, current, updated); err != nil {
		log.Error("Summary write failed after logging transaction", "id", tx.ID, "error", err)
		return &tx, staleErr(err)
	}
	return &tx, nil
}

func (s *inventoryServiceImpl) EditTransaction(ctx context.Context, id string, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.edit(ctx, id, in)
	recordOutcome("edit_transaction", err)
	return tx, err
}

func (s *inventoryServiceImpl) edit(ctx context.Context, id string, in TransactionInput) (*models.Transaction, error) {
	log := logger.FromContext(ctx)
	newTx, err := transactionFromInput(in)
	if err != nil {
		return nil, err
	}
	var newType models.TransactionType
	if strings.TrimSpace(in.Type) != "" {
		if newType, err = models.ParseTransactionType(in.Type); err != nil {
			return nil, &ValidationError{Field: "transactionType", Reason: "must be Add or Sell"}
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readLog(ctx)
	if err != nil {
		return nil, err
	}
	old, ok := findTransaction(entries, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	newTx.ID = old.ID
	newTx.Type = old.Type
	if newType != "" {
		newTx.Type = newType
	}
	if strings.TrimSpace(in.Timestamp) != "" {
		newTx.Timestamp = strings.TrimSpace(in.Timestamp)
	} else {
		newTx.Timestamp = old.Timestamp
	}

	// One snapshot serves both the undo and the apply.
	summary, err := s.readSummary(ctx)
	if err != nil {
		return nil, err
	}

	defer s.invalidateCache()
	if err := s.store.UpdateRow(ctx, store.TransactionHistory, old.Row, newTx.ToRow()); err != nil {
		return nil, storeErr("updating transaction", err)
	}
	log.Info("Transaction edited", "id", id)

	oldKey := processors.NewItemKey(old.ItemType, old.ItemDescription)
	newKey := processors.NewItemKey(newTx.ItemType, newTx.ItemDescription)
	oldEntry := summary.lookup(oldKey)
	newEntry := summary.lookup(newKey)

	if !processors.Aggregatable(old.Transaction) {
		// The old row never reached the summary, so there is nothing to undo.
		if err := s.writeSummaryRow(ctx, newEntry, s.summaryProcessor.Apply(newTx, rowOf(newEntry))); err != nil {
			return &newTx, staleErr(err)
		}
		return &newTx, nil
	}
	res := s.summaryProcessor.Edit(old.Transaction, newTx, rowOf(oldEntry), rowOf(newEntry))
	if res.SameKey {
		if err := s.writeSummaryRow(ctx, oldEntry, res.NewRow); err != nil {
			return &newTx, staleErr(err)
		}
		return &newTx, nil
	}
	if err := s.writeSummaryRow(ctx, oldEntry, res.OldRow); err != nil {
		return &newTx, staleErr(err)
	}
	if err := s.writeSummaryRow(ctx, newEntry, res.NewRow); err != nil {
		log.Error("Edit left the old item updated but not the new one", "id", id, "oldItem", res.OldKey.String(), "newItem", res.NewKey.String())
		return &newTx, staleErr(err)
	}
	return &newTx, nil
}

func (s *inventoryServiceImpl) DeleteTransaction(ctx context.Context, id string) error {
	err := s.delete(ctx, id)
	recordOutcome("delete_transaction", err)
	return err
}

func (s *inventoryServiceImpl) delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readLog(ctx)
	if err != nil {
		return err
	}
	old, ok := findTransaction(entries, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	summary, err := s.readSummary(ctx)
	if err != nil {
		return err
	}

	defer s.invalidateCache()
	if err := s.store.DeleteRow(ctx, store.TransactionHistory, old.Row); err != nil {
		return storeErr("deleting transaction", err)
	}
	logger.FromContext(ctx).Info("Transaction deleted", "id", id)

	// Rows the summary cannot hold were never applied.
	if !processors.Aggregatable(old.Transaction) {
		return nil
	}
	current := summary.lookup(processors.NewItemKey(old.ItemType, old.ItemDescription))
	undone := s.summaryProcessor.Undo(old.Transaction, rowOf(current))
	if err := s.writeSummaryRow(ctx, current, undone); err != nil {
		return staleErr(err)
	}
	return nil
}

func (s *inventoryServiceImpl) GetInventorySummary(ctx context.Context) ([]models.SummaryRow, error) {
	if cached, found := s.reportCache.Get(ckInventorySummary); found {
		logger.FromContext(ctx).Debug("Cache hit for inventory summary")
		return cached.([]models.SummaryRow), nil
	}
	summary, err := s.readSummary(ctx)
	if err != nil {
		recordOutcome("get_inventory_summary", err)
		return nil, err
	}
	rows := make([]models.SummaryRow, 0, len(summary.entries))
	for _, e := range summary.entries {
		rows = append(rows, e.SummaryRow.WithRatios())
	}
	s.reportCache.Set(ckInventorySummary, rows, cache.DefaultExpiration)
	return rows, nil
}

func (s *inventoryServiceImpl) GetSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error) {
	txs, err := s.cachedTransactions(ctx)
	if err != nil {
		recordOutcome("get_sales_summary", err)
		return nil, err
	}
	rows := s.salesProcessor.Summarize(txs, filter)
	processors.SortSalesRows(rows)
	return rows, nil
}

func (s *inventoryServiceImpl) GetTransactionHistory(ctx context.Context, filter HistoryFilter) ([]models.Transaction, error) {
	txs, err := s.cachedTransactions(ctx)
	if err != nil {
		recordOutcome("get_transaction_history", err)
		return nil, err
	}

	type dated struct {
		tx    models.Transaction
		at    time.Time
		known bool
	}
	var out []dated
	// Walk backwards so equal timestamps keep newest-logged first.
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		at, known := utils.ParseTimestamp(tx.Timestamp, s.loc)
		if filter.From != nil || filter.To != nil {
			if !known {
				continue
			}
			day := utils.DateIn(at, s.loc)
			if filter.From != nil && day.Before(*filter.From) {
				continue
			}
			if filter.To != nil && filter.To.Before(day) {
				continue
			}
		}
		out = append(out, dated{tx: tx, at: at, known: known})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].known != out[j].known {
			return out[i].known
		}
		return out[i].known && out[i].at.After(out[j].at)
	})

	history := make([]models.Transaction, len(out))
	for i, d := range out {
		history[i] = d.tx
	}
	return history, nil
}

func (s *inventoryServiceImpl) RebuildSummary(ctx context.Context) ([]models.SummaryRow, error) {
	rows, err := s.rebuild(ctx)
	recordOutcome("rebuild_summary", err)
	return rows, err
}

func (s *inventoryServiceImpl) rebuild(ctx context.Context) ([]models.SummaryRow, error) {
	start := time.Now()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readLog(ctx)
	if err != nil {
		return nil, err
	}
	rows := s.rebuildProcessor.Rebuild(transactionsOf(entries))

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.ToRow()
	}
	defer s.invalidateCache()
	if err := store.ReplaceAll(ctx, s.store, store.InventorySummary, cells); err != nil {
		return nil, storeErr("rewriting summary", err)
	}
	metrics.RebuildsTotal.Inc()
	metrics.SummaryDriftItems.Set(0)
	logger.FromContext(ctx).Info("Inventory summary rebuilt", "items", len(rows), "transactions", len(entries), "duration", time.Since(start))

	out := make([]models.SummaryRow, len(rows))
	for i, r := range rows {
		out[i] = r.Rounded().WithRatios()
	}
	return out, nil
}

func (s *inventoryServiceImpl) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report, err := s.reconcile(ctx)
	recordOutcome("reconcile", err)
	return report, err
}

func (s *inventoryServiceImpl) reconcile(ctx context.Context) (*ReconcileReport, error) {
	log := logger.FromContext(ctx)
	// A write holds the lock between its log and summary updates, so the
	// comparison never sees one without the other.
	s.writeMu.RLock()
	defer s.writeMu.RUnlock()

	entries, err := s.readLog(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.readSummary(ctx)
	if err != nil {
		return nil, err
	}
	stored := make([]models.SummaryRow, len(summary.entries))
	for i, e := range summary.entries {
		stored[i] = e.SummaryRow
	}
	rebuilt := s.rebuildProcessor.Rebuild(transactionsOf(entries))
	divergences := processors.Diff(stored, rebuilt, processors.DefaultTolerance)

	items := make(map[processors.NormalizedKey]bool)
	for _, d := range divergences {
		items[d.Key.Normalized()] = true
		log.Warn("Inventory summary diverges from transaction log",
			"itemType", d.ItemType, "itemDescription", d.Description, "field", d.Field,
			"stored", d.Stored.String(), "rebuilt", d.Rebuilt.String())
	}
	metrics.SummaryDriftItems.Set(float64(len(items)))
	if len(items) == 0 {
		log.Info("Inventory summary consistent with transaction log", "items", len(rebuilt))
	}
	if divergences == nil {
		divergences = []processors.Divergence{}
	}
	return &ReconcileReport{
		Consistent:  len(divergences) == 0,
		ItemsDrift:  len(items),
		Divergences: divergences,
	}, nil
}

func (s *inventoryServiceImpl) PublishSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error) {
	rows, err := s.publishSales(ctx, filter)
	recordOutcome("publish_sales_summary", err)
	return rows, err
}

func (s *inventoryServiceImpl) publishSales(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readLog(ctx)
	if err != nil {
		return nil, err
	}
	rows := s.salesProcessor.Summarize(transactionsOf(entries), filter)
	processors.SortSalesRows(rows)

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.ToRow()
	}
	if err := store.ReplaceAll(ctx, s.store, store.SalesSummary, cells); err != nil {
		return nil, storeErr("writing sales summary", err)
	}
	logger.FromContext(ctx).Info("Sales summary published", "rows", len(rows))
	return rows, nil
}

// --- store access ---

func (s *inventoryServiceImpl) readLog(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := s.store.GetRows(ctx, store.TransactionHistory, store.AllRows)
	if err != nil {
		return nil, storeErr("reading transaction log", err)
	}
	entries := make([]models.LogEntry, 0, len(rows))
	for i, row := range rows {
		tx, ok := models.TransactionFromRow(row)
		if !ok {
			continue
		}
		entries = append(entries, models.LogEntry{Row: i, Transaction: tx})
	}
	return entries, nil
}

func (s *inventoryServiceImpl) cachedTransactions(ctx context.Context) ([]models.Transaction, error) {
	if cached, found := s.reportCache.Get(ckTransactionLog); found {
		logger.FromContext(ctx).Debug("Cache hit for transaction log")
		return cached.([]models.Transaction), nil
	}
	entries, err := s.readLog(ctx)
	if err != nil {
		return nil, err
	}
	txs := transactionsOf(entries)
	s.reportCache.Set(ckTransactionLog, txs, cache.DefaultExpiration)
	return txs, nil
}

// summarySnapshot is one read of the Inventory Summary table.
type summarySnapshot struct {
	entries []models.SummaryEntry
	byKey   map[processors.NormalizedKey]*models.SummaryEntry
}

func (s *inventoryServiceImpl) readSummary(ctx context.Context) (*summarySnapshot, error) {
	rows, err := s.store.GetRows(ctx, store.InventorySummary, store.AllRows)
	if err != nil {
		return nil, storeErr("reading inventory summary", err)
	}
	snap := &summarySnapshot{byKey: make(map[processors.NormalizedKey]*models.SummaryEntry)}
	for i, row := range rows {
		r, ok := models.SummaryRowFromRow(row)
		if !ok {
			continue
		}
		snap.entries = append(snap.entries, models.SummaryEntry{Row: i, SummaryRow: r})
	}
	for i := range snap.entries {
		e := &snap.entries[i]
		nk := processors.NewItemKey(e.ItemType, e.ItemDescription).Normalized()
		if _, dup := snap.byKey[nk]; dup {
			logger.FromContext(ctx).Warn("Duplicate summary rows for item, using the first", "itemType", e.ItemType, "itemDescription", e.ItemDescription, "row", e.Row)
			continue
		}
		snap.byKey[nk] = e
	}
	return snap, nil
}

func (snap *summarySnapshot) lookup(key processors.ItemKey) *models.SummaryEntry {
	return snap.byKey[key.Normalized()]
}

func rowOf(entry *models.SummaryEntry) *models.SummaryRow {
	if entry == nil {
		return nil
	}
	return &entry.SummaryRow
}

// writeSummaryRow overwrites entry's row, or appends when the item has none.
func (s *inventoryServiceImpl) writeSummaryRow(ctx context.Context, entry *models.SummaryEntry, row models.SummaryRow) error {
	if entry == nil {
		return store.AppendRow(ctx, s.store, store.InventorySummary, row.ToRow())
	}
	// Keep the display form already on the sheet.
	row.ItemType = entry.ItemType
	row.ItemDescription = entry.ItemDescription
	return s.store.UpdateRow(ctx, store.InventorySummary, entry.Row, row.ToRow())
}

func (s *inventoryServiceImpl) invalidateCache() {
	s.reportCache.Delete(ckTransactionLog)
	s.reportCache.Delete(ckInventorySummary)
	logger.L.Debug("Invalidated report caches")
}

// --- helpers ---

func transactionFromInput(in TransactionInput) (models.Transaction, error) {
	// Key fields keep their inner whitespace; only the edges are trimmed.
	itemType := strings.TrimSpace(validation.StripUnprintable(in.ItemType))
	itemDesc := strings.TrimSpace(validation.StripUnprintable(in.ItemDescription))
	switch {
	case itemType == "":
		return models.Transaction{}, &ValidationError{Field: "itemType", Reason: "is required"}
	case itemDesc == "":
		return models.Transaction{}, &ValidationError{Field: "itemDescription", Reason: "is required"}
	case in.Quantity == nil:
		return models.Transaction{}, &ValidationError{Field: "quantity", Reason: "is required"}
	case in.Price == nil:
		return models.Transaction{}, &ValidationError{Field: "price", Reason: "is required"}
	}
	// Quantities and prices are kept at the same two places as the summary.
	qty := utils.RoundMoney(*in.Quantity)
	price := utils.RoundMoney(*in.Price)
	switch {
	case !qty.IsPositive():
		return models.Transaction{}, &ValidationError{Field: "quantity", Reason: "must be at least 0.01"}
	case price.IsNegative():
		return models.Transaction{}, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return models.Transaction{
		ItemType:        itemType,
		ItemDescription: itemDesc,
		Quantity:        qty,
		Price:           price,
		Mode:            strings.TrimSpace(validation.CleanText(in.Mode, true)),
		Note:            strings.TrimSpace(validation.CleanText(in.Note, false)),
	}, nil
}

func findTransaction(entries []models.LogEntry, id string) (models.LogEntry, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.LogEntry{}, false
	}
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.LogEntry{}, false
}

func transactionsOf(entries []models.LogEntry) []models.Transaction {
	txs := make([]models.Transaction, len(entries))
	for i, e := range entries {
		txs[i] = e.Transaction
	}
	return txs
}

func recordOutcome(operation string, err error) {
	outcome := metrics.OutcomeOK
	var vErr *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &vErr), errors.Is(err, ErrValidation):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, ErrSummaryStale):
		outcome = metrics.OutcomeSummaryStale
	case errors.Is(err, ErrStoreIO):
		outcome = metrics.OutcomeStoreError
	default:
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}
