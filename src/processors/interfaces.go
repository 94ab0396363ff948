package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/models"
)

// SummaryProcessor maintains a single summary row incrementally.
type SummaryProcessor interface {
	ApplyAdd(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow
	ApplySell(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow
	UndoAdd(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow
	UndoSell(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow
	Apply(tx models.Transaction, current *models.SummaryRow) models.SummaryRow
	Undo(tx models.Transaction, current *models.SummaryRow) models.SummaryRow
	Edit(oldTx, newTx models.Transaction, oldRow, newRow *models.SummaryRow) EditResult
}

// RebuildProcessor recomputes the whole summary table from the log.
type RebuildProcessor interface {
	Rebuild(transactions []models.Transaction) []models.SummaryRow
}

// SalesSummaryProcessor builds the day/item sales report with FIFO costs.
type SalesSummaryProcessor interface {
	Summarize(transactions []models.Transaction, filter SalesFilter) []models.SalesSummaryRow
}
