package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/utils"
)

// summaryProcessorImpl is the incremental side of the aggregation engine: it
// moves one summary row forward (apply) or backward (undo) by a single
// transaction without looking at the rest of the log.
//
// Totals move by whole line values (utils.LineValue), so a stored row read
// back and undone returns exactly to its earlier totals. Averages are derived
// from the totals and rounded only when written.
type summaryProcessorImpl struct{}

func NewSummaryProcessor() SummaryProcessor {
	return &summaryProcessorImpl{}
}

// startRow returns the row to build on: the current row, or an empty row
// carrying key's display form when the item has no summary yet.
func startRow(key ItemKey, current *models.SummaryRow) models.SummaryRow {
	if current != nil {
		return *current
	}
	return models.SummaryRow{ItemType: key.Type, ItemDescription: key.Description}
}

func (p *summaryProcessorImpl) ApplyAdd(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow {
	row := startRow(key, current)
	row.InStock = row.InStock.Add(qty)
	row.TotalPurchased = row.TotalPurchased.Add(qty)
	row.TotalPurchaseValue = row.TotalPurchaseValue.Add(utils.LineValue(qty, price))
	row.AvgPurchasePrice = utils.SafeDiv(row.TotalPurchaseValue, row.TotalPurchased)
	return row
}

// ApplySell accepts sales of items never purchased; stock simply goes negative.
func (p *summaryProcessorImpl) ApplySell(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow {
	row := startRow(key, current)
	row.InStock = row.InStock.Sub(qty)
	row.TotalSold = row.TotalSold.Add(qty)
	row.TotalSalesValue = row.TotalSalesValue.Add(utils.LineValue(qty, price))
	row.AvgSalePrice = utils.SafeDiv(row.TotalSalesValue, row.TotalSold)
	return row
}

// UndoAdd removes a purchase. When nothing purchased remains the average is
// floored to zero instead of dividing by a zero or negative quantity.
func (p *summaryProcessorImpl) UndoAdd(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow {
	row := startRow(key, current)
	row.InStock = row.InStock.Sub(qty)
	row.TotalPurchased = row.TotalPurchased.Sub(qty)
	row.TotalPurchaseValue = row.TotalPurchaseValue.Sub(utils.LineValue(qty, price))
	row.AvgPurchasePrice = utils.SafeDiv(row.TotalPurchaseValue, row.TotalPurchased)
	return row
}

func (p *summaryProcessorImpl) UndoSell(key ItemKey, qty, price decimal.Decimal, current *models.SummaryRow) models.SummaryRow {
	row := startRow(key, current)
	row.InStock = row.InStock.Add(qty)
	row.TotalSold = row.TotalSold.Sub(qty)
	row.TotalSalesValue = row.TotalSalesValue.Sub(utils.LineValue(qty, price))
	row.AvgSalePrice = utils.SafeDiv(row.TotalSalesValue, row.TotalSold)
	return row
}

// Apply dispatches on the transaction type.
func (p *summaryProcessorImpl) Apply(tx models.Transaction, current *models.SummaryRow) models.SummaryRow {
	key := NewItemKey(tx.ItemType, tx.ItemDescription)
	if tx.Type == models.TransactionSell {
		return p.ApplySell(key, tx.Quantity, tx.Price, current)
	}
	return p.ApplyAdd(key, tx.Quantity, tx.Price, current)
}

// Undo is the inverse of Apply for the same transaction.
func (p *summaryProcessorImpl) Undo(tx models.Transaction, current *models.SummaryRow) models.SummaryRow {
	key := NewItemKey(tx.ItemType, tx.ItemDescription)
	if tx.Type == models.TransactionSell {
		return p.UndoSell(key, tx.Quantity, tx.Price, current)
	}
	return p.UndoAdd(key, tx.Quantity, tx.Price, current)
}

// EditResult holds the rows an edit must write. When SameKey is true only
// NewRow is written.
type EditResult struct {
	SameKey bool
	OldKey  ItemKey
	OldRow  models.SummaryRow
	NewKey  ItemKey
	NewRow  models.SummaryRow
}

// Edit undoes oldTx and applies newTx. oldRow and newRow must come from the
// same read of the summary table; when the item key is unchanged they are the
// same row and newRow is ignored.
func (p *summaryProcessorImpl) Edit(oldTx, newTx models.Transaction, oldRow, newRow *models.SummaryRow) EditResult {
	oldKey := NewItemKey(oldTx.ItemType, oldTx.ItemDescription)
	newKey := NewItemKey(newTx.ItemType, newTx.ItemDescription)

	undone := p.Undo(oldTx, oldRow)
	if oldKey.Equal(newKey) {
		applied := p.Apply(newTx, &undone)
		return EditResult{SameKey: true, OldKey: oldKey, OldRow: applied, NewKey: newKey, NewRow: applied}
	}
	return EditResult{
		OldKey: oldKey,
		OldRow: undone,
		NewKey: newKey,
		NewRow: p.Apply(newTx, newRow),
	}
}
