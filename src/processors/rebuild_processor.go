package processors

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/utils"
)

// Aggregatable reports whether tx can contribute to the summary. The service
// rejects such transactions at submission; rows edited by hand in the store
// can still carry them, and both summary paths skip them.
func Aggregatable(tx models.Transaction) bool {
	return !NewItemKey(tx.ItemType, tx.ItemDescription).IsEmpty() &&
		tx.Quantity.IsPositive() &&
		!tx.Price.IsNegative()
}

type rebuildProcessorImpl struct{}

func NewRebuildProcessor() RebuildProcessor {
	return &rebuildProcessorImpl{}
}

type itemTotals struct {
	key       ItemKey
	addQty    decimal.Decimal
	addValue  decimal.Decimal
	sellQty   decimal.Decimal
	sellValue decimal.Decimal
}

// Rebuild is a pure function of the log. The display form of each item is
// the first one seen in log order. Rows come back sorted by item type, then
// description, case-insensitively.
func (p *rebuildProcessorImpl) Rebuild(transactions []models.Transaction) []models.SummaryRow {
	totalsByKey := make(map[NormalizedKey]*itemTotals)
	var order []NormalizedKey

	for _, tx := range transactions {
		if !Aggregatable(tx) {
			logger.L.Warn("Skipping transaction that cannot be aggregated", "id", tx.ID, "itemType", tx.ItemType, "quantity", tx.Quantity.String())
			continue
		}
		key := NewItemKey(tx.ItemType, tx.ItemDescription)
		nk := key.Normalized()
		t, ok := totalsByKey[nk]
		if !ok {
			t = &itemTotals{key: key}
			totalsByKey[nk] = t
			order = append(order, nk)
		}
		value := tx.Value()
		switch tx.Type {
		case models.TransactionAdd:
			t.addQty = t.addQty.Add(tx.Quantity)
			t.addValue = t.addValue.Add(value)
		case models.TransactionSell:
			t.sellQty = t.sellQty.Add(tx.Quantity)
			t.sellValue = t.sellValue.Add(value)
		}
	}

	rows := make([]models.SummaryRow, 0, len(order))
	for _, nk := range order {
		t := totalsByKey[nk]
		rows = append(rows, models.SummaryRow{
			ItemType:           t.key.Type,
			ItemDescription:    t.key.Description,
			InStock:            t.addQty.Sub(t.sellQty),
			TotalPurchased:     t.addQty,
			AvgPurchasePrice:   utils.SafeDiv(t.addValue, t.addQty),
			TotalPurchaseValue: t.addValue,
			TotalSold:          t.sellQty,
			AvgSalePrice:       utils.SafeDiv(t.sellValue, t.sellQty),
			TotalSalesValue:    t.sellValue,
		})
	}
	SortSummaryRows(rows)
	return rows
}

// SortSummaryRows orders rows by item type, then description, ignoring case.
func SortSummaryRows(rows []models.SummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := strings.ToLower(rows[i].ItemType), strings.ToLower(rows[j].ItemType)
		if ti != tj {
			return ti < tj
		}
		return strings.ToLower(rows[i].ItemDescription) < strings.ToLower(rows[j].ItemDescription)
	})
}

// Divergence is one summary field where the stored (incremental) value and
// the rebuilt value disagree by more than the tolerance.
type Divergence struct {
	Key         ItemKey         `json:"-"`
	ItemType    string          `json:"itemType"`
	Description string          `json:"itemDescription"`
	Field       string          `json:"field"`
	Stored      decimal.Decimal `json:"stored"`
	Rebuilt     decimal.Decimal `json:"rebuilt"`
}

// DefaultTolerance absorbs one rounding step per stored write.
var DefaultTolerance = decimal.New(1, -2)

// Diff compares the stored summary with a rebuild. An item missing on one
// side is compared against an all-zero row, so a stale row of zeros is not
// reported.
func Diff(stored, rebuilt []models.SummaryRow, tolerance decimal.Decimal) []Divergence {
	storedByKey := make(map[NormalizedKey]models.SummaryRow, len(stored))
	var keys []NormalizedKey
	seen := make(map[NormalizedKey]bool)
	for _, r := range stored {
		nk := NewItemKey(r.ItemType, r.ItemDescription).Normalized()
		storedByKey[nk] = r
		if !seen[nk] {
			seen[nk] = true
			keys = append(keys, nk)
		}
	}
	rebuiltByKey := make(map[NormalizedKey]models.SummaryRow, len(rebuilt))
	for _, r := range rebuilt {
		nk := NewItemKey(r.ItemType, r.ItemDescription).Normalized()
		rebuiltByKey[nk] = r
		if !seen[nk] {
			seen[nk] = true
			keys = append(keys, nk)
		}
	}

	var out []Divergence
	for _, nk := range keys {
		s, inStored := storedByKey[nk]
		r := rebuiltByKey[nk]
		key := NewItemKey(s.ItemType, s.ItemDescription)
		if !inStored {
			key = NewItemKey(r.ItemType, r.ItemDescription)
		}
		for _, f := range summaryFields {
			sv, rv := f.get(s), f.get(r)
			if sv.Sub(rv).Abs().GreaterThan(tolerance) {
				out = append(out, Divergence{
					Key:         key,
					ItemType:    key.Type,
					Description: key.Description,
					Field:       f.name,
					Stored:      sv,
					Rebuilt:     rv,
				})
			}
		}
	}
	return out
}

type summaryField struct {
	name string
	get  func(models.SummaryRow) decimal.Decimal
}

var summaryFields = []summaryField{
	{"inStock", func(r models.SummaryRow) decimal.Decimal { return r.InStock }},
	{"totalPurchased", func(r models.SummaryRow) decimal.Decimal { return r.TotalPurchased }},
	{"avgPurchasePrice", func(r models.SummaryRow) decimal.Decimal { return r.AvgPurchasePrice }},
	{"totalPurchaseValue", func(r models.SummaryRow) decimal.Decimal { return r.TotalPurchaseValue }},
	{"totalSold", func(r models.SummaryRow) decimal.Decimal { return r.TotalSold }},
	{"avgSalePrice", func(r models.SummaryRow) decimal.Decimal { return r.AvgSalePrice }},
	{"totalSalesValue", func(r models.SummaryRow) decimal.Decimal { return r.TotalSalesValue }},
}
