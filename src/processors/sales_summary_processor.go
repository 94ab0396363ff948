package processors

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/utils"
)

// SalesFilter bounds the report by sale day, inclusive at both ends. A nil
// bound is open. Sales with an unparseable date are only reported when no
// bound is set.
type SalesFilter struct {
	From *utils.CivilDate
	To   *utils.CivilDate
}

func (f SalesFilter) IsZero() bool {
	return f.From == nil && f.To == nil
}

func (f SalesFilter) includes(date utils.CivilDate, known bool) bool {
	if !known {
		return f.IsZero()
	}
	if f.From != nil && date.Before(*f.From) {
		return false
	}
	if f.To != nil && f.To.Before(date) {
		return false
	}
	return true
}

type salesSummaryProcessorImpl struct {
	loc *time.Location
}

// NewSalesSummaryProcessor parses stored timestamps in loc.
func NewSalesSummaryProcessor(loc *time.Location) SalesSummaryProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &salesSummaryProcessorImpl{loc: loc}
}

// purchaseBatch is the unconsumed remainder of one Add.
type purchaseBatch struct {
	remaining decimal.Decimal
	price     decimal.Decimal
}

type datedTx struct {
	tx    models.Transaction
	at    time.Time
	known bool
	seq   int
}

type saleGroup struct {
	date      utils.CivilDate
	known     bool
	first     time.Time
	key       ItemKey
	qty       decimal.Decimal
	value     decimal.Decimal
	costQty   decimal.Decimal
	costTotal decimal.Decimal
	unmatched decimal.Decimal
}

// Summarize groups sells by (day, item) and prices each group against the
// item's purchases, oldest first. Batches are consumed cumulatively: a day's
// sales only see what earlier days left over. Groups are matched in date
// order with unknown dates last, and the date filter is applied afterwards so
// filtered days still consume stock.
func (p *salesSummaryProcessorImpl) Summarize(transactions []models.Transaction, filter SalesFilter) []models.SalesSummaryRow {
	var adds, sells []datedTx
	for i, tx := range transactions {
		if !Aggregatable(tx) {
			continue
		}
		at, ok := utils.ParseTimestamp(tx.Timestamp, p.loc)
		d := datedTx{tx: tx, at: at, known: ok, seq: i}
		switch tx.Type {
		case models.TransactionAdd:
			adds = append(adds, d)
		case models.TransactionSell:
			if !ok {
				logger.L.Warn("Unparseable sale timestamp", "id", tx.ID, "timestamp", tx.Timestamp)
			}
			sells = append(sells, d)
		}
	}
	sortChronologically(adds)

	batches := make(map[NormalizedKey][]*purchaseBatch)
	for _, a := range adds {
		nk := NewItemKey(a.tx.ItemType, a.tx.ItemDescription).Normalized()
		batches[nk] = append(batches[nk], &purchaseBatch{remaining: a.tx.Quantity, price: a.tx.Price})
	}

	groups := groupSales(sells, p.loc)
	sort.SliceStable(groups, func(i, j int) bool {
		gi, gj := groups[i], groups[j]
		if gi.known != gj.known {
			return gi.known
		}
		if gi.known && gi.date != gj.date {
			return gi.date.Before(gj.date)
		}
		return gi.first.Before(gj.first)
	})

	for _, g := range groups {
		consumeFIFO(g, batches[g.key.Normalized()])
	}

	rows := make([]models.SalesSummaryRow, 0, len(groups))
	for _, g := range groups {
		if !filter.includes(g.date, g.known) {
			continue
		}
		rows = append(rows, g.toRow())
	}
	return rows
}

func sortChronologically(txs []datedTx) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if a.known != b.known {
			return a.known
		}
		if a.known && !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		return a.seq < b.seq
	})
}

func groupSales(sells []datedTx, loc *time.Location) []*saleGroup {
	type groupKey struct {
		date  utils.CivilDate
		known bool
		item  NormalizedKey
	}
	byKey := make(map[groupKey]*saleGroup)
	var groups []*saleGroup
	for _, s := range sells {
		key := NewItemKey(s.tx.ItemType, s.tx.ItemDescription)
		var date utils.CivilDate
		if s.known {
			date = utils.DateIn(s.at, loc)
		}
		gk := groupKey{date: date, known: s.known, item: key.Normalized()}
		g, ok := byKey[gk]
		if !ok {
			g = &saleGroup{date: date, known: s.known, first: s.at, key: key}
			byKey[gk] = g
			groups = append(groups, g)
		}
		if s.known && s.at.Before(g.first) {
			g.first = s.at
		}
		g.qty = g.qty.Add(s.tx.Quantity)
		g.value = g.value.Add(s.tx.Value())
	}
	return groups
}

// consumeFIFO covers g.qty from the oldest batches with stock left. Whatever
// the batches cannot cover is recorded as unmatched and carries no cost.
func consumeFIFO(g *saleGroup, batches []*purchaseBatch) {
	need := g.qty
	for _, b := range batches {
		if !need.IsPositive() {
			break
		}
		if !b.remaining.IsPositive() {
			continue
		}
		take := decimal.Min(need, b.remaining)
		b.remaining = b.remaining.Sub(take)
		need = need.Sub(take)
		g.costQty = g.costQty.Add(take)
		g.costTotal = g.costTotal.Add(utils.LineValue(take, b.price))
	}
	if need.IsPositive() {
		g.unmatched = need
	}
}

func (g *saleGroup) toRow() models.SalesSummaryRow {
	row := models.SalesSummaryRow{
		Date:            models.UnknownDate,
		ItemType:        g.key.Type,
		ItemDescription: g.key.Description,
		Quantity:        g.qty,
		AvgPrice:        utils.SafeDiv(g.value, g.qty),
		TotalValue:      g.value,
		CostPrice:       utils.SafeDiv(g.costTotal, g.costQty),
		CostTotal:       g.costTotal,
		UnmatchedQty:    g.unmatched,
	}
	if g.known {
		row.Date = g.date.String()
		row.ISODate = g.date.ISO()
	}
	if g.costTotal.IsPositive() {
		row.Margin = utils.Percent(g.value.Sub(g.costTotal), g.costTotal)
	}
	return row
}

// SortSalesRows orders report rows by day, then item, for display. Unknown
// dates go last.
func SortSalesRows(rows []models.SalesSummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.ISODate == "") != (b.ISODate == "") {
			return a.ISODate != ""
		}
		if a.ISODate != b.ISODate {
			return a.ISODate < b.ISODate
		}
		ta, tb := strings.ToLower(a.ItemType), strings.ToLower(b.ItemType)
		if ta != tb {
			return ta < tb
		}
		return strings.ToLower(a.ItemDescription) < strings.ToLower(b.ItemDescription)
	})
}
