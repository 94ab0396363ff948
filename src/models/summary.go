package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/utils"
)

// SummaryRow is one row of the derived Inventory Summary table.
// Markup and Margin are computed for responses and never stored.
type SummaryRow struct {
	ItemType           string          `json:"itemType"`
	ItemDescription    string          `json:"itemDescription"`
	InStock            decimal.Decimal `json:"inStock"`
	TotalPurchased     decimal.Decimal `json:"totalPurchased"`
	AvgPurchasePrice   decimal.Decimal `json:"avgPurchasePrice"`
	TotalPurchaseValue decimal.Decimal `json:"totalPurchaseValue"`
	TotalSold          decimal.Decimal `json:"totalSold"`
	AvgSalePrice       decimal.Decimal `json:"avgSalePrice"`
	TotalSalesValue    decimal.Decimal `json:"totalSalesValue"`
	Markup             decimal.Decimal `json:"markup"`
	Margin             decimal.Decimal `json:"margin"`
}

// Column positions in the Inventory Summary table.
const (
	SumColItemType = iota
	SumColItemDescription
	SumColInStock
	SumColTotalPurchased
	SumColAvgPurchasePrice
	SumColTotalPurchaseValue
	SumColTotalSold
	SumColAvgSalePrice
	SumColTotalSalesValue
	SumColumnCount
)

var SummaryHeader = []string{
	"Item Type", "Item Description", "In Stock", "Total Purchased", "Avg Purchase Price",
	"Total Purchase Value", "Total Sold", "Avg Sale Price", "Total Sales Value",
}

// Rounded returns a copy with every numeric field rounded to two places,
// which is the form written to the store.
func (r SummaryRow) Rounded() SummaryRow {
	r.InStock = utils.RoundMoney(r.InStock)
	r.TotalPurchased = utils.RoundMoney(r.TotalPurchased)
	r.AvgPurchasePrice = utils.RoundMoney(r.AvgPurchasePrice)
	r.TotalPurchaseValue = utils.RoundMoney(r.TotalPurchaseValue)
	r.TotalSold = utils.RoundMoney(r.TotalSold)
	r.AvgSalePrice = utils.RoundMoney(r.AvgSalePrice)
	r.TotalSalesValue = utils.RoundMoney(r.TotalSalesValue)
	r.Markup = utils.RoundMoney(r.Markup)
	r.Margin = utils.RoundMoney(r.Margin)
	return r
}

// WithRatios fills Markup (over cost) and Margin (over sale price) from the
// average prices.
func (r SummaryRow) WithRatios() SummaryRow {
	spread := r.AvgSalePrice.Sub(r.AvgPurchasePrice)
	r.Markup = utils.RoundMoney(utils.Percent(spread, r.AvgPurchasePrice))
	r.Margin = utils.RoundMoney(utils.Percent(spread, r.AvgSalePrice))
	return r
}

// ToRow renders the row in Inventory Summary column order, rounded.
func (r SummaryRow) ToRow() []string {
	row := make([]string, SumColumnCount)
	row[SumColItemType] = r.ItemType
	row[SumColItemDescription] = r.ItemDescription
	row[SumColInStock] = utils.FormatDecimalCell(r.InStock)
	row[SumColTotalPurchased] = utils.FormatDecimalCell(r.TotalPurchased)
	row[SumColAvgPurchasePrice] = utils.FormatDecimalCell(r.AvgPurchasePrice)
	row[SumColTotalPurchaseValue] = utils.FormatDecimalCell(r.TotalPurchaseValue)
	row[SumColTotalSold] = utils.FormatDecimalCell(r.TotalSold)
	row[SumColAvgSalePrice] = utils.FormatDecimalCell(r.AvgSalePrice)
	row[SumColTotalSalesValue] = utils.FormatDecimalCell(r.TotalSalesValue)
	return row
}

// SummaryRowFromRow decodes a stored summary row; blank rows return ok=false.
func SummaryRowFromRow(row []string) (SummaryRow, bool) {
	itemType := strings.TrimSpace(cell(row, SumColItemType))
	itemDesc := strings.TrimSpace(cell(row, SumColItemDescription))
	if itemType == "" && itemDesc == "" {
		return SummaryRow{}, false
	}
	num := func(idx int) decimal.Decimal {
		d, _ := utils.ParseDecimalCell(cell(row, idx))
		return d
	}
	return SummaryRow{
		ItemType:           itemType,
		ItemDescription:    itemDesc,
		InStock:            num(SumColInStock),
		TotalPurchased:     num(SumColTotalPurchased),
		AvgPurchasePrice:   num(SumColAvgPurchasePrice),
		TotalPurchaseValue: num(SumColTotalPurchaseValue),
		TotalSold:          num(SumColTotalSold),
		AvgSalePrice:       num(SumColAvgSalePrice),
		TotalSalesValue:    num(SumColTotalSalesValue),
	}, true
}

// SummaryEntry pairs a summary row with its data-row position at read time.
type SummaryEntry struct {
	Row int
	SummaryRow
}
