package models

import (
	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/utils"
)

// UnknownDate labels the report bucket for sales whose timestamp could not be parsed.
const UnknownDate = "unknown"

// SalesSummaryRow is one (day, item) line of the sales report with its
// FIFO-matched cost.
type SalesSummaryRow struct {
	Date            string          `json:"date"`    // DD-MM-YYYY or UnknownDate
	ISODate         string          `json:"isoDate"` // YYYY-MM-DD, empty for UnknownDate
	ItemType        string          `json:"itemType"`
	ItemDescription string          `json:"itemDescription"`
	Quantity        decimal.Decimal `json:"qty"`
	AvgPrice        decimal.Decimal `json:"avgPrice"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	CostPrice       decimal.Decimal `json:"costPrice"`
	CostTotal       decimal.Decimal `json:"costTotal"`
	Margin          decimal.Decimal `json:"margin"`
	// UnmatchedQty is sold quantity no purchase batch could cover.
	UnmatchedQty decimal.Decimal `json:"unmatchedQty"`
}

var SalesHeader = []string{
	"Date", "Item Type", "Item Description", "Sell Quantity", "Sell Price",
	"Sell Total", "Cost Price", "Cost Total", "Margin",
}

// ToRow renders the report line in Sales Summary column order.
func (r SalesSummaryRow) ToRow() []string {
	return []string{
		r.Date,
		r.ItemType,
		r.ItemDescription,
		utils.FormatDecimalCell(r.Quantity),
		utils.FormatDecimalCell(r.AvgPrice),
		utils.FormatDecimalCell(r.TotalValue),
		utils.FormatDecimalCell(r.CostPrice),
		utils.FormatDecimalCell(r.CostTotal),
		utils.FormatDecimalCell(r.Margin),
	}
}
