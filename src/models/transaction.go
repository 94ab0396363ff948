package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/utils"
)

func init() {
	// Quantities and prices go to the UI as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType is the kind of stock movement a log entry records.
type TransactionType string

const (
	TransactionAdd  TransactionType = "Add"
	TransactionSell TransactionType = "Sell"
)

// ParseTransactionType accepts any casing of "add"/"sell".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add":
		return TransactionAdd, nil
	case "sell":
		return TransactionSell, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Transaction is one row of the Transaction History log.
type Transaction struct {
	ID              string          `json:"id"`
	Type            TransactionType `json:"transactionType"`
	ItemType        string          `json:"itemType"`
	ItemDescription string          `json:"itemDescription"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       string          `json:"timestamp"`
	Mode            string          `json:"mode"`
	Note            string          `json:"note"`
}

// Value is the line value, quantity*price rounded to two places.
func (t Transaction) Value() decimal.Decimal {
	return utils.LineValue(t.Quantity, t.Price)
}

// Column positions in the Transaction History table.
const (
	TxColID = iota
	TxColType
	TxColItemType
	TxColItemDescription
	TxColQuantity
	TxColPrice
	TxColTimestamp
	TxColMode
	TxColNote
	TxColumnCount
)

// TransactionHeader holds the display labels, in column order.
var TransactionHeader = []string{
	"ID", "Transaction Type", "Item Type", "Item Description",
	"Quantity", "Price", "Timestamp", "Mode", "Note",
}

// ToRow renders the transaction in Transaction History column order.
func (t Transaction) ToRow() []string {
	row := make([]string, TxColumnCount)
	row[TxColID] = t.ID
	row[TxColType] = string(t.Type)
	row[TxColItemType] = t.ItemType
	row[TxColItemDescription] = t.ItemDescription
	row[TxColQuantity] = t.Quantity.String()
	row[TxColPrice] = t.Price.String()
	row[TxColTimestamp] = t.Timestamp
	row[TxColMode] = t.Mode
	row[TxColNote] = t.Note
	return row
}

// TransactionFromRow decodes a log row. Rows that cannot describe a
// transaction (blank, no id, unknown type) return ok=false and are skipped by
// every reader; numeric cells decode leniently to zero.
func TransactionFromRow(row []string) (Transaction, bool) {
	id := strings.TrimSpace(cell(row, TxColID))
	if id == "" {
		return Transaction{}, false
	}
	txType, err := ParseTransactionType(cell(row, TxColType))
	if err != nil {
		return Transaction{}, false
	}
	qty, _ := utils.ParseDecimalCell(cell(row, TxColQuantity))
	price, _ := utils.ParseDecimalCell(cell(row, TxColPrice))
	return Transaction{
		ID:              id,
		Type:            txType,
		ItemType:        cell(row, TxColItemType),
		ItemDescription: cell(row, TxColItemDescription),
		Quantity:        qty,
		Price:           price,
		Timestamp:       cell(row, TxColTimestamp),
		Mode:            cell(row, TxColMode),
		Note:            cell(row, TxColNote),
	}, true
}

// LogEntry pairs a transaction with the data-row position it occupied when
// the log was read. The position is only valid for the operation that read it.
type LogEntry struct {
	Row int
	Transaction
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
