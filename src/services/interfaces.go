package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/utils"
)

// TransactionInput carries the user-supplied fields of an Add, Sell or Edit.
// Quantity and Price are pointers so a missing field can be told apart from 0.
type TransactionInput struct {
	Type            string           `json:"transactionType,omitempty"`
	ItemType        string           `json:"itemType"`
	ItemDescription string           `json:"itemDescription"`
	Quantity        *decimal.Decimal `json:"quantity"`
	Price           *decimal.Decimal `json:"price"`
	Timestamp       string           `json:"timestamp,omitempty"`
	Mode            string           `json:"mode"`
	Note            string           `json:"note"`
}

// HistoryFilter narrows GetTransactionHistory. A zero filter returns everything.
type HistoryFilter struct {
	Type models.TransactionType
	From *utils.CivilDate
	To   *utils.CivilDate
}

// ReconcileReport is the result of comparing the stored summary to a rebuild.
type ReconcileReport struct {
	Consistent  bool                    `json:"consistent"`
	ItemsDrift  int                     `json:"itemsDrift"`
	Divergences []processors.Divergence `json:"divergences"`
}

// InventoryService is the operation surface the UI and CLI talk to.
type InventoryService interface {
	AddItem(ctx context.Context, in TransactionInput) (*models.Transaction, error)
	SellItem(ctx context.Context, in TransactionInput) (*models.Transaction, error)
	EditTransaction(ctx context.Context, id string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	GetInventorySummary(ctx context.Context) ([]models.SummaryRow, error)
	GetSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error)
	GetTransactionHistory(ctx context.Context, filter HistoryFilter) ([]models.Transaction, error)

	// RebuildSummary replaces the stored summary with one rebuilt from the log.
	RebuildSummary(ctx context.Context) ([]models.SummaryRow, error)
	// Reconcile compares without writing. Drift is logged, not corrected.
	Reconcile(ctx context.Context) (*ReconcileReport, error)
	// PublishSalesSummary writes the sales report to the Sales Summary table.
	PublishSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error)
}
