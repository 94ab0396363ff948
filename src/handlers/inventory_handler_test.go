package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/services"
	"github.com/username/painthouse/src/utils"
)

type mockInventoryService struct {
	mock.Mock
}

func (m *mockInventoryService) AddItem(ctx context.Context, in services.TransactionInput) (*models.Transaction, error) {
	args := m.Called(ctx, in)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockInventoryService) SellItem(ctx context.Context, in services.TransactionInput) (*models.Transaction, error) {
	args := m.Called(ctx, in)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockInventoryService) EditTransaction(ctx context.Context, id string, in services.TransactionInput) (*models.Transaction, error) {
	args := m.Called(ctx, id, in)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockInventoryService) DeleteTransaction(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInventoryService) GetInventorySummary(ctx context.Context) ([]models.SummaryRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.SummaryRow)
	return rows, args.Error(1)
}

func (m *mockInventoryService) GetSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]models.SalesSummaryRow)
	return rows, args.Error(1)
}

func (m *mockInventoryService) GetTransactionHistory(ctx context.Context, filter services.HistoryFilter) ([]models.Transaction, error) {
	args := m.Called(ctx, filter)
	txs, _ := args.Get(0).([]models.Transaction)
	return txs, args.Error(1)
}

func (m *mockInventoryService) RebuildSummary(ctx context.Context) ([]models.SummaryRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.SummaryRow)
	return rows, args.Error(1)
}

func (m *mockInventoryService) Reconcile(ctx context.Context) (*services.ReconcileReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*services.ReconcileReport)
	return report, args.Error(1)
}

func (m *mockInventoryService) PublishSalesSummary(ctx context.Context, filter processors.SalesFilter) ([]models.SalesSummaryRow, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]models.SalesSummaryRow)
	return rows, args.Error(1)
}

func newTestRouter(svc services.InventoryService) http.Handler {
	return NewRouter(NewInventoryHandler(svc), RouterConfig{AllowedOrigins: []string{"http://localhost:5173"}})
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandleAddItem(t *testing.T) {
	svc := new(mockInventoryService)
	tx := &models.Transaction{ID: "tx-1", Type: models.TransactionAdd, ItemType: "Paint", ItemDescription: "Gloss", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromFloat(5.5)}
	svc.On("AddItem", mock.Anything, mock.MatchedBy(func(in services.TransactionInput) bool {
		return in.ItemType == "Paint" && in.Quantity != nil && in.Quantity.Equal(decimal.NewFromInt(10)) && in.Price.Equal(decimal.RequireFromString("5.5"))
	})).Return(tx, nil)

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/transactions/add",
		`{"itemType":"Paint","itemDescription":"Gloss","quantity":10,"price":"5.5","mode":"UPI"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		OK          bool               `json:"ok"`
		Transaction models.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "tx-1", resp.Transaction.ID)
	assert.Contains(t, rec.Body.String(), `"quantity":10`)
	svc.AssertExpectations(t)
}

func TestHandleAddItem_errorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &services.ValidationError{Field: "quantity", Reason: "must be greater than 0"}, http.StatusBadRequest},
		{"store", fmt.Errorf("%w: boom", services.ErrStoreIO), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockInventoryService)
			svc.On("AddItem", mock.Anything, mock.Anything).Return(nil, tt.err)
			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/transactions/add", `{"itemType":"Paint"}`)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandleSellItem_staleSummaryStillSucceedsWithWarning(t *testing.T) {
	svc := new(mockInventoryService)
	tx := &models.Transaction{ID: "tx-2", Type: models.TransactionSell}
	svc.On("SellItem", mock.Anything, mock.Anything).Return(tx, fmt.Errorf("%w: timeout", services.ErrSummaryStale))

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/transactions/sell", `{"itemType":"Paint","itemDescription":"Gloss","quantity":1,"price":1}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"warning"`)
}

func TestHandleAddItem_rejectsMalformedBody(t *testing.T) {
	svc := new(mockInventoryService)
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodPost, "/api/transactions/add", `{"itemType":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/transactions/add", `{"itemType":"Paint","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/transactions/add", `{"quantity":"ten"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything)
}

func TestHandleEditAndDelete(t *testing.T) {
	svc := new(mockInventoryService)
	svc.On("EditTransaction", mock.Anything, "tx-1", mock.Anything).Return(&models.Transaction{ID: "tx-1"}, nil)
	svc.On("DeleteTransaction", mock.Anything, "tx-1").Return(nil)
	svc.On("DeleteTransaction", mock.Anything, "nope").Return(fmt.Errorf("%w: nope", services.ErrNotFound))
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodPut, "/api/transactions/tx-1", `{"itemType":"Paint","itemDescription":"Gloss","quantity":2,"price":3,"transactionType":"Sell"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/transactions/tx-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/transactions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "not found")
	svc.AssertExpectations(t)
}

func TestHandleGetTransactions_filters(t *testing.T) {
	svc := new(mockInventoryService)
	from := utils.CivilDate{Year: 2025, Month: time.July, Day: 1}
	svc.On("GetTransactionHistory", mock.Anything, services.HistoryFilter{Type: models.TransactionSell, From: &from}).
		Return([]models.Transaction{{ID: "tx-9"}}, nil)
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodGet, "/api/transactions?type=sell&from=2025-07-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tx-9")

	rec = do(t, h, http.MethodGet, "/api/transactions?type=refund", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/transactions?from=2025-07-02&to=2025-07-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetInventorySummary_etag(t *testing.T) {
	svc := new(mockInventoryService)
	svc.On("GetInventorySummary", mock.Anything).Return([]models.SummaryRow{{ItemType: "Paint", ItemDescription: "Gloss", InStock: decimal.NewFromInt(4)}}, nil)
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodGet, "/api/inventory/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, rec.Body.String(), `"inStock":4`)

	rec = do(t, h, http.MethodGet, "/api/inventory/summary", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleGetSalesSummary_csv(t *testing.T) {
	svc := new(mockInventoryService)
	to := utils.CivilDate{Year: 2025, Month: time.July, Day: 31}
	svc.On("GetSalesSummary", mock.Anything, processors.SalesFilter{To: &to}).Return([]models.SalesSummaryRow{{
		Date: "05-07-2025", ItemType: "Paint", ItemDescription: "=cmd",
		Quantity: decimal.NewFromInt(15), AvgPrice: decimal.NewFromInt(10), TotalValue: decimal.NewFromInt(150),
		CostPrice: decimal.RequireFromString("4.6666"), CostTotal: decimal.NewFromInt(70), Margin: decimal.RequireFromString("-2.5"),
	}}, nil)

	rec := do(t, newTestRouter(svc), http.MethodGet, "/api/sales/summary?to=2025-07-31&format=csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Item Type,Item Description,Sell Quantity,Sell Price,Sell Total,Cost Price,Cost Total,Margin", lines[0])
	assert.Equal(t, "05-07-2025,Paint,'=cmd,15,10,150,4.67,70,-2.5", lines[1])
}

func TestHandleReconcileAndRebuild(t *testing.T) {
	svc := new(mockInventoryService)
	svc.On("Reconcile", mock.Anything).Return(&services.ReconcileReport{Consistent: true, Divergences: []processors.Divergence{}}, nil)
	svc.On("RebuildSummary", mock.Anything).Return(nil, fmt.Errorf("%w: quota", services.ErrStoreIO))
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodGet, "/api/inventory/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)

	rec = do(t, h, http.MethodPost, "/api/inventory/rebuild", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(new(mockInventoryService))
	rec := do(t, h, http.MethodOptions, "/api/transactions/add", "", "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/", "").Code)
}
