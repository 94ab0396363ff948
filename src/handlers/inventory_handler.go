package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/services"
	"github.com/username/painthouse/src/utils"
	"github.com/username/painthouse/src/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type InventoryHandler struct {
	inventoryService services.InventoryService
}

func NewInventoryHandler(inventoryService services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

type okResponse struct {
	OK          bool                `json:"ok"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Warning     string              `json:"warning,omitempty"`
}

func (h *InventoryHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	h.handleRecord(w, r, "AddItem", h.inventoryService.AddItem)
}

func (h *InventoryHandler) HandleSellItem(w http.ResponseWriter, r *http.Request) {
	h.handleRecord(w, r, "SellItem", h.inventoryService.SellItem)
}

func (h *InventoryHandler) handleRecord(w http.ResponseWriter, r *http.Request, op string,
	record func(ctx context.Context, in services.TransactionInput) (*models.Transaction, error)) {
	log := logger.FromContext(r.Context())
	log.Info("Handling " + op)

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	tx, err := record(r.Context(), in)
	if err != nil {
		if errors.Is(err, services.ErrSummaryStale) && tx != nil {
			// The sale or purchase is recorded; only the summary lags behind.
			utils.WriteJSON(w, http.StatusCreated, okResponse{OK: true, Transaction: tx, Warning: err.Error()})
			return
		}
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, okResponse{OK: true, Transaction: tx})
}

func (h *InventoryHandler) HandleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger.FromContext(r.Context()).Info("Handling EditTransaction", "id", id)

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	tx, err := h.inventoryService.EditTransaction(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, services.ErrSummaryStale) && tx != nil {
			utils.WriteJSON(w, http.StatusOK, okResponse{OK: true, Transaction: tx, Warning: err.Error()})
			return
		}
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, okResponse{OK: true, Transaction: tx})
}

func (h *InventoryHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger.FromContext(r.Context()).Info("Handling DeleteTransaction", "id", id)

	if err := h.inventoryService.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrSummaryStale) {
			utils.WriteJSON(w, http.StatusOK, okResponse{OK: true, Warning: err.Error()})
			return
		}
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *InventoryHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.HistoryFilter{}
	if t := strings.TrimSpace(q.Get("type")); t != "" && !strings.EqualFold(t, "all") {
		txType, err := models.ParseTransactionType(t)
		if err != nil {
			utils.SendJSONError(w, "type must be All, Add or Sell", http.StatusBadRequest)
			return
		}
		filter.Type = txType
	}
	var err error
	if filter.From, filter.To, err = parseDateRange(q.Get("from"), q.Get("to")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	history, err := h.inventoryService.GetTransactionHistory(r.Context(), filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if history == nil {
		history = []models.Transaction{}
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

func (h *InventoryHandler) HandleGetInventorySummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.inventoryService.GetInventorySummary(r.Context())
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []models.SummaryRow{}
	}

	etag, err := utils.GenerateETag(rows)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to generate ETag for inventory summary", "error", err)
	} else {
		quoted := `"` + etag + `"`
		w.Header().Set("ETag", quoted)
		w.Header().Set("Cache-Control", "no-cache")
		if match := r.Header.Get("If-None-Match"); match == quoted {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (h *InventoryHandler) HandleRebuildSummary(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("Handling RebuildSummary")
	rows, err := h.inventoryService.RebuildSummary(r.Context())
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []models.SummaryRow{}
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (h *InventoryHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.inventoryService.Reconcile(r.Context())
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (h *InventoryHandler) HandleGetSalesSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := salesFilterFromQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.inventoryService.GetSalesSummary(r.Context(), filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="sales-summary.csv"`)
		if err := WriteSalesCSV(w, rows); err != nil {
			logger.FromContext(r.Context()).Error("Error writing sales CSV", "error", err)
		}
		return
	}
	if rows == nil {
		rows = []models.SalesSummaryRow{}
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (h *InventoryHandler) HandlePublishSalesSummary(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("Handling PublishSalesSummary")
	filter, ok := salesFilterFromQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.inventoryService.PublishSalesSummary(r.Context(), filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []models.SalesSummaryRow{}
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

// WriteSalesCSV renders report rows under the Sales Summary header. Text
// cells are escaped so spreadsheet apps do not evaluate them.
func WriteSalesCSV(w io.Writer, rows []models.SalesSummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.SalesHeader); err != nil {
		return err
	}
	for _, row := range rows {
		cells := row.ToRow()
		// Date, item type and description; the rest are numbers.
		for i := 0; i < 3; i++ {
			cells[i] = validation.SanitizeForFormulaInjection(cells[i])
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decodeInput(w http.ResponseWriter, r *http.Request) (services.TransactionInput, bool) {
	var in services.TransactionInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		utils.SendJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func salesFilterFromQuery(w http.ResponseWriter, r *http.Request) (processors.SalesFilter, bool) {
	from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return processors.SalesFilter{}, false
	}
	return processors.SalesFilter{From: from, To: to}, true
}

func parseDateRange(fromStr, toStr string) (from, to *utils.CivilDate, err error) {
	if strings.TrimSpace(fromStr) != "" {
		d, err := utils.ParseISODate(fromStr)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if strings.TrimSpace(toStr) != "" {
		d, err := utils.ParseISODate(toStr)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, errors.New("from must not be after to")
	}
	return from, to, nil
}

// sendServiceError maps service errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.SendJSONError(w, vErr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrValidation):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrSummaryStale):
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
	case errors.Is(err, services.ErrStoreIO):
		utils.SendJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		utils.SendJSONError(w, "internal error", http.StatusInternalServerError)
	}
}
