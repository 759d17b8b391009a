package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/core/service"
)

const dateLayout = "2006-01-02"

type HTTPHandler struct {
	transactions *service.TransactionService
}

func NewHTTPHandler(transactions *service.TransactionService) *HTTPHandler {
	return &HTTPHandler{transactions: transactions}
}

// Router wires all endpoints under /api/v1 behind the request-logging
// middleware.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	s.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	s.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/stock", h.GetStockLevel).Methods(http.MethodGet)

	return logMiddleware(r)
}

type CreateTransactionRequest struct {
	Type        string                    `json:"type"`
	LineItems   []service.LineItemRequest `json:"line_items"`
	ProviderID  *int64                    `json:"provider_id,omitempty"`
	Description string                    `json:"description"`
	Date        string                    `json:"date"`
}

type LineItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type TransactionResponse struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Description  string             `json:"description"`
	Date         string             `json:"date"`
	ProviderID   *int64             `json:"provider_id,omitempty"`
	ProviderName string             `json:"provider_name,omitempty"`
	LineItems    []LineItemResponse `json:"line_items"`
	CreatedBy    int64              `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type PaginationResponse struct {
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	PerPage     int               `json:"per_page"`
	TotalItems  int               `json:"total_items"`
	Filters     map[string]string `json:"filters"`
}

type TransactionsPageResponse struct {
	Pagination PaginationResponse    `json:"pagination"`
	Records    []TransactionResponse `json:"records"`
}

type ErrorResponse struct {
	Error      string               `json:"error"`
	Message    string               `json:"message"`
	ProductIDs []int64              `json:"product_ids,omitempty"`
	Products   []StockLevelResponse `json:"products,omitempty"`
}

type StockLevelResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Inventory int    `json:"inventory"`
}

func (h *HTTPHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "missing_user",
			Message: "X-User-ID header is required",
		})
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
		})
		return
	}

	txnType := domain.TransactionType(req.Type)
	if !txnType.Valid() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "type must be incoming or outgoing",
		})
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "date must be formatted as YYYY-MM-DD",
		})
		return
	}

	created, err := h.transactions.Create(r.Context(), domain.User{ID: userID}, service.CreateRequest{
		Type:        txnType,
		LineItems:   req.LineItems,
		ProviderID:  req.ProviderID,
		Description: req.Description,
		Date:        date,
		RequestID:   r.Header.Get("X-Request-ID"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(*created))
}

func (h *HTTPHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	txn, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(*txn))
}

func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := service.ListFilters{
		ProductName:  query.Get("product_name"),
		ProviderName: query.Get("provider_name"),
		Description:  query.Get("description"),
	}

	if t := query.Get("transaction_type"); t != "" {
		txnType := domain.TransactionType(t)
		if !txnType.Valid() {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: "transaction_type must be incoming or outgoing",
			})
			return
		}
		filters.Type = txnType
	}

	for param, dst := range map[string]**time.Time{
		"start_date":  &filters.StartDate,
		"finish_date": &filters.FinishDate,
	} {
		if raw := query.Get(param); raw != "" {
			parsed, err := time.Parse(dateLayout, raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Error:   "bad_request",
					Message: param + " must be formatted as YYYY-MM-DD",
				})
				return
			}
			*dst = &parsed
		}
	}

	if query.Get("page") == "" && query.Get("per_page") == "" {
		records, err := h.transactions.List(r.Context(), filters)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransactionResponses(records))
		return
	}

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_page",
			Message: "page must be an integer",
		})
		return
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_page_size",
			Message: "per_page must be an integer",
		})
		return
	}

	result, err := h.transactions.ListPaged(r.Context(), filters, page, perPage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionsPageResponse{
		Pagination: toPaginationResponse(result.Pagination),
		Records:    toTransactionResponses(result.Records),
	})
}

func (h *HTTPHandler) GetStockLevel(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "product id must be an integer",
		})
		return
	}

	inventory, err := h.transactions.StockLevel(r.Context(), productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StockLevelResponse{ProductID: productID, Inventory: inventory})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError translates each business error kind to a distinct status and
// structured payload. Insufficient-stock responses include a row per offending
// product so the caller can display current inventory.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidQuantity *domain.InvalidQuantityError
	var productsNotFound *domain.ProductsNotFoundError
	var providerNotFound *domain.ProviderNotFoundError
	var insufficientStock *domain.InsufficientStockError
	var invalidPage *domain.InvalidPageError
	var invalidPageSize *domain.InvalidPageSizeError

	switch {
	case errors.Is(err, domain.ErrEmptyTransaction):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "empty_transaction", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "duplicate_request", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidDateRange):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_date_range", Message: err.Error()})
	case errors.Is(err, domain.ErrNoTransactionsFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no_transactions_found", Message: err.Error()})
	case errors.Is(err, domain.ErrTransactionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "transaction_not_found", Message: err.Error()})
	case errors.As(err, &invalidQuantity):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid_quantity",
			Message:    err.Error(),
			ProductIDs: invalidQuantity.ProductIDs,
		})
	case errors.As(err, &productsNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:      "products_not_found",
			Message:    err.Error(),
			ProductIDs: productsNotFound.ProductIDs,
		})
	case errors.As(err, &providerNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "provider_not_found", Message: err.Error()})
	case errors.As(err, &insufficientStock):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:      "insufficient_stock",
			Message:    err.Error(),
			ProductIDs: insufficientStock.ProductIDs,
			Products:   h.stockRows(r, insufficientStock.ProductIDs),
		})
	case errors.As(err, &invalidPage):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_page", Message: err.Error()})
	case errors.As(err, &invalidPageSize):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_page_size", Message: err.Error()})
	default:
		log.WithField("err", err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal error"})
	}
}

func (h *HTTPHandler) stockRows(r *http.Request, ids []int64) []StockLevelResponse {
	rows, err := h.transactions.ProductDetails(r.Context(), ids)
	if err != nil {
		log.WithField("err", err).Warn("stock row lookup failed")
		return nil
	}

	out := make([]StockLevelResponse, len(rows))
	for i, row := range rows {
		out[i] = StockLevelResponse{ProductID: row.ProductID, Name: row.Name, Inventory: row.Inventory}
	}
	return out
}

func toTransactionResponse(txn domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           txn.ID,
		Type:         string(txn.Type),
		Description:  txn.Description,
		Date:         txn.Date.Format(dateLayout),
		ProviderID:   txn.ProviderID,
		ProviderName: txn.ProviderName,
		CreatedBy:    txn.CreatedBy,
		CreatedAt:    txn.CreatedAt,
		UpdatedAt:    txn.UpdatedAt,
	}
	for _, item := range txn.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

func toTransactionResponses(records []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(records))
	for i, txn := range records {
		out[i] = toTransactionResponse(txn)
	}
	return out
}

func toPaginationResponse(p service.Pagination) PaginationResponse {
	filters := map[string]string{
		"product_name":     p.Filters.ProductName,
		"provider_name":    p.Filters.ProviderName,
		"description":      p.Filters.Description,
		"transaction_type": string(p.Filters.Type),
		"start_date":       "",
		"finish_date":      "",
	}
	if p.Filters.StartDate != nil {
		filters["start_date"] = p.Filters.StartDate.Format(dateLayout)
	}
	if p.Filters.FinishDate != nil {
		filters["finish_date"] = p.Filters.FinishDate.Format(dateLayout)
	}

	return PaginationResponse{
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		PerPage:     p.PerPage,
		TotalItems:  p.TotalItems,
		Filters:     filters,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
