package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/core/service"
	"github.com/rafaelmp/stockbook/internal/port"
)

// fakeDB lets each test stub only the repository calls it needs.
type fakeDB struct {
	getProducts    func(ids []int64) ([]domain.Product, error)
	providerExists func(id int64) (bool, error)
	createTxn      func(txn domain.Transaction, deltas []port.InventoryDelta) (*domain.Transaction, error)
	getTxn         func(id string) (*domain.Transaction, error)
	list           func(f port.TransactionFilter) ([]domain.Transaction, error)
	count          func(f port.TransactionFilter) (int, error)
}

func (f *fakeDB) GetProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	return f.getProducts(ids)
}

func (f *fakeDB) ProviderExists(_ context.Context, id int64) (bool, error) {
	return f.providerExists(id)
}

func (f *fakeDB) CreateTransaction(_ context.Context, txn domain.Transaction, deltas []port.InventoryDelta) (*domain.Transaction, error) {
	return f.createTxn(txn, deltas)
}

func (f *fakeDB) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	return f.getTxn(id)
}

func (f *fakeDB) ListTransactions(_ context.Context, filter port.TransactionFilter) ([]domain.Transaction, error) {
	return f.list(filter)
}

func (f *fakeDB) CountTransactions(_ context.Context, filter port.TransactionFilter) (int, error) {
	return f.count(filter)
}

func newServer(db *fakeDB) http.Handler {
	return NewHTTPHandler(service.NewTransactionService(db, nil)).Router()
}

func TestCreateTransactionEndpoint(t *testing.T) {
	db := &fakeDB{
		getProducts: func(ids []int64) ([]domain.Product, error) {
			return []domain.Product{{ID: 1, Name: "Hammer", Inventory: 10}}, nil
		},
		createTxn: func(txn domain.Transaction, deltas []port.InventoryDelta) (*domain.Transaction, error) {
			require.Len(t, deltas, 1)
			assert.Equal(t, port.InventoryDelta{ProductID: 1, Delta: 5}, deltas[0])
			return &txn, nil
		},
	}

	body := `{"type":"incoming","line_items":[{"product_id":1,"quantity":5}],"description":"restock","date":"2025-03-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "incoming", resp.Type)
	assert.Equal(t, "2025-03-10", resp.Date)
	assert.Equal(t, int64(7), resp.CreatedBy)
	require.Len(t, resp.LineItems, 1)
	assert.Equal(t, "Hammer", resp.LineItems[0].Name)
}

func TestCreateTransactionEndpoint_MissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	newServer(&fakeDB{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing_user", resp.Error)
}

func TestCreateTransactionEndpoint_EmptyBatch(t *testing.T) {
	body := `{"type":"incoming","line_items":[],"date":"2025-03-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()

	newServer(&fakeDB{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_transaction", resp.Error)
}

func TestCreateTransactionEndpoint_InsufficientStock(t *testing.T) {
	db := &fakeDB{
		getProducts: func(ids []int64) ([]domain.Product, error) {
			return []domain.Product{{ID: 1, Name: "Hammer", Inventory: 2}}, nil
		},
	}

	body := `{"type":"outgoing","line_items":[{"product_id":1,"quantity":5}],"date":"2025-03-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_stock", resp.Error)
	assert.Equal(t, []int64{1}, resp.ProductIDs)
	require.Len(t, resp.Products, 1, "friendly rows resolved for offending ids")
	assert.Equal(t, StockLevelResponse{ProductID: 1, Name: "Hammer", Inventory: 2}, resp.Products[0])
}

func TestGetTransactionEndpoint_NotFound(t *testing.T) {
	db := &fakeDB{
		getTxn: func(id string) (*domain.Transaction, error) { return nil, nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/nope", nil)
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "transaction_not_found", resp.Error)
}

func TestListTransactionsEndpoint_InvalidDateRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?start_date=2025-02-01&finish_date=2025-01-01", nil)
	rec := httptest.NewRecorder()

	newServer(&fakeDB{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_date_range", resp.Error)
}

func TestListTransactionsEndpoint_Paged(t *testing.T) {
	db := &fakeDB{
		count: func(f port.TransactionFilter) (int, error) { return 25, nil },
		list: func(f port.TransactionFilter) ([]domain.Transaction, error) {
			assert.Equal(t, 10, f.Limit)
			assert.Equal(t, 20, f.Offset)
			return []domain.Transaction{{ID: "txn-021", Type: domain.TransactionIncoming}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?page=3&per_page=10", nil)
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TransactionsPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Pagination.CurrentPage)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 25, resp.Pagination.TotalItems)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "txn-021", resp.Records[0].ID)
}

func TestListTransactionsEndpoint_PageBeyondEnd(t *testing.T) {
	db := &fakeDB{
		count: func(f port.TransactionFilter) (int, error) { return 25, nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?page=4&per_page=10", nil)
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_page", resp.Error)
}

func TestGetStockLevelEndpoint(t *testing.T) {
	db := &fakeDB{
		getProducts: func(ids []int64) ([]domain.Product, error) {
			require.Equal(t, []int64{1}, ids)
			return []domain.Product{{ID: 1, Name: "Hammer", Inventory: 12}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/1/stock", nil)
	rec := httptest.NewRecorder()

	newServer(db).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StockLevelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ProductID)
	assert.Equal(t, 12, resp.Inventory)
}
