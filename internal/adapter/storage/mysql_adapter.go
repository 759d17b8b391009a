package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/port"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, name, size, inventory, weight, created_at, updated_at
		FROM products WHERE id IN (%s) ORDER BY id`, placeholders(len(ids)))

	rows, err := m.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Size, &p.Inventory, &p.Weight, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) ProviderExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := m.db.QueryRowContext(ctx, `SELECT 1 FROM providers WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query provider: %w", err)
	}
	return true, nil
}

// CreateTransaction inserts the header, the line items and the inventory
// adjustments in one database transaction. Outgoing adjustments are guarded
// with `inventory >= ?`; a zero rows-affected result means the pre-checked
// stock was consumed by a concurrent writer, and the whole unit rolls back.
func (m *MySQLAdapter) CreateTransaction(ctx context.Context, txn domain.Transaction, deltas []port.InventoryDelta) (*domain.Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, type, provider_id, description, date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, string(txn.Type), txn.ProviderID, txn.Description, txn.Date,
		txn.CreatedBy, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	for _, item := range txn.LineItems {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transaction_products (transaction_id, product_id, quantity)
			VALUES (?, ?, ?)`,
			txn.ID, item.ProductID, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("insert line item: %w", err)
		}
	}

	var insufficient []int64
	for _, d := range deltas {
		if d.Delta < 0 {
			result, err := tx.ExecContext(ctx, `
				UPDATE products
				SET inventory = inventory - ?, updated_at = NOW()
				WHERE id = ? AND inventory >= ?`,
				-d.Delta, d.ProductID, -d.Delta,
			)
			if err != nil {
				return nil, fmt.Errorf("update inventory: %w", err)
			}
			rows, _ := result.RowsAffected()
			if rows == 0 {
				insufficient = append(insufficient, d.ProductID)
			}
			continue
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET inventory = inventory + ?, updated_at = NOW()
			WHERE id = ?`,
			d.Delta, d.ProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("update inventory: %w", err)
		}
	}
	if len(insufficient) > 0 {
		return nil, &domain.InsufficientStockError{ProductIDs: insufficient}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return m.GetTransaction(ctx, txn.ID)
}

const transactionColumns = `
	t.id, t.type, t.provider_id, COALESCE(p.name, ''), t.description,
	t.date, t.created_by, t.created_at, t.updated_at`

func (m *MySQLAdapter) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN providers p ON p.id = t.provider_id
		WHERE t.id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := m.loadLineItems(ctx, []*domain.Transaction{txn}); err != nil {
		return nil, err
	}
	return txn, nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context, filter port.TransactionFilter) ([]domain.Transaction, error) {
	where, args := buildTransactionWhere(filter)

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN providers p ON p.id = t.provider_id` + where + `
		ORDER BY t.id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*domain.Transaction, len(transactions))
	for i := range transactions {
		refs[i] = &transactions[i]
	}
	if err := m.loadLineItems(ctx, refs); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (m *MySQLAdapter) CountTransactions(ctx context.Context, filter port.TransactionFilter) (int, error) {
	where, args := buildTransactionWhere(filter)

	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		LEFT JOIN providers p ON p.id = t.provider_id`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (m *MySQLAdapter) loadLineItems(ctx context.Context, transactions []*domain.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Transaction, len(transactions))
	args := make([]interface{}, len(transactions))
	for i, txn := range transactions {
		byID[txn.ID] = txn
		args[i] = txn.ID
	}

	query := fmt.Sprintf(`
		SELECT tp.transaction_id, tp.product_id, pr.name, tp.quantity
		FROM transaction_products tp
		JOIN products pr ON pr.id = tp.product_id
		WHERE tp.transaction_id IN (%s)
		ORDER BY tp.transaction_id, tp.product_id`, placeholders(len(args)))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txnID string
		var item domain.LineItem
		if err := rows.Scan(&txnID, &item.ProductID, &item.ProductName, &item.Quantity); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		if txn, ok := byID[txnID]; ok {
			txn.LineItems = append(txn.LineItems, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	var txnType string
	var providerID sql.NullInt64
	err := row.Scan(&txn.ID, &txnType, &providerID, &txn.ProviderName, &txn.Description,
		&txn.Date, &txn.CreatedBy, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	txn.Type = domain.TransactionType(txnType)
	if providerID.Valid {
		txn.ProviderID = &providerID.Int64
	}
	return &txn, nil
}

func buildTransactionWhere(filter port.TransactionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartDate != nil {
		conditions = append(conditions, `t.date >= ?`)
		args = append(args, *filter.StartDate)
	}
	if filter.FinishDate != nil {
		conditions = append(conditions, `t.date <= ?`)
		args = append(args, *filter.FinishDate)
	}
	if filter.ProviderName != "" {
		conditions = append(conditions, `LOWER(p.name) LIKE ?`)
		args = append(args, likePattern(filter.ProviderName))
	}
	if filter.Description != "" {
		conditions = append(conditions, `LOWER(t.description) LIKE ?`)
		args = append(args, likePattern(filter.Description))
	}
	if filter.Type != "" {
		conditions = append(conditions, `t.type = ?`)
		args = append(args, string(filter.Type))
	}
	if filter.ProductName != "" {
		conditions = append(conditions, `t.id IN (
			SELECT tp.transaction_id
			FROM transaction_products tp
			JOIN products pr ON pr.id = tp.product_id
			WHERE LOWER(pr.name) LIKE ?)`)
		args = append(args, likePattern(filter.ProductName))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
